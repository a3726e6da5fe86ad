package chapters

import (
	"fmt"
	"strings"

	"github.com/ycwu/slide2thesis/internal/workdir"
)

const generalGuidelines = `You are an expert academic writer tasked with composing a world-class thesis chapter. You are provided with a set of page contents relevant to this %[1]s chapter. Integrate, refine, and expand on this material to create a polished, coherent, and comprehensive chapter that meets high thesis standards.

Follow these general guidelines:
1. Carefully review all provided page contents and write a world-class thesis %[1]s chapter.
2. If necessary, fill in gaps with logical transitions or additional information that strengthens the chapter's narrative.
3. Organize the chapter using markdown format into clearly defined sections and, if applicable, subheadings.
4. Do NOT include explicit chapter or section numbers in markdown headers (use "## Overview", not "## 3.1 Overview"); LaTeX numbers sections automatically.
5. Wrap inline equations in a single pair of dollar signs and displayed equations in a double pair.
6. Ensure the chapter follows a logical progression that guides the reader through the main points.
7. Write in a formal, objective, and precise academic style suitable for a graduate-level thesis.
8. Don't include any source information (page numbers, slides, figure numbers) or figure reference links.
9. Always start the markdown with a chapter title (e.g., # Introduction, # Related Works, # Methods, # Results, # Conclusions, # Appendix).`

var specificGuidelines = map[workdir.Category]string{
	workdir.Introduction: `Chapter-specific guidelines:
- Provide comprehensive background information necessary for understanding the research problem.
- Keywords and background knowledge in the provided page contents must be introduced in this chapter.
- Expand the background knowledge using your knowledge base; don't limit yourself to the provided page contents.
- Comprehensively describe the importance, impact, and current challenges of the research problem.
- End with a concise statement of the research problem and the goal of the thesis.
- Write 5-6 paragraphs.`,

	workdir.RelatedWorks: `Chapter-specific guidelines:
- Introduce related works, the literature, and their limitations from the provided page contents.
- Expand the literature review using your knowledge base; don't limit yourself to the provided page contents.
- Write 3-4 paragraphs.`,

	workdir.Methods: `Chapter-specific guidelines:
- Don't miss any details in each page content. Write each part as detailed as possible and expand the details using your knowledge base.`,

	workdir.Results: `Chapter-specific guidelines:
- Present each result page as detailed as possible, summarizing the key messages at the end of each paragraph or section.
- If a result page contains a figure or table, describe it like the main body of a scientific paper.
- You may fill in the details of the results using your knowledge base.`,

	workdir.Conclusions: `Chapter-specific guidelines:
- This is the ending chapter. Briefly summarize the main findings, interpretations, implications, and potential future directions.
- Write 3-4 paragraphs.`,

	workdir.Appendix: `Chapter-specific guidelines:
- The appendix includes supplementary information from pages after the conclusion.
- If a page contains a figure, write a complete figure legend explaining it.
- If a page contains a table, write a complete table legend and formulate the table in markdown format.`,
}

func draftPrompt(category workdir.Category, sectionContent string) string {
	return fmt.Sprintf("%s\n\n%s\n\nBelow are the extracted text pages for the %s chapter:\n\n%s\n\nPlease generate a comprehensive %s chapter based on the above guidelines and content.",
		fmt.Sprintf(generalGuidelines, category), specificGuidelines[category], category, sectionContent, category)
}

const expandPromptTemplate = `You are an expert academic writer. Compare the original contents and the generated chapter text below.
Your task is to:
1. Identify any content from the original contents that is missing in the generated chapter text.
2. If any missing content is found, expand the generated chapter text to include it while maintaining the original flow and academic writing style.
3. The expanded chapter must follow the original markdown format of the generated chapter text.
4. Return the expanded chapter text in markdown format.

**Original contents:**
%s

**Generated chapter text:**
%s`

func expandPrompt(sectionContent, chapterText string) string {
	return fmt.Sprintf(expandPromptTemplate, sectionContent, chapterText)
}

const polishPromptTemplate = `You are an expert academic thesis editor. Polish the following thesis chapter to meet the highest academic standards.

Guidelines:
1. Convert any slide-based language into professional thesis writing.
2. Ensure consistent academic tone throughout.
3. Maintain all technical content, equations, and important information.
4. Keep the same markdown formatting structure.
5. Preserve all section headings but REMOVE any explicit chapter or section numbers (change "## 3.1 Overview" to "## Overview").
6. Keep equations in LaTeX format ($ for inline, $$ for display).
7. Ensure the writing flows naturally between sections.
8. Remove apparent editing artifacts (e.g., "Here's the expanded chapter text").

Return the polished chapter text in markdown format.

Chapter content to polish:
%s`

func polishPrompt(chapterText string) string {
	return fmt.Sprintf(polishPromptTemplate, chapterText)
}

// stripFences removes markdown code fence wrappers the polishing pass
// sometimes leaves around the whole chapter.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```markdown\n", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
