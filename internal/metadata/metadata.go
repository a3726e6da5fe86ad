// Package metadata synthesizes the thesis YAML front matter: title, author
// and advisor pulled from the introduction, plus generated abstracts and
// acknowledgements.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ycwu/slide2thesis/internal/jobs"
	"github.com/ycwu/slide2thesis/internal/providers"
	"github.com/ycwu/slide2thesis/internal/workdir"
)

// ErrNoChapters indicates no chapter variant exists to derive metadata from.
var ErrNoChapters = errors.New("no chapter files found")

// Placeholder values used when a generation sub-task fails. The compile
// stage still gets a structurally complete metadata file.
const (
	defaultTitle           = "Thesis Title"
	defaultAuthor          = "Author Name"
	failedAbstract         = "Abstract generation failed."
	failedChineseAbstract  = "中文摘要生成失敗。"
	failedAcknowledgements = "感謝指導教授的悉心指導，以及家人朋友的支持與鼓勵。"
)

// sourceCategories are the chapters whose content feeds the abstract.
var sourceCategories = []workdir.Category{
	workdir.Introduction, workdir.Methods, workdir.Results, workdir.Conclusions,
}

const introMetadataPrompt = `From the following thesis introduction text, please extract:
1. The thesis title
2. The author's name
3. The advisor's name (if present)

Note that these information are usually at the first page. Return only these three pieces of information, one per line.

Text:
`

const abstractPromptTemplate = `You are an expert academic writer. Based on the thesis content provided below, write a concise abstract (250-300 words) in ONLY one paragraph.

Thesis content:
%s`

const chineseAbstractPromptTemplate = `You are an expert academic translator specializing in Traditional Chinese.
Please translate the following English thesis abstract into Traditional Chinese, maintaining:

1. Academic tone and formal writing style
2. Technical terminology accuracy
3. Proper Traditional Chinese academic conventions
4. Same paragraph structure and content flow
5. Appropriate length (250-300 words in Traditional Chinese) in one paragraph

Please provide ONLY the Traditional Chinese translation, no additional commentary.

English Abstract:
%s`

const acknowledgementsPrompt = `You are a world-class acknowledgements writer specializing in Traditional Chinese.
Please write a heartfelt acknowledgements section (誌謝) in Traditional Chinese for a student who is about to graduate.

The acknowledgements should:
1. Express sincere gratitude to the advisor for guidance and support
2. Thank family members for their support and understanding
3. Acknowledge classmates, lab members, or colleagues who helped
4. Thank the institution/university for providing resources
5. Be approximately 200-300 words in Traditional Chinese
6. Use a heartfelt and touching tone for a student who is about to graduate
7. You may include some mentions of research guidance, personal growth, and friendship development.

Please write ONLY the acknowledgements content in Traditional Chinese, without any title or additional commentary.
The text should be suitable for direct inclusion in a thesis document.`

// Synthesizer derives the thesis metadata record once per run.
type Synthesizer struct {
	provider providers.Provider
	dir      workdir.Dir
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Synthesizer.
func New(provider providers.Provider, dir workdir.Dir, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		provider: provider,
		dir:      dir,
		logger:   logger.With("stage", "metadata"),
		now:      time.Now,
	}
}

// Run derives title/author/advisor from the introduction section, generates
// the abstract and acknowledgements concurrently, translates the abstract
// afterwards, and writes thesis_metadata.yaml. Sub-task failures fall back
// to placeholders; only a missing-input state fails the stage.
func (s *Synthesizer) Run(ctx context.Context) error {
	var chapterTexts []string
	for _, category := range sourceCategories {
		text, ok, err := s.dir.ReadChapter(category)
		if err != nil {
			return err
		}
		if ok {
			chapterTexts = append(chapterTexts, text)
		}
	}
	if len(chapterTexts) == 0 {
		return ErrNoChapters
	}

	intro, _, err := s.dir.ReadSection(workdir.Introduction)
	if err != nil {
		return err
	}
	title, author, advisor := s.extractFromIntro(ctx, intro)

	// The abstract and the acknowledgements are independent; the Chinese
	// abstract depends on the English one so it runs strictly after.
	var abstract, acknowledgements string
	pool := jobs.NewPool(2, s.logger)
	pool.Run(ctx, []jobs.Task{
		{Name: "abstract", Run: func(ctx context.Context) error {
			abstract = s.generateAbstract(ctx, chapterTexts)
			return nil
		}},
		{Name: "acknowledgements", Run: func(ctx context.Context) error {
			acknowledgements = s.generateAcknowledgements(ctx)
			return nil
		}},
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	chineseAbstract := s.translateAbstract(ctx, abstract)

	yaml := s.render(title, author, advisor, abstract, chineseAbstract, acknowledgements)
	if err := s.dir.Write(workdir.MetadataFile, yaml); err != nil {
		return err
	}
	s.logger.Info("wrote thesis metadata", "title", title, "author", author)
	return nil
}

// extractFromIntro parses the provider's answer positionally: line 1 title,
// line 2 author, line 3 advisor. Fields are kept as returned, without
// plausibility checks.
func (s *Synthesizer) extractFromIntro(ctx context.Context, intro string) (title, author, advisor string) {
	title, author = defaultTitle, defaultAuthor
	if strings.TrimSpace(intro) == "" {
		return title, author, ""
	}

	response, err := s.provider.Generate(ctx, introMetadataPrompt+intro, nil)
	if err != nil || strings.TrimSpace(response) == "" {
		s.logger.Warn("metadata extraction failed, using defaults", "error", err)
		return title, author, ""
	}

	lines := strings.Split(strings.TrimSpace(response), "\n")
	if len(lines) >= 1 {
		title = strings.TrimSpace(lines[0])
	}
	if len(lines) >= 2 {
		author = strings.TrimSpace(lines[1])
	}
	if len(lines) >= 3 {
		advisor = strings.TrimSpace(lines[2])
	}
	return title, author, advisor
}

func (s *Synthesizer) generateAbstract(ctx context.Context, chapterTexts []string) string {
	prompt := fmt.Sprintf(abstractPromptTemplate, strings.Join(chapterTexts, "\n\n"))
	abstract, err := s.provider.Generate(ctx, prompt, nil)
	if err != nil || strings.TrimSpace(abstract) == "" {
		s.logger.Warn("abstract generation failed", "error", err)
		return failedAbstract
	}
	s.logger.Info("generated abstract")
	return abstract
}

func (s *Synthesizer) translateAbstract(ctx context.Context, abstract string) string {
	translated, err := s.provider.Generate(ctx, fmt.Sprintf(chineseAbstractPromptTemplate, abstract), nil)
	if err != nil || strings.TrimSpace(translated) == "" {
		s.logger.Warn("abstract translation failed", "error", err)
		return failedChineseAbstract
	}
	s.logger.Info("generated Traditional Chinese abstract")
	return translated
}

func (s *Synthesizer) generateAcknowledgements(ctx context.Context) string {
	acknowledgements, err := s.provider.Generate(ctx, acknowledgementsPrompt, nil)
	if err != nil || strings.TrimSpace(acknowledgements) == "" {
		s.logger.Warn("acknowledgements generation failed", "error", err)
		return failedAcknowledgements
	}
	s.logger.Info("generated Traditional Chinese acknowledgements")
	return acknowledgements
}

// render emits the pandoc front matter. Long text fields use YAML literal
// blocks so multi-line model output survives verbatim.
func (s *Synthesizer) render(title, author, advisor, abstract, chineseAbstract, acknowledgements string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", title)
	fmt.Fprintf(&b, "author: %q\n", author)
	if advisor != "" {
		fmt.Fprintf(&b, "supervisor: %q\n", advisor)
	}
	fmt.Fprintf(&b, "date: %q\n", s.now().Format("2006-01-02"))

	// toc settings double as a workaround: the template's table of contents
	// renders empty without them.
	b.WriteString("documentclass: report\n")
	b.WriteString("toc: true\n")
	b.WriteString("toc-depth: 2\n")

	b.WriteString("figPrefix: Figure\n")
	b.WriteString("eqnPrefix: Equation\n")
	b.WriteString("tblPrefix: Table\n")
	b.WriteString("secPrefix: Section\n")
	b.WriteString("linkReferences: true\n")

	writeBlock := func(field, text string) {
		fmt.Fprintf(&b, "%s: |\n", field)
		for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	writeBlock("abstract", abstract)
	writeBlock("abstract-zh", chineseAbstract)
	writeBlock("acknowledgements-zh", acknowledgements)

	b.WriteString("---\n")
	return b.String()
}
