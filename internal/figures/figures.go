// Package figures maps visually-descriptive chapter sentences to extracted
// page images, assigns run-stable figure identifiers, and rewrites chapters
// with inline markers plus embedded figure blocks.
package figures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/ycwu/slide2thesis/internal/jobs"
	"github.com/ycwu/slide2thesis/internal/llmjson"
	"github.com/ycwu/slide2thesis/internal/providers"
	"github.com/ycwu/slide2thesis/internal/workdir"
)

// ErrNoChapterFiles indicates no eligible cited chapter exists.
var ErrNoChapterFiles = errors.New("no cited chapter files found")

// ErrNoImages indicates the working directory holds no page images.
var ErrNoImages = errors.New("no figure images found")

// eligible marks the categories that receive figure references.
var eligible = map[workdir.Category]bool{
	workdir.Introduction: true,
	workdir.Methods:      true,
	workdir.Results:      true,
	workdir.Appendix:     true,
}

const analysisPromptTemplate = `Analyze the following figure context and thesis text, identify sentences in the thesis text that should reference figures in the figure context.
Focus on sentences in the thesis text that:
1. Describe visual data or results (charts, graphs, diagrams, etc.)
2. Refer to experimental setups or methodologies that are better illustrated
3. Mention visual comparisons or trends
4. Use visual phrases like "as shown", "illustrates", "plots", etc.

Here is detailed information about the available figures (figure context) that can be referenced:

%s

For each sentence that should reference a figure, determine which figure (by filename) is most appropriate.

Respond with ONLY a valid JSON object in this exact format:
{
    "figure_references": [
        {
            "sentence": "exact sentence from text",
            "reason": "brief reason why this sentence should reference a figure",
            "figure_filename": "page_X.jpg",
            "figure_legend": "A descriptive legend for this figure"
        }
    ]
}

- Only include sentences where you are confident there should be a figure reference.
- Exclude sentences that are just lists of items or other non-visual content, and sentences where the visual elements are not the main focus.`

var analysisSchema = llmjson.MustSchema("figure_analysis.json", `{
	"type": "object",
	"required": ["figure_references"],
	"properties": {
		"figure_references": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["sentence", "figure_filename"],
				"properties": {
					"sentence": {"type": "string"},
					"reason": {"type": "string"},
					"figure_filename": {"type": "string"},
					"figure_legend": {"type": "string"}
				}
			}
		}
	}
}`)

type figureRef struct {
	Sentence string `json:"sentence"`
	Reason   string `json:"reason"`
	Filename string `json:"figure_filename"`
	Legend   string `json:"figure_legend"`
}

type figureAnalysis struct {
	References []figureRef `json:"figure_references"`
}

// Engine runs the figure reference stage.
type Engine struct {
	provider providers.Provider
	dir      workdir.Dir
	workers  int
	cropTop  int
	logger   *slog.Logger
	registry *Registry
}

// New creates a figure Engine. cropTop > 0 enables page image cropping; the
// cropped variant is what gets embedded.
func New(provider providers.Provider, dir workdir.Dir, workers, cropTop int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		provider: provider,
		dir:      dir,
		workers:  workers,
		cropTop:  cropTop,
		logger:   logger.With("stage", "figures"),
		registry: NewRegistry(),
	}
}

// Run rewrites every eligible cited chapter with figure markers and embeds.
// Per-chapter failures are logged and skipped; the stage fails only when its
// inputs are missing entirely (no cited chapters or no page images).
func (e *Engine) Run(ctx context.Context) error {
	// Input is the cited variant only, not the shared variant lookup: on a
	// re-run the lookup would hand this stage its own with_figures output
	// and embeds would compound.
	var categories []workdir.Category
	for _, category := range workdir.Categories {
		if eligible[category] && e.dir.Exists(workdir.CitedChapterFile(category)) {
			categories = append(categories, category)
		}
	}
	if len(categories) == 0 {
		return ErrNoChapterFiles
	}

	pages, err := e.pageImages()
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return ErrNoImages
	}

	display := e.cropAll(pages)
	pageTexts := e.loadPageTexts()

	var tasks []jobs.Task
	for _, category := range categories {
		category := category
		tasks = append(tasks, jobs.Task{
			Name: category.Stem(),
			Run: func(ctx context.Context) error {
				return e.processChapter(ctx, category, pages, display, pageTexts)
			},
		})
	}

	pool := jobs.NewPool(e.workers, e.logger)
	pool.Run(ctx, tasks)
	return ctx.Err()
}

// pageImages lists the page numbers with a rendered image, ascending.
func (e *Engine) pageImages() ([]int, error) {
	entries, err := os.ReadDir(e.dir.Root())
	if err != nil {
		return nil, fmt.Errorf("failed to list working directory: %w", err)
	}
	var pages []int
	for _, entry := range entries {
		if n, ok := workdir.PageImageNumber(entry.Name()); ok {
			pages = append(pages, n)
		}
	}
	sort.Ints(pages)
	return pages, nil
}

// cropAll produces cropped variants when cropping is enabled and returns the
// filename to embed per page. A failed crop falls back to the original image.
func (e *Engine) cropAll(pages []int) map[int]string {
	display := make(map[int]string, len(pages))
	for _, n := range pages {
		display[n] = workdir.PageImageFile(n)
		if e.cropTop <= 0 {
			continue
		}
		src := e.dir.Path(workdir.PageImageFile(n))
		dst := e.dir.Path(workdir.CroppedPageImageFile(n))
		if err := CropImage(src, dst, e.cropTop); err != nil {
			e.logger.Warn("failed to crop page image", "page", n, "error", err)
			continue
		}
		display[n] = workdir.CroppedPageImageFile(n)
	}
	return display
}

// loadPageTexts maps page image filenames to their extracted text. Missing
// extraction output just means an empty figure context.
func (e *Engine) loadPageTexts() map[string]string {
	content, ok, err := e.dir.Read(workdir.ExtractedTextFile)
	if err != nil || !ok {
		return nil
	}
	data := workdir.ParseExtractedText(content)
	texts := make(map[string]string)
	for key, text := range data {
		var n int
		if _, err := fmt.Sscanf(key, "*Page %d*", &n); err != nil {
			continue
		}
		texts[workdir.PageImageFile(n)] = strings.TrimSpace(text)
	}
	return texts
}

func (e *Engine) processChapter(ctx context.Context, category workdir.Category, pages []int, display map[int]string, pageTexts map[string]string) error {
	text, _, err := e.dir.Read(workdir.CitedChapterFile(category))
	if err != nil {
		return err
	}

	scoped := e.scopePages(category, pages)
	e.logger.Info("analyzing chapter for figures", "category", category, "candidates", len(scoped))

	refs := e.analyze(ctx, category, text, scoped, pageTexts)
	if len(refs) == 0 {
		e.logger.Warn("no figure references identified", "category", category)
		return e.dir.Write(workdir.FiguresChapterFile(category), text)
	}

	updated := e.rewrite(category, text, refs, display)
	return e.dir.Write(workdir.FiguresChapterFile(category), updated)
}

// scopePages narrows candidate figures to the pages the chapter's section
// was built from. When the section gives no page numbers, every page is
// offered.
func (e *Engine) scopePages(category workdir.Category, pages []int) []int {
	section, ok, err := e.dir.ReadSection(category)
	if err != nil || !ok {
		return pages
	}
	member := make(map[int]bool)
	for _, n := range workdir.SectionPageNumbers(section) {
		member[n] = true
	}
	if len(member) == 0 {
		return pages
	}
	var scoped []int
	for _, n := range pages {
		if member[n] {
			scoped = append(scoped, n)
		}
	}
	if len(scoped) == 0 {
		return pages
	}
	return scoped
}

// analyze asks the provider which sentences should reference which figure.
// Parsing degrades through the full repair ladder down to an empty list;
// this path never errors.
func (e *Engine) analyze(ctx context.Context, category workdir.Category, text string, pages []int, pageTexts map[string]string) []figureRef {
	var contextB strings.Builder
	for _, n := range pages {
		name := workdir.PageImageFile(n)
		fmt.Fprintf(&contextB, "Figure %s:\n%s\n\n", name, pageTexts[name])
	}

	prompt := fmt.Sprintf(analysisPromptTemplate, contextB.String()) + "\n\nChapter text to analyze:\n" + text
	response, err := e.provider.Generate(ctx, prompt, nil)
	if err != nil {
		e.logger.Warn("figure analysis call failed", "category", category, "error", err)
		return nil
	}

	var result figureAnalysis
	if err := llmjson.DecodeLenient(response, analysisSchema, &result); err == nil {
		return result.References
	}

	// Last rung: pull just the array out of the malformed payload.
	if raw, ok := llmjson.Array(response, "figure_references"); ok {
		var refs []figureRef
		if err := json.Unmarshal(raw, &refs); err == nil {
			e.logger.Info("recovered figure references from malformed response", "category", category)
			return refs
		}
	}
	e.logger.Warn("failed to parse figure analysis, continuing without figures", "category", category)
	return nil
}

// rewrite performs the two-pass update: pass 1 annotates sentences inside
// their owning paragraph and queues one embed block per distinct filename;
// pass 2 reassembles paragraphs with embeds placed after their owners.
func (e *Engine) rewrite(category workdir.Category, text string, refs []figureRef, display map[int]string) string {
	paragraphs := splitParagraphs(text)
	embeds := make(map[int][]string)
	embedded := make(map[string]bool)

	for i := range paragraphs {
		for _, ref := range refs {
			sentence := strings.TrimSpace(ref.Sentence)
			if sentence == "" || !strings.Contains(paragraphs[i], sentence) {
				continue
			}

			pageNum, ok := workdir.PageImageNumber(ref.Filename)
			if !ok {
				e.logger.Warn("analysis referenced unknown figure", "category", category, "filename", ref.Filename)
				continue
			}
			embedFile, ok := display[pageNum]
			if !ok {
				e.logger.Warn("analysis referenced missing page image", "category", category, "filename", ref.Filename)
				continue
			}

			id := e.registry.ID(category.Stem(), ref.Filename)

			// A sentence that already carries a figure marker is final.
			if !strings.Contains(sentence, "@fig:") {
				paragraphs[i] = annotateSentence(paragraphs[i], sentence, id)
			}

			if !embedded[ref.Filename] {
				embedded[ref.Filename] = true
				embeds[i] = append(embeds[i], fmt.Sprintf("\n\n![%s](%s){#fig:%s}\n", ref.Legend, embedFile, id))
			}
		}
	}

	var b strings.Builder
	for i, paragraph := range paragraphs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(paragraph)
		for _, embed := range embeds[i] {
			b.WriteString(embed)
		}
	}
	return b.String()
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		paragraphs = append(paragraphs, strings.Trim(p, "\n"))
	}
	return paragraphs
}

// annotateSentence splices " (@fig:id)" into the first occurrence of the
// sentence, before trailing terminal punctuation when present. Exact
// substring matching keeps embedded math spans intact.
func annotateSentence(paragraph, sentence, id string) string {
	start := strings.Index(paragraph, sentence)
	if start < 0 {
		return paragraph
	}
	end := start + len(sentence)

	marker := fmt.Sprintf(" (@fig:%s)", id)
	last := sentence[len(sentence)-1]
	var annotated string
	if last == '.' || last == '!' || last == '?' {
		annotated = sentence[:len(sentence)-1] + marker + string(last)
	} else {
		annotated = sentence + marker
	}
	return paragraph[:start] + annotated + paragraph[end:]
}
