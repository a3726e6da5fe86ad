// Package extract renders slide deck pages to images and runs per-page
// vision extraction, producing page_{N}.jpg files and extracted_text.txt.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/ycwu/slide2thesis/internal/providers"
	"github.com/ycwu/slide2thesis/internal/workdir"
)

const renderDPI = 300

const extractionPrompt = `Analyze this slide from a presentation of a master thesis. Write a detailed description that completely captures the slide's content.

1. If there are visualizations (figures, charts, graphs, diagrams), explain them like a figure legend and summarize their key messages.
2. If there are equations, explain them first and convert them into markdown format after the paragraph.
3. If there are tables, explain them first like a table legend and convert them into markdown format after the paragraph.
4. Extract the title, author name, and advisor name if clearly visible. Otherwise, don't output anything for them.
5. Ignore the slide number and other irrelevant information.
6. Write in markdown format.
7. Summarize the key messages of the slide at the end.`

const previousContextPrompt = `

**Previous slide context:**

%s

Consider this context from the previous slide when describing the current slide. If the slide is unrelated to the previous context (e.g., a new topic or section), ignore it and describe the current slide on its own.`

// Extractor converts a PDF deck into per-page images and extracted text.
type Extractor struct {
	provider providers.Provider
	dir      workdir.Dir
	logger   *slog.Logger
}

// New creates an Extractor.
func New(provider providers.Provider, dir workdir.Dir, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{provider: provider, dir: dir, logger: logger.With("stage", "extract")}
}

// Run renders every page of the PDF into the working directory and extracts
// its text via the vision provider, chaining each page's extraction with the
// previous page's text for context. Pages whose extraction fails are
// recorded with a failure marker rather than aborting the run; the stage
// fails only when the PDF yields no pages at all.
func (e *Extractor) Run(ctx context.Context, pdfPath string) error {
	if _, err := os.Stat(pdfPath); err != nil {
		return fmt.Errorf("PDF not found: %s", pdfPath)
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return fmt.Errorf("no pages found in %s", pdfPath)
	}

	e.logger.Info("rendering pages", "pdf", filepath.Base(pdfPath), "pages", pageCount)
	if err := e.renderAll(pdfPath, pageCount); err != nil {
		return err
	}

	// Extraction is sequential: each prompt carries the previous page's
	// text so the description follows the deck's narrative.
	pages := make(map[int]string, pageCount)
	previous := ""
	for n := 1; n <= pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.logger.Info("extracting page", "page", n, "total", pageCount)

		image, err := os.ReadFile(e.dir.Path(workdir.PageImageFile(n)))
		if err != nil {
			return fmt.Errorf("failed to read page image %d: %w", n, err)
		}

		prompt := extractionPrompt
		if previous != "" {
			prompt += fmt.Sprintf(previousContextPrompt, previous)
		}

		text, err := e.provider.Generate(ctx, prompt, image)
		if err != nil {
			e.logger.Warn("page extraction failed", "page", n, "error", err)
			pages[n] = "Text extraction failed."
			continue
		}
		pages[n] = text
		previous = text
	}

	if err := e.dir.Write(workdir.ExtractedTextFile, workdir.FormatExtractedText(pages)); err != nil {
		return err
	}
	e.logger.Info("extraction complete", "pages", len(pages))
	return nil
}

// renderAll renders pages concurrently with pdftoppm, bounded by CPU count.
func (e *Extractor) renderAll(pdfPath string, pageCount int) error {
	type result struct {
		page int
		err  error
	}

	sem := make(chan struct{}, runtime.NumCPU())
	results := make(chan result, pageCount)

	for page := 1; page <= pageCount; page++ {
		sem <- struct{}{}
		go func(page int) {
			defer func() { <-sem }()
			results <- result{page: page, err: e.renderPage(pdfPath, page)}
		}(page)
	}

	for i := 0; i < pageCount; i++ {
		r := <-results
		if r.err != nil {
			return fmt.Errorf("failed to render page %d: %w", r.page, r.err)
		}
	}
	return nil
}

// renderPage renders a single page to page_{N}.jpg using pdftoppm.
func (e *Extractor) renderPage(pdfPath string, page int) error {
	tmpDir, err := os.MkdirTemp("", "slide2thesis-page-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.Command("pdftoppm",
		"-jpeg", "-jpegopt", "quality=95",
		"-r", strconv.Itoa(renderDPI),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		pdfPath, prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pdftoppm failed: %w: %s", err, out)
	}

	src := prefix + ".jpg"
	dst := e.dir.Path(workdir.PageImageFile(page))
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read rendered page: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write page image: %w", err)
	}
	return nil
}
