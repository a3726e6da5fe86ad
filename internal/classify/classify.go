// Package classify groups extracted page texts into ordered thesis sections.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ycwu/slide2thesis/internal/providers"
	"github.com/ycwu/slide2thesis/internal/workdir"
)

// ErrNoExtractedText indicates the extraction artifact is missing or empty.
var ErrNoExtractedText = errors.New("no extracted text to classify")

// ErrNoClassification indicates the provider returned no usable response.
// Classification is a single call over all pages; there is no partial retry,
// so this propagates as a hard stage failure.
var ErrNoClassification = errors.New("no classification result received")

const classificationPrompt = `You are an expert in categorizing content from academic presentations. Analyze these pages and classify each page number into one of these categories: Introduction, Related Works, Methods, Results, Conclusions, Appendix, and Unrelated.

Return ONLY the page numbers for each category in this format:
Introduction: [page numbers]
Related Works: [page numbers]
Methods: [page numbers]
Results: [page numbers]
Conclusions: [page numbers]
Appendix: [page numbers]
Unrelated: [page numbers]

Consider:
1. Pages of the same category typically have continuous page numbers. The classification is like partitioning the pages into categories.
2. Each page must be classified into exactly one category.
3. If uncertain, classify with adjacent pages' category (e.g., if the page is between two Methods pages, classify it as Methods).
4. Only clearly unrelated pages (e.g., a thank-you slide) go in Unrelated; pages in the middle of the deck must not be classified as Unrelated.

Pages to analyze:
`

var intRe = regexp.MustCompile(`\d+`)

// Classifier assigns pages to thesis sections via a single structured
// classification call.
type Classifier struct {
	provider providers.Provider
	dir      workdir.Dir
	logger   *slog.Logger
}

// New creates a Classifier.
func New(provider providers.Provider, dir workdir.Dir, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{provider: provider, dir: dir, logger: logger.With("stage", "classify")}
}

// Run classifies all extracted pages and writes one section file per
// non-empty category. Page numbers mentioned by the classifier but absent
// from the extracted data are logged and skipped. The "Unrelated" bucket is
// discarded.
func (c *Classifier) Run(ctx context.Context) error {
	content, ok, err := c.dir.Read(workdir.ExtractedTextFile)
	if err != nil {
		return err
	}
	if !ok || strings.TrimSpace(content) == "" {
		return ErrNoExtractedText
	}

	data := workdir.ParseExtractedText(content)
	if len(data) == 0 {
		return ErrNoExtractedText
	}

	response, err := c.provider.Generate(ctx, buildPrompt(data), nil)
	if err != nil || strings.TrimSpace(response) == "" {
		c.logger.Error("classification call failed", "error", err)
		return ErrNoClassification
	}
	c.logger.Debug("classification result", "response", response)

	written := 0
	for _, category := range workdir.Categories {
		pages := targetPages(response, category)
		section := c.buildSection(category, pages, data)
		if section == "" {
			continue
		}
		if err := c.dir.Write(workdir.SectionFile(category), section); err != nil {
			return err
		}
		c.logger.Info("wrote section", "category", category, "pages", len(pages))
		written++
	}

	if written == 0 {
		return fmt.Errorf("classification produced no sections")
	}
	return nil
}

// buildPrompt enumerates every page with its extracted text.
func buildPrompt(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return pageKeyNum(keys[i]) < pageKeyNum(keys[j]) })

	var b strings.Builder
	b.WriteString(classificationPrompt)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s:\n%s\n", k, data[k])
	}
	return b.String()
}

func pageKeyNum(key string) int {
	m := intRe.FindString(key)
	n, _ := strconv.Atoi(m)
	return n
}

// targetPages extracts the page numbers listed for a category. Lines are
// matched by case-insensitive category prefix; every integer on a matching
// line is taken regardless of separator.
func targetPages(response string, category workdir.Category) []int {
	var pages []int
	prefix := strings.ToLower(string(category))
	for _, line := range strings.Split(response, "\n") {
		if !strings.HasPrefix(strings.ToLower(line), prefix) {
			continue
		}
		for _, m := range intRe.FindAllString(line, -1) {
			n, err := strconv.Atoi(m)
			if err != nil {
				continue
			}
			pages = append(pages, n)
		}
	}
	sort.Ints(pages)
	return pages
}

// buildSection concatenates the category's pages in ascending order under
// "Page N:" headers. Returns "" when no listed page resolves.
func (c *Classifier) buildSection(category workdir.Category, pages []int, data map[string]string) string {
	var entries []string
	for _, n := range pages {
		text, ok := workdir.PageText(data, n)
		if !ok {
			c.logger.Warn("page not found in extracted data", "category", category, "page", n)
			continue
		}
		entries = append(entries, fmt.Sprintf("Page %d:\n%s\n", n, text))
	}
	return strings.Join(entries, "\n\n")
}
