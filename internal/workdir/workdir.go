// Package workdir owns the on-disk artifact contract shared by every
// pipeline stage. The working directory doubles as the checkpoint and the
// inter-stage channel: each stage reads the most processed variant of an
// artifact that exists and writes its own outputs under deterministic names,
// so any stage can be re-run without re-running earlier ones.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Category is a thesis chapter category. The string form may contain spaces
// ("related works"); file names use the underscore stem.
type Category string

const (
	Introduction Category = "introduction"
	RelatedWorks Category = "related works"
	Methods      Category = "methods"
	Results      Category = "results"
	Conclusions  Category = "conclusions"
	Appendix     Category = "appendix"
)

// Categories is the canonical chapter order used for classification,
// generation and final document assembly.
var Categories = []Category{Introduction, RelatedWorks, Methods, Results, Conclusions, Appendix}

// Stem returns the file-name stem for the category, e.g. "related_works".
func (c Category) Stem() string {
	return strings.ReplaceAll(strings.ToLower(string(c)), " ", "_")
}

// Artifact file names. These are a bit-exact contract across stages.
const (
	ExtractedTextFile = "extracted_text.txt"
	MetadataFile      = "thesis_metadata.yaml"
	BibliographyFile  = "references.bib"
)

// SectionFile returns the section artifact name, e.g. "methods_section.txt".
func SectionFile(c Category) string { return c.Stem() + "_section.txt" }

// ChapterFile returns the plain chapter artifact name.
func ChapterFile(c Category) string { return c.Stem() + "_chapter.md" }

// CitedChapterFile returns the citation-pass artifact name.
func CitedChapterFile(c Category) string { return c.Stem() + "_chapter_cited.md" }

// FiguresChapterFile returns the figure-pass artifact name.
func FiguresChapterFile(c Category) string { return c.Stem() + "_chapter_with_figures.md" }

// PageImageFile returns the rendered page image name for a 1-based page number.
func PageImageFile(n int) string { return fmt.Sprintf("page_%d.jpg", n) }

// CroppedPageImageFile returns the cropped page image name.
func CroppedPageImageFile(n int) string { return fmt.Sprintf("page_%d_cropped.jpg", n) }

// Dir is a handle on the working directory for one run.
type Dir struct {
	path string
}

// New returns a Dir rooted at path. The directory is created if missing.
func New(path string) (Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Dir{}, fmt.Errorf("failed to create working directory: %w", err)
	}
	return Dir{path: path}, nil
}

// Root returns the working directory path.
func (d Dir) Root() string { return d.path }

// Path joins an artifact name onto the working directory.
func (d Dir) Path(name string) string { return filepath.Join(d.path, name) }

// Exists reports whether the named artifact exists.
func (d Dir) Exists(name string) bool {
	_, err := os.Stat(d.Path(name))
	return err == nil
}

// Read returns the named artifact's content. ok is false when it is absent.
func (d Dir) Read(name string) (content string, ok bool, err error) {
	b, err := os.ReadFile(d.Path(name))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(b), true, nil
}

// Write persists an artifact. Artifacts are append-only per distinct name per
// run; callers derive names from their per-unit key so no two workers ever
// write the same file concurrently.
func (d Dir) Write(name, content string) error {
	if err := os.WriteFile(d.Path(name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// ReadSection returns the section text for a category. ok is false when the
// section file is absent or contains only whitespace, which downstream stages
// treat as "category had zero pages".
func (d Dir) ReadSection(c Category) (content string, ok bool, err error) {
	content, ok, err = d.Read(SectionFile(c))
	if err != nil || !ok {
		return "", ok, err
	}
	if strings.TrimSpace(content) == "" {
		return "", false, nil
	}
	return content, true, nil
}

// ResolveChapter returns the most processed chapter variant available for a
// category, preferring with_figures over cited over plain. This single lookup
// is shared by the compiler, the metadata synthesizer and every other reader
// of chapter content so the fallback rule cannot drift between call sites.
func (d Dir) ResolveChapter(c Category) (path string, ok bool) {
	for _, name := range []string{FiguresChapterFile(c), CitedChapterFile(c), ChapterFile(c)} {
		p := d.Path(name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// ReadChapter reads the most processed chapter variant for a category.
func (d Dir) ReadChapter(c Category) (content string, ok bool, err error) {
	path, ok := d.ResolveChapter(c)
	if !ok {
		return "", false, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to read chapter %s: %w", path, err)
	}
	return string(b), true, nil
}
