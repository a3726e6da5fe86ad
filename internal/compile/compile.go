// Package compile assembles the final thesis document. It selects the most
// processed variant of every chapter, then shells out to pandoc for TeX
// generation and tectonic for the PDF.
package compile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/ycwu/slide2thesis/internal/workdir"
)

// ErrNoChapterFiles indicates no chapter variant exists for any category.
var ErrNoChapterFiles = errors.New("no chapter files found")

// Compiler drives the external typesetting toolchain.
type Compiler struct {
	dir    workdir.Dir
	logger *slog.Logger
}

// New creates a Compiler.
func New(dir workdir.Dir, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{dir: dir, logger: logger.With("stage", "compile")}
}

// SelectChapterFiles returns the chapter files to compile, in canonical
// chapter order, each resolved to its most processed variant. Categories
// with no chapter at all are omitted.
func (c *Compiler) SelectChapterFiles() ([]string, error) {
	var files []string
	for _, category := range workdir.Categories {
		if path, ok := c.dir.ResolveChapter(category); ok {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil, ErrNoChapterFiles
	}
	return files, nil
}

// Run compiles the selected chapters plus metadata and bibliography into
// outputPDF. A non-zero exit from either tool is a hard failure carrying the
// tool's captured output.
func (c *Compiler) Run(ctx context.Context, outputPDF string) error {
	files, err := c.SelectChapterFiles()
	if err != nil {
		return err
	}
	c.logger.Info("compiling thesis", "chapters", len(files), "output", outputPDF)

	outputTex := strings.TrimSuffix(outputPDF, ".pdf") + ".tex"
	args := []string{
		"--metadata-file=" + c.dir.Path(workdir.MetadataFile),
		"-s",
		"--natbib",
		"--resource-path=" + c.dir.Root(),
		"--bibliography=" + c.dir.Path(workdir.BibliographyFile),
		"--filter", "pandoc-crossref",
		"-o", outputTex,
	}
	args = append(args, files...)

	c.logger.Info("running pandoc")
	if err := c.runTool(ctx, "pandoc", args...); err != nil {
		return err
	}

	c.logger.Info("running tectonic")
	if err := c.runTool(ctx, "tectonic", outputTex); err != nil {
		return err
	}

	c.logger.Info("thesis compiled", "output", outputPDF)
	return nil
}

func (c *Compiler) runTool(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
