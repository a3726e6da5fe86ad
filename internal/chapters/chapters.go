// Package chapters turns classified section texts into polished thesis
// chapters. Each category goes through a draft pass, an optional expansion
// pass for content-heavy chapters, and a polish pass before the chapter is
// written out.
package chapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/ycwu/slide2thesis/internal/jobs"
	"github.com/ycwu/slide2thesis/internal/mathfmt"
	"github.com/ycwu/slide2thesis/internal/providers"
	"github.com/ycwu/slide2thesis/internal/workdir"
)

// ErrNoChapters indicates no category produced a chapter.
var ErrNoChapters = errors.New("no chapters generated")

// expandCategories get a second pass that folds any dropped source detail
// back into the draft. Only the dense chapters need it.
var expandCategories = map[workdir.Category]bool{
	workdir.Methods: true,
	workdir.Results: true,
}

// Generator writes one markdown chapter per classified section.
type Generator struct {
	provider providers.Provider
	dir      workdir.Dir
	workers  int
	logger   *slog.Logger
}

// New creates a Generator. workers bounds concurrent chapter generation.
func New(provider providers.Provider, dir workdir.Dir, workers int, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		provider: provider,
		dir:      dir,
		workers:  workers,
		logger:   logger.With("stage", "chapters"),
	}
}

// Run generates chapters for every category that has a non-empty section
// file. Categories without a section are skipped, not failed; a category
// whose generation errors is logged and skipped so its siblings still
// complete. The stage fails only when zero chapters come out.
func (g *Generator) Run(ctx context.Context) error {
	var written atomic.Int64

	var tasks []jobs.Task
	for _, category := range workdir.Categories {
		category := category
		section, ok, err := g.dir.ReadSection(category)
		if err != nil {
			return err
		}
		if !ok {
			g.logger.Info("no section content, skipping", "category", category)
			continue
		}
		tasks = append(tasks, jobs.Task{
			Name: category.Stem(),
			Run: func(ctx context.Context) error {
				if err := g.generate(ctx, category, section); err != nil {
					return err
				}
				written.Add(1)
				return nil
			},
		})
	}

	pool := jobs.NewPool(g.workers, g.logger)
	pool.Run(ctx, tasks)

	if written.Load() == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrNoChapters
	}
	return nil
}

// generate runs the draft/expand/polish passes for one category and writes
// the chapter file.
func (g *Generator) generate(ctx context.Context, category workdir.Category, section string) error {
	g.logger.Info("drafting chapter", "category", category)
	draft, err := g.provider.Generate(ctx, draftPrompt(category, section), nil)
	if err != nil {
		return fmt.Errorf("draft failed for %s: %w", category, err)
	}
	if strings.TrimSpace(draft) == "" {
		return fmt.Errorf("empty draft for %s", category)
	}

	text := draft
	if expandCategories[category] {
		g.logger.Info("expanding chapter", "category", category)
		expanded, err := g.provider.Generate(ctx, expandPrompt(section, text), nil)
		if err != nil {
			return fmt.Errorf("expansion failed for %s: %w", category, err)
		}
		if strings.TrimSpace(expanded) != "" {
			text = expanded
		}
	}

	g.logger.Info("polishing chapter", "category", category)
	polished, err := g.provider.Generate(ctx, polishPrompt(text), nil)
	if err != nil {
		return fmt.Errorf("polish failed for %s: %w", category, err)
	}
	if strings.TrimSpace(polished) != "" {
		text = polished
	}
	text = stripFences(text)

	// Math normalization is best effort. The unformatted text is still a
	// valid chapter, so a panic here must not take the chapter down.
	text = safeFormat(g.logger, category, text)

	if err := g.dir.Write(workdir.ChapterFile(category), text); err != nil {
		return err
	}
	g.logger.Info("wrote chapter", "category", category)
	return nil
}

func safeFormat(logger *slog.Logger, category workdir.Category, text string) (out string) {
	out = text
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("math formatting failed, keeping unformatted text", "category", category, "panic", r)
		}
	}()
	return mathfmt.Format(text)
}
