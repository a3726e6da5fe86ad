// Package pipeline orchestrates the full slide-to-thesis run: extraction,
// classification, chapter generation, citation injection, figure injection,
// metadata synthesis and compilation. Stages run strictly in order; each
// stage's worker pool drains before the next stage starts, and every stage
// reads and writes the shared working directory so any prefix of the
// pipeline can be re-run from its artifacts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ycwu/slide2thesis/internal/chapters"
	"github.com/ycwu/slide2thesis/internal/citations"
	"github.com/ycwu/slide2thesis/internal/classify"
	"github.com/ycwu/slide2thesis/internal/compile"
	"github.com/ycwu/slide2thesis/internal/config"
	"github.com/ycwu/slide2thesis/internal/extract"
	"github.com/ycwu/slide2thesis/internal/figures"
	"github.com/ycwu/slide2thesis/internal/metadata"
	"github.com/ycwu/slide2thesis/internal/providers"
	"github.com/ycwu/slide2thesis/internal/pubmed"
	"github.com/ycwu/slide2thesis/internal/workdir"
)

// Stage names, in execution order.
const (
	StageExtract  = "extract"
	StageClassify = "classify"
	StageChapters = "chapters"
	StageCite     = "cite"
	StageFigures  = "figures"
	StageMetadata = "metadata"
	StageCompile  = "compile"
)

// Stages lists all stages in canonical order.
var Stages = []string{
	StageExtract, StageClassify, StageChapters, StageCite,
	StageFigures, StageMetadata, StageCompile,
}

// Pipeline wires the stages together over one working directory.
type Pipeline struct {
	cfg      *config.Config
	dir      workdir.Dir
	provider providers.Provider
	pubmed   *pubmed.Client
	logger   *slog.Logger
}

// New builds a Pipeline from configuration. The provider is selected once
// here; stages only see the capability interface.
func New(cfg *config.Config, dir workdir.Dir, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", uuid.NewString())

	provider, err := providers.New(providers.Options{
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		GeminiAPIKey: cfg.ResolveAPIKey("gemini"),
		OpenAIAPIKey: cfg.ResolveAPIKey("openai"),
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("selected provider", "provider", provider.Name(), "model", provider.Model())

	return &Pipeline{
		cfg:      cfg,
		dir:      dir,
		provider: provider,
		pubmed:   pubmed.NewClient(cfg.ResolvePubMedEmail()),
		logger:   logger,
	}, nil
}

// Provider exposes the selected content provider.
func (p *Pipeline) Provider() providers.Provider { return p.provider }

// RunAll executes every stage in order. The first stage error aborts the
// run; artifacts produced so far stay on disk so the run can be resumed from
// the failed stage.
func (p *Pipeline) RunAll(ctx context.Context, pdfPath, outputPDF string) error {
	for _, stage := range Stages {
		if err := p.RunStage(ctx, stage, pdfPath, outputPDF); err != nil {
			return fmt.Errorf("stage %s failed: %w", stage, err)
		}
	}
	return nil
}

// RunStage executes a single named stage.
func (p *Pipeline) RunStage(ctx context.Context, stage, pdfPath, outputPDF string) error {
	start := time.Now()
	p.logger.Info("stage starting", "stage", stage)

	var err error
	switch stage {
	case StageExtract:
		err = extract.New(p.provider, p.dir, p.logger).Run(ctx, pdfPath)
	case StageClassify:
		err = classify.New(p.provider, p.dir, p.logger).Run(ctx)
	case StageChapters:
		err = chapters.New(p.provider, p.dir, p.cfg.Workers, p.logger).Run(ctx)
	case StageCite:
		err = citations.New(p.provider, p.pubmed, p.dir, p.cfg.Workers, p.cfg.MaxResultsPerQuery, p.logger).Run(ctx)
	case StageFigures:
		err = figures.New(p.provider, p.dir, p.cfg.Workers, p.cfg.CropTopPixels, p.logger).Run(ctx)
	case StageMetadata:
		err = metadata.New(p.provider, p.dir, p.logger).Run(ctx)
	case StageCompile:
		err = compile.New(p.dir, p.logger).Run(ctx, outputPDF)
	default:
		return fmt.Errorf("unknown stage: %s", stage)
	}

	if err != nil {
		p.logger.Error("stage failed", "stage", stage, "elapsed", time.Since(start), "error", err)
		return err
	}
	p.logger.Info("stage complete", "stage", stage, "elapsed", time.Since(start))
	return nil
}
