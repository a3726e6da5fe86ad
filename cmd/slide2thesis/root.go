package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ycwu/slide2thesis/internal/config"
	"github.com/ycwu/slide2thesis/internal/pipeline"
	"github.com/ycwu/slide2thesis/internal/workdir"
	"github.com/ycwu/slide2thesis/version"
)

var (
	cfgFile   string
	workDir   string
	modelFlag string
	provider  string
	verbose   bool

	cfgManager *config.Manager
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "slide2thesis",
	Short: "Thesis generation pipeline from academic slide decks",
	Long: `slide2thesis converts an academic slide deck (PDF) into a formatted
thesis document through a multi-stage pipeline:

  - Per-page vision extraction with slide context chaining
  - Page classification into thesis sections
  - Chapter drafting, expansion and polishing
  - PubMed citation lookup with BibTeX export
  - Figure reference injection with stable identifiers
  - Metadata synthesis (abstracts, acknowledgements)
  - Compilation via pandoc and tectonic

Every stage checkpoints its artifacts in a working directory, so any
stage can be re-run without repeating the earlier ones.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.slide2thesis/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&workDir, "workdir", "w", "", "working directory (default: <pdf name>_debug next to the PDF)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&modelFlag, "model", "m", "", "model identifier (overrides config)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&provider, "provider", "p", "", "content provider: gemini, openai or auto (overrides config)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// .env is optional; environment wins when both are set.
		_ = godotenv.Load()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfgManager, err = config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		return nil
	}

	rootCmd.AddCommand(
		runCmd,
		extractCmd,
		classifyCmd,
		chaptersCmd,
		citeCmd,
		figuresCmd,
		metadataCmd,
		compileCmd,
		versionCmd,
	)
}

// activeConfig returns the loaded config with CLI flag overrides applied.
func activeConfig() *config.Config {
	cfg := cfgManager.Get()
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if provider != "" {
		cfg.Provider = provider
	}
	return cfg
}

// resolveWorkdir opens the working directory for a PDF, defaulting to
// "<pdf name>_debug" alongside it.
func resolveWorkdir(pdfPath string) (workdir.Dir, error) {
	path := workDir
	if path == "" {
		base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
		path = filepath.Join(filepath.Dir(pdfPath), base+"_debug")
	}
	return workdir.New(path)
}

// newPipeline builds the pipeline for one invocation.
func newPipeline(pdfPath string) (*pipeline.Pipeline, workdir.Dir, error) {
	dir, err := resolveWorkdir(pdfPath)
	if err != nil {
		return nil, workdir.Dir{}, err
	}
	p, err := pipeline.New(activeConfig(), dir, logger)
	if err != nil {
		return nil, workdir.Dir{}, err
	}
	return p, dir, nil
}

// stageCommand builds a subcommand that runs a single pipeline stage over an
// existing working directory.
func stageCommand(use, short, stage string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <pdf>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, dir, err := newPipeline(args[0])
			if err != nil {
				return err
			}
			output := dir.Path("thesis.pdf")
			if err := p.RunStage(cmd.Context(), stage, args[0], output); err != nil {
				return fmt.Errorf("stage %s failed: %w", stage, err)
			}
			return nil
		},
	}
}
