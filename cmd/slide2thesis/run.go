package main

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <pdf>",
	Short: "Run the full pipeline on a slide deck",
	Long: `Run all pipeline stages in order on the given PDF.

Artifacts are written to the working directory as each stage completes. If a
stage fails, everything produced so far is kept and the run can be resumed by
invoking the failed stage's subcommand directly.

Examples:
  slide2thesis run talk.pdf
  slide2thesis run talk.pdf --workdir ./out --model gemini-2.0-flash`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, dir, err := newPipeline(args[0])
		if err != nil {
			return err
		}
		return p.RunAll(cmd.Context(), args[0], dir.Path("thesis.pdf"))
	},
}
