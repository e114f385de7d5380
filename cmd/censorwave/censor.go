package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"censorwave/internal/config"
	"censorwave/internal/logging"
	"censorwave/internal/pipeline"
	"censorwave/internal/render"
	"censorwave/internal/timeline"
)

func newCensorCommand(ctx *commandContext) *cobra.Command {
	var terms termFlags
	var modeFlag string
	var output string
	var chunks int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "censor <file>",
		Short: "Censor flagged words in a song",
		Long: "Transcribe the song, separate its stems, and rebuild every flagged range\n" +
			"with the selected mode. Modes: " + modeList() + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(func(runner *pipeline.Runner, cfg *config.Config, logger *slog.Logger) error {
				req, err := buildRequest(cfg, logger, args[0], modeFlag, output, &terms)
				if err != nil {
					return err
				}
				res, err := runner.RunChunked(cmd.Context(), req, chunks)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, res)
				}
				printResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}

	terms.register(cmd)
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Render mode or alias (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default <name>-censored<ext>)")
	cmd.Flags().IntVar(&chunks, "chunks", 1, "Split the song into N chunks processed in sequence")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	return cmd
}

func buildRequest(cfg *config.Config, logger *slog.Logger, source, modeFlag, output string, terms *termFlags) (pipeline.Request, error) {
	flagged, severe, err := terms.resolve(cfg)
	if err != nil {
		return pipeline.Request{}, err
	}
	if len(flagged) == 0 && len(severe) == 0 {
		logging.WarnWithContext(logger, "no terms to match", "terms_empty",
			logging.String(logging.FieldErrorHint, "pass --terms or --word, or set terms.flagged_path"),
			logging.String(logging.FieldImpact, "the song is copied unchanged"))
	}
	req := pipeline.Request{
		Source:       source,
		Output:       strings.TrimSpace(output),
		FlaggedTerms: flagged,
		SevereTerms:  severe,
	}
	if strings.TrimSpace(modeFlag) != "" {
		mode, err := render.ParseMode(modeFlag)
		if err != nil {
			return pipeline.Request{}, err
		}
		req.Mode = mode
	}
	return req, nil
}

func printResult(out io.Writer, res pipeline.Result) {
	fmt.Fprintf(out, "Source:  %s\n", res.Source)
	fmt.Fprintf(out, "Output:  %s\n", res.Output)
	fmt.Fprintf(out, "Mode:    %s\n", res.Mode)
	if res.Copied {
		fmt.Fprintln(out, "No flagged words found; source copied unchanged")
	} else {
		fmt.Fprintf(out, "Ranges:  %d flagged, %d severe\n",
			res.Plan.Count(timeline.KindFlagged), res.Plan.Count(timeline.KindSevere))
	}
	if res.Chunks > 1 {
		fmt.Fprintf(out, "Chunks:  %d\n", res.Chunks)
	}
	fmt.Fprintf(out, "Elapsed: %s\n", res.Elapsed.Round(10*time.Millisecond))
}

func modeList() string {
	modes := render.Modes()
	parts := make([]string, 0, len(modes))
	for _, m := range modes {
		parts = append(parts, fmt.Sprintf("%s (%s)", m, m.Alias()))
	}
	return strings.Join(parts, ", ")
}
