package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"censorwave/internal/config"
	"censorwave/internal/pipeline"
	"censorwave/internal/render"
	"censorwave/internal/report"
	"censorwave/internal/timeline"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var terms termFlags
	var modeFlag string
	var xlsxPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Show the ranges a censor run would rebuild",
		Long:  "Transcribe the song and print the merged render plan without separating or writing audio.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(func(runner *pipeline.Runner, cfg *config.Config, logger *slog.Logger) error {
				req, err := buildRequest(cfg, logger, args[0], modeFlag, "", &terms)
				if err != nil {
					return err
				}
				mode, err := effectiveMode(cfg, req.Mode)
				if err != nil {
					return err
				}
				req.Mode = mode

				plan, err := runner.Plan(cmd.Context(), req)
				if err != nil {
					return err
				}
				if xlsxPath != "" {
					if err := report.WritePlan(xlsxPath, req.Source, string(mode), plan); err != nil {
						return err
					}
				}
				if jsonOutput {
					return writeJSON(cmd, plan)
				}

				out := cmd.OutOrStdout()
				if plan.Empty() {
					fmt.Fprintln(out, "No flagged words found")
				} else {
					fmt.Fprintln(out, renderTable(planHeaders, planRows(plan), planAligns))
				}
				if xlsxPath != "" {
					fmt.Fprintf(out, "Wrote plan workbook to %s\n", xlsxPath)
				}
				return nil
			})
		},
	}

	terms.register(cmd)
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Render mode or alias (default from config)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the plan to an Excel workbook")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the plan as JSON")
	return cmd
}

var (
	planHeaders = []string{"#", "Kind", "Strategy", "Start", "End", "Duration (ms)"}
	planAligns  = []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight}
)

func planRows(plan timeline.Plan) [][]string {
	rows := make([][]string, 0, len(plan.Entries))
	for i, e := range plan.Entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(e.Range.Kind),
			string(e.Strategy),
			report.Timestamp(e.Range.StartMS),
			report.Timestamp(e.Range.EndMS),
			strconv.FormatInt(e.Range.DurationMS(), 10),
		})
	}
	return rows
}

func effectiveMode(cfg *config.Config, mode render.Mode) (render.Mode, error) {
	if mode != "" {
		return mode, nil
	}
	return render.ParseMode(cfg.Render.Mode)
}
