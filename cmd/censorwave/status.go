package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"censorwave/internal/config"
	"censorwave/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check external tools, directories, and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string
			problems := 0

			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			if ctx.configExists {
				lines = append(lines, renderStatusLine("Config", statusOK, ctx.configPath, colorize))
			} else {
				lines = append(lines, renderStatusLine("Config", statusInfo, "defaults (no file at "+ctx.configPath+")", colorize))
			}
			lines = append(lines, renderStatusLine("Default mode", statusInfo, cfg.Render.Mode, colorize))
			lines = append(lines, renderStatusLine("Transcription", statusInfo, transcriberLabel(cfg), colorize))
			if cfg.History.Enabled {
				lines = append(lines, renderStatusLine("History", statusInfo, cfg.History.Path, colorize))
			} else {
				lines = append(lines, renderStatusLine("History", statusInfo, "disabled", colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			for _, st := range preflight.CheckSystemDeps(cfg) {
				switch {
				case st.Available:
					lines = append(lines, renderStatusLine(st.Name, statusOK, st.Path, colorize))
				case st.Optional:
					lines = append(lines, renderStatusLine(st.Name, statusWarn, optionalDetail(st.Detail, st.Description), colorize))
				default:
					problems++
					lines = append(lines, renderStatusLine(st.Name, statusError, st.Detail, colorize))
				}
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Directories", colorize)...)
			for _, res := range preflight.RunAll(cfg) {
				if res.Passed {
					lines = append(lines, renderStatusLine(res.Name, statusOK, res.Detail, colorize))
					continue
				}
				problems++
				lines = append(lines, renderStatusLine(res.Name, statusError, res.Detail, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if problems > 0 {
				return fmt.Errorf("%d status check(s) failed", problems)
			}
			return nil
		},
	}
}

func optionalDetail(detail, description string) string {
	if detail == "" {
		return "optional: " + description
	}
	return detail + " (optional: " + description + ")"
}

func transcriberLabel(cfg *config.Config) string {
	if cfg.Transcription.Backend == config.BackendGemini {
		return "gemini (" + cfg.Transcription.GeminiModel + ")"
	}
	return "whisperx (" + cfg.Transcription.Model + ")"
}
