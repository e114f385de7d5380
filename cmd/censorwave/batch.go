package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"censorwave/internal/audio"
	"censorwave/internal/config"
	"censorwave/internal/logging"
	"censorwave/internal/pipeline"
	"censorwave/internal/report"
	"censorwave/internal/services"
	"censorwave/internal/timeline"
)

type batchOutcome struct {
	Source string           `json:"source"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
	Kind   string           `json:"error_kind,omitempty"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var terms termFlags
	var modeFlag string
	var chunks int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "batch <file|dir|manifest.xlsx>...",
		Short: "Censor many songs in sequence",
		Long: "Censor every song named on the command line. Directories are scanned for\n" +
			"audio files and .xlsx manifests list one path per row. Outputs use the\n" +
			"default <name>-censored<ext> naming.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(func(runner *pipeline.Runner, cfg *config.Config, logger *slog.Logger) error {
				if chunks <= 0 {
					chunks = cfg.Batch.Chunks
				}
				sources, err := collectSources(args)
				if err != nil {
					return err
				}
				if len(sources) == 0 {
					return services.Wrap(services.ErrValidation, "cli", "batch", "No audio files found", nil)
				}
				batchLogger := logging.NewComponentLogger(logger, "batch")

				outcomes := make([]batchOutcome, 0, len(sources))
				failed := 0
				for i, source := range sources {
					if err := cmd.Context().Err(); err != nil {
						return err
					}
					batchLogger.Info("batch item",
						logging.String(logging.FieldEventType, "batch_item_started"),
						logging.Int("index", i+1),
						logging.Int("total", len(sources)),
						logging.String("source", source))
					outcome := batchOutcome{Source: source}
					req, err := buildRequest(cfg, logger, source, modeFlag, "", &terms)
					if err == nil {
						var res pipeline.Result
						res, err = runner.RunChunked(cmd.Context(), req, chunks)
						if err == nil {
							outcome.Result = &res
						}
					}
					if err != nil {
						failed++
						outcome.Error = err.Error()
						outcome.Kind = services.Kind(err)
					}
					outcomes = append(outcomes, outcome)
				}

				if jsonOutput {
					if err := writeJSON(cmd, outcomes); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), renderTable(
						[]string{"Source", "Status", "Flagged", "Severe", "Detail"},
						batchRows(outcomes),
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
					))
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d songs failed", failed, len(sources))
				}
				return nil
			})
		},
	}

	terms.register(cmd)
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Render mode or alias (default from config)")
	cmd.Flags().IntVar(&chunks, "chunks", 0, "Chunks per song (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output outcomes as JSON")
	return cmd
}

func batchRows(outcomes []batchOutcome) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		name := filepath.Base(o.Source)
		if o.Result == nil {
			rows = append(rows, []string{name, "failed", "-", "-", o.Error})
			continue
		}
		status := "censored"
		detail := filepath.Base(o.Result.Output)
		if o.Result.Copied {
			status = "clean"
		}
		rows = append(rows, []string{
			name,
			status,
			strconv.Itoa(o.Result.Plan.Count(timeline.KindFlagged)),
			strconv.Itoa(o.Result.Plan.Count(timeline.KindSevere)),
			detail,
		})
	}
	return rows
}

// collectSources expands files, directories, and xlsx manifests into a
// de-duplicated list of audio paths in argument order.
func collectSources(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var sources []string
	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		sources = append(sources, abs)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "cli", "batch", fmt.Sprintf("Cannot read %s", arg), err)
		}
		switch {
		case info.IsDir():
			found, err := scanAudioDir(arg)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
		case strings.EqualFold(filepath.Ext(arg), ".xlsx"):
			listed, err := report.LoadManifest(arg)
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "cli", "batch", "Cannot read manifest", err)
			}
			for _, f := range listed {
				add(f)
			}
		default:
			add(arg)
		}
	}
	return sources, nil
}

// scanAudioDir lists recognised audio files under dir, skipping earlier
// censored outputs.
func scanAudioDir(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if audio.OutputFormatFor(path, "").Fallback {
			return nil
		}
		stem := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if strings.HasSuffix(stem, "-censored") {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(found)
	return found, nil
}
