package main

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"censorwave/internal/fileutil"
	"censorwave/internal/logging"
	"censorwave/internal/report"
	"censorwave/internal/services"
	"censorwave/internal/services/whisperx"
)

type transcriptOutput struct {
	Source   string             `json:"source"`
	Backend  string             `json:"backend"`
	Segments []whisperx.Segment `json:"segments"`
}

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	var showWords bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "transcript <file>",
		Short: "Print the transcribed lyrics with their timings",
		Long: "Run the configured transcription backend on the song and print every segment, or every\n" +
			"aligned word with --words. Nothing is censored and the range cache is left untouched.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			if !fileutil.FileExists(source) {
				return services.Wrap(services.ErrNotFound, "cli", "transcript",
					fmt.Sprintf("Source file not found: %s", source), nil)
			}

			backend := cfg.Transcription.Backend
			logger = logging.NewComponentLogger(logger, "transcript")
			logger.Info("transcription started",
				logging.String(logging.FieldEventType, "transcript_started"),
				logging.String(logging.FieldSource, source),
				logging.String("backend", backend))

			segments, err := newTranscriber(cfg).Transcribe(cmd.Context(), source)
			if err != nil {
				if errors.Is(err, whisperx.ErrUnavailable) {
					return services.Wrap(services.ErrExternalTool, "transcript", "transcribe",
						"WhisperX cannot be launched; install uv or pass --backend gemini", err)
				}
				return services.Wrap(services.ErrExternalTool, "transcript", "transcribe",
					fmt.Sprintf("Transcription failed for %s", filepath.Base(source)), err)
			}

			if jsonOutput {
				if segments == nil {
					segments = []whisperx.Segment{}
				}
				return writeJSON(cmd, transcriptOutput{Source: source, Backend: backend, Segments: segments})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source:  %s\n", source)
			fmt.Fprintf(out, "Backend: %s\n", backend)
			if len(segments) == 0 {
				fmt.Fprintln(out, "No lyrics transcribed")
				return nil
			}
			if showWords {
				rows := wordRows(segments)
				if len(rows) == 0 {
					fmt.Fprintln(out, "No word timings available; showing segments")
				} else {
					fmt.Fprintln(out, renderTable(wordHeaders, rows, wordAligns))
					return nil
				}
			}
			fmt.Fprintln(out, renderTable(segmentHeaders, segmentRows(segments), segmentAligns))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showWords, "words", false, "List every aligned word instead of whole segments")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw segments as JSON")
	return cmd
}

var (
	segmentHeaders = []string{"#", "Start", "End", "Words", "Text"}
	segmentAligns  = []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft}
	wordHeaders    = []string{"Segment", "Word", "Start", "End"}
	wordAligns     = []columnAlignment{alignRight, alignLeft, alignRight, alignRight}
)

func segmentRows(segments []whisperx.Segment) [][]string {
	rows := make([][]string, 0, len(segments))
	for i, seg := range segments {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			report.Timestamp(secondsToMS(seg.Start)),
			report.Timestamp(secondsToMS(seg.End)),
			strconv.Itoa(len(seg.Words)),
			strings.TrimSpace(seg.Text),
		})
	}
	return rows
}

// wordRows lists timed words only; words alignment could not place are skipped.
func wordRows(segments []whisperx.Segment) [][]string {
	var rows [][]string
	for i, seg := range segments {
		for _, w := range seg.Words {
			if !w.Timed() {
				continue
			}
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				strings.TrimSpace(w.Word),
				report.Timestamp(secondsToMS(*w.Start)),
				report.Timestamp(secondsToMS(*w.End)),
			})
		}
	}
	return rows
}

func secondsToMS(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
