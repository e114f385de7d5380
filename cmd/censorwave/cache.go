package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"censorwave/internal/separation"
	"censorwave/internal/transcribe"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear transcription caches and scratch space",
	}
	cacheCmd.AddCommand(newCacheListCommand())
	cacheCmd.AddCommand(newCacheClearCommand())
	cacheCmd.AddCommand(newCacheCleanCommand(ctx))
	return cacheCmd
}

func newCacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>...",
		Short: "List transcription cache files stored next to each song",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, source := range args {
				files, err := transcribe.Files(source)
				if err != nil {
					return err
				}
				for _, f := range files {
					size := "-"
					if info, err := os.Stat(f); err == nil {
						size = strconv.FormatInt(info.Size(), 10)
					}
					rows = append(rows, []string{filepath.Base(source), filepath.Base(f), size})
				}
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No cache files")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Song", "Cache file", "Bytes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <file>...",
		Short: "Delete transcription cache files for each song",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total := 0
			for _, source := range args {
				removed, err := transcribe.Clear(source)
				total += removed
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache file(s)\n", total)
			return nil
		},
	}
}

func newCacheCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover stems, clips, chunks, and transcripts from the scratch directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			coord := separation.NewCoordinator(nil, cfg.SeparationDir(), logger)
			if err := coord.RemoveAll(); err != nil {
				return err
			}
			for _, dir := range []string{cfg.ClipsDir(), cfg.ChunksDir(), cfg.TranscriptsDir()} {
				if err := os.RemoveAll(dir); err != nil {
					return fmt.Errorf("remove %s: %w", dir, err)
				}
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleaned scratch directory %s\n", cfg.Paths.ScratchDir)
			return nil
		},
	}
}
