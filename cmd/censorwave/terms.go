package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"censorwave/internal/config"
	"censorwave/internal/wordlist"
)

// termFlags are shared by every command that matches words.
type termFlags struct {
	flaggedPath string
	severePath  string
	words       []string
	severeWords []string
}

func (f *termFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.flaggedPath, "terms", "t", "", "Flagged term list (text, or YAML with flagged/severe keys)")
	cmd.Flags().StringVar(&f.severePath, "severe", "", "Severe term list (text or YAML)")
	cmd.Flags().StringArrayVarP(&f.words, "word", "w", nil, "Extra flagged term (repeatable)")
	cmd.Flags().StringArrayVar(&f.severeWords, "severe-word", nil, "Extra severe term (repeatable)")
}

// resolve loads the term lists, falling back to the configured paths when no
// flag names a file.
func (f *termFlags) resolve(cfg *config.Config) (flagged, severe []string, err error) {
	flaggedPath := strings.TrimSpace(f.flaggedPath)
	if flaggedPath == "" && len(f.words) == 0 {
		flaggedPath = cfg.Terms.FlaggedPath
	}
	severePath := strings.TrimSpace(f.severePath)
	if severePath == "" && len(f.severeWords) == 0 {
		severePath = cfg.Terms.SeverePath
	}

	if flaggedPath != "" {
		if isYAMLPath(flaggedPath) {
			lists, err := wordlist.LoadLists(flaggedPath)
			if err != nil {
				return nil, nil, err
			}
			flagged = lists.Flagged
			if severePath == "" {
				severe = lists.Severe
			}
		} else {
			flagged, err = wordlist.LoadTerms(flaggedPath)
			if err != nil {
				return nil, nil, err
			}
		}
	}
	if severePath != "" {
		severe, err = wordlist.LoadTerms(severePath)
		if err != nil {
			return nil, nil, err
		}
	}

	flagged = wordlist.Clean(append(flagged, f.words...))
	severe = wordlist.Clean(append(severe, f.severeWords...))
	return flagged, severe, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
