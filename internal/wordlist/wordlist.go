// Package wordlist loads flagged and severe term lists from plain text or YAML files.
package wordlist

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"censorwave/internal/services"
)

// Lists holds the two term categories.
type Lists struct {
	Flagged []string `yaml:"flagged"`
	Severe  []string `yaml:"severe"`
}

// Empty reports whether both lists are empty.
func (l Lists) Empty() bool {
	return len(l.Flagged) == 0 && len(l.Severe) == 0
}

// LoadTerms reads a single term list. Text files hold one term per line; YAML
// files may either be a bare sequence or a mapping with a flagged key.
func LoadTerms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "wordlist", "read", "Failed to read term list", err)
	}
	if isYAML(path) {
		var seq []string
		if err := yaml.Unmarshal(data, &seq); err == nil {
			return Clean(seq), nil
		}
		lists, err := parseYAML(data)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "wordlist", "parse", fmt.Sprintf("Invalid YAML term list %s", filepath.Base(path)), err)
		}
		return lists.Flagged, nil
	}
	return ParseText(data), nil
}

// LoadLists reads a YAML file carrying both categories.
func LoadLists(path string) (Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lists{}, services.Wrap(services.ErrValidation, "wordlist", "read", "Failed to read term lists", err)
	}
	lists, err := parseYAML(data)
	if err != nil {
		return Lists{}, services.Wrap(services.ErrValidation, "wordlist", "parse", fmt.Sprintf("Invalid YAML term lists %s", filepath.Base(path)), err)
	}
	return lists, nil
}

// ParseText parses a plain text term list: one term per line, blank lines and
// lines starting with # skipped.
func ParseText(data []byte) []string {
	var raw []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	return Clean(raw)
}

// Clean lowercases, trims, drops blanks, and de-duplicates while keeping order.
func Clean(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		normalized := strings.ToLower(strings.TrimSpace(term))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func parseYAML(data []byte) (Lists, error) {
	var lists Lists
	if err := yaml.Unmarshal(data, &lists); err != nil {
		return Lists{}, err
	}
	lists.Flagged = Clean(lists.Flagged)
	lists.Severe = Clean(lists.Severe)
	return lists, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
