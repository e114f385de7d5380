package transcribe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"censorwave/internal/fileutil"
	"censorwave/internal/timeline"
)

// Cache reads and writes the JSON companion files that hold matched ranges.
type Cache struct {
	mu       sync.RWMutex
	keyTerms bool
	tag      string
}

// NewCache builds a cache. When keyTerms is true the filename includes a hash
// of the term lists. A non-empty tag (the transcription backend) separates
// files written by different transcribers.
func NewCache(keyTerms bool, tag string) *Cache {
	return &Cache{keyTerms: keyTerms, tag: tag}
}

// SinglePath returns the cache file for a single-category scan.
func (c *Cache) SinglePath(audioPath, termsHash string) string {
	return c.path(audioPath, "", termsHash)
}

// DualPath returns the cache file for a flagged+severe scan.
func (c *Cache) DualPath(audioPath, termsHash string) string {
	return c.path(audioPath, "dual", termsHash)
}

func (c *Cache) path(audioPath, kind, termsHash string) string {
	name := audioPath
	for _, part := range []string{c.tag, kind} {
		if part != "" {
			name += "." + part
		}
	}
	if c.keyTerms && termsHash != "" {
		name += "." + termsHash
	}
	return name + ".json"
}

type dualPayload struct {
	Flagged [][2]int64 `json:"flagged"`
	Severe  [][2]int64 `json:"severe"`
}

// LoadSingle returns cached ranges. found is false when no cache file exists.
func (c *Cache) LoadSingle(path string) (ranges []timeline.TimeRange, found bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache file: %w", err)
	}
	var pairs [][2]int64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, false, fmt.Errorf("parse cache file %s: %w", filepath.Base(path), err)
	}
	return fromPairs(pairs, timeline.KindFlagged), true, nil
}

// StoreSingle persists ranges as [[start_ms,end_ms],...].
func (c *Cache) StoreSingle(path string, ranges []timeline.TimeRange) error {
	data, err := json.Marshal(toPairs(ranges))
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// LoadDual returns cached flagged and severe ranges.
func (c *Cache) LoadDual(path string) (flagged, severe []timeline.TimeRange, found bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("read cache file: %w", err)
	}
	var payload dualPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, false, fmt.Errorf("parse cache file %s: %w", filepath.Base(path), err)
	}
	return fromPairs(payload.Flagged, timeline.KindFlagged), fromPairs(payload.Severe, timeline.KindSevere), true, nil
}

// StoreDual persists {"flagged":[...],"severe":[...]}.
func (c *Cache) StoreDual(path string, flagged, severe []timeline.TimeRange) error {
	data, err := json.Marshal(dualPayload{Flagged: toPairs(flagged), Severe: toPairs(severe)})
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// Files lists every cache file belonging to audioPath, sorted.
func Files(audioPath string) ([]string, error) {
	var files []string
	if fileutil.FileExists(audioPath + ".json") {
		files = append(files, audioPath+".json")
	}
	matches, err := filepath.Glob(escapeGlob(audioPath) + ".*.json")
	if err != nil {
		return nil, fmt.Errorf("list cache files: %w", err)
	}
	files = append(files, matches...)
	sort.Strings(files)
	return files, nil
}

// Clear deletes every cache file belonging to audioPath and returns how many
// were removed.
func Clear(audioPath string) (int, error) {
	files, err := Files(audioPath)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", filepath.Base(f), err)
		}
		removed++
	}
	return removed, nil
}

func escapeGlob(path string) string {
	replacer := strings.NewReplacer("*", `\*`, "?", `\?`, "[", `\[`)
	return replacer.Replace(path)
}

func toPairs(ranges []timeline.TimeRange) [][2]int64 {
	pairs := make([][2]int64, 0, len(ranges))
	for _, r := range ranges {
		pairs = append(pairs, [2]int64{r.StartMS, r.EndMS})
	}
	return pairs
}

func fromPairs(pairs [][2]int64, kind timeline.Kind) []timeline.TimeRange {
	ranges := make([]timeline.TimeRange, 0, len(pairs))
	for _, p := range pairs {
		ranges = append(ranges, timeline.TimeRange{StartMS: p[0], EndMS: p[1], Kind: kind})
	}
	return ranges
}
