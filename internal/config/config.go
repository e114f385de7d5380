package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains scratch and log directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Terms points at the default term lists used when the CLI receives none.
type Terms struct {
	FlaggedPath string `toml:"flagged_path"`
	SeverePath  string `toml:"severe_path"`
}

// Transcription backends.
const (
	BackendWhisperX = "whisperx"
	BackendGemini   = "gemini"
)

// Transcription selects the transcriber and configures the range cache.
type Transcription struct {
	// Backend selects the transcriber: whisperx (local) or gemini (hosted).
	Backend     string `toml:"backend"`
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
	Language    string `toml:"language"`
	// BufferMS widens every matched word on both sides.
	BufferMS     int  `toml:"buffer_ms"`
	CacheEnabled bool `toml:"cache_enabled"`
	// CacheKeyTerms folds a hash of the term lists into the cache filename.
	CacheKeyTerms bool `toml:"cache_key_terms"`

	GeminiModel    string `toml:"gemini_model"`
	GeminiAPIKey   string `toml:"gemini_api_key"`
	GeminiEndpoint string `toml:"gemini_endpoint"`
}

// Separation contains source-separation settings.
type Separation struct {
	Command                string `toml:"command"`
	Model                  string `toml:"model"`
	WaitTimeoutSeconds     int    `toml:"wait_timeout_seconds"`
	FullWaitTimeoutSeconds int    `toml:"full_wait_timeout_seconds"`
}

// Render contains reconstruction settings.
type Render struct {
	Mode           string  `toml:"mode"`
	PitchSemitones float64 `toml:"pitch_semitones"`
	MP3Bitrate     string  `toml:"mp3_bitrate"`
	ValidateOutput bool    `toml:"validate_output"`
}

// Batch contains chunked run settings.
type Batch struct {
	Chunks int `toml:"chunks"`
}

// Tools names the external executables.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	UVX     string `toml:"uvx"`
}

// History contains run ledger settings.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for censorwave.
//
// Configuration sections by subsystem:
//   - Paths: scratch and log directories
//   - Terms: default flagged/severe term lists
//   - Transcription: backend choice, model, buffer, and cache behaviour
//   - Separation: Spleeter command, model, and wait bounds
//   - Render: default mode, pitch shift amount, output encoding
//   - Batch: chunk count for chunked runs
//   - Tools: ffmpeg, ffprobe, and uvx executables
//   - History: SQLite run ledger
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Terms         Terms         `toml:"terms"`
	Transcription Transcription `toml:"transcription"`
	Separation    Separation    `toml:"separation"`
	Render        Render        `toml:"render"`
	Batch         Batch         `toml:"batch"`
	Tools         Tools         `toml:"tools"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file next to the config (or in the
// working directory) is loaded first so env fallbacks can pick it up.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env files without overriding variables already set.
func loadDotEnv(configDir string) error {
	candidates := []string{filepath.Join(configDir, ".env")}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}
	seen := map[string]struct{}{}
	for _, candidate := range candidates {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load %s: %w", candidate, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("censorwave.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the scratch and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled && c.History.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// SeparationDir is where separated stems are written, one subdirectory per source.
func (c *Config) SeparationDir() string {
	return filepath.Join(c.Paths.ScratchDir, "separated")
}

// ClipsDir holds per-run pitch-shift scratch clips.
func (c *Config) ClipsDir() string {
	return filepath.Join(c.Paths.ScratchDir, "clips")
}

// LocksDir holds per-source run lock files.
func (c *Config) LocksDir() string {
	return filepath.Join(c.Paths.ScratchDir, "locks")
}

// ChunksDir holds temporary chunk files for chunked runs.
func (c *Config) ChunksDir() string {
	return filepath.Join(c.Paths.ScratchDir, "chunks")
}

// TranscriptsDir holds raw WhisperX output.
func (c *Config) TranscriptsDir() string {
	return filepath.Join(c.Paths.ScratchDir, "transcripts")
}

// FFmpegBinary returns the ffmpeg executable used for codecs and pitch shifting.
func (c *Config) FFmpegBinary() string {
	return c.Tools.FFmpeg
}

// FFprobeBinary returns the ffprobe executable name used for output validation.
func (c *Config) FFprobeBinary() string {
	return c.Tools.FFprobe
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
