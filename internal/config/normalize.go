package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTerms(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeSeparation()
	c.normalizeRender()
	c.normalizeTools()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		if value, ok := os.LookupEnv("CENSORWAVE_SCRATCH_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.ScratchDir = strings.TrimSpace(value)
		} else {
			c.Paths.ScratchDir = defaultScratchDir
		}
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTerms() error {
	var err error
	if c.Terms.FlaggedPath, err = expandPath(strings.TrimSpace(c.Terms.FlaggedPath)); err != nil {
		return fmt.Errorf("terms.flagged_path: %w", err)
	}
	if c.Terms.SeverePath, err = expandPath(strings.TrimSpace(c.Terms.SeverePath)); err != nil {
		return fmt.Errorf("terms.severe_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = BackendWhisperX
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperXModel
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
	c.Transcription.GeminiModel = strings.TrimSpace(c.Transcription.GeminiModel)
	if c.Transcription.GeminiModel == "" {
		c.Transcription.GeminiModel = defaultGeminiModel
	}
	c.Transcription.GeminiEndpoint = strings.TrimRight(strings.TrimSpace(c.Transcription.GeminiEndpoint), "/")
	if c.Transcription.GeminiEndpoint == "" {
		c.Transcription.GeminiEndpoint = defaultGeminiEndpoint
	}
	c.Transcription.GeminiAPIKey = strings.TrimSpace(c.Transcription.GeminiAPIKey)
	if c.Transcription.GeminiAPIKey == "" {
		c.Transcription.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
}

func (c *Config) normalizeSeparation() {
	c.Separation.Command = strings.TrimSpace(c.Separation.Command)
	if c.Separation.Command == "" {
		c.Separation.Command = defaultSeparationCommand
	}
	c.Separation.Model = strings.TrimSpace(c.Separation.Model)
	if c.Separation.Model == "" {
		c.Separation.Model = defaultSeparationModel
	}
}

func (c *Config) normalizeRender() {
	c.Render.Mode = strings.ToLower(strings.TrimSpace(c.Render.Mode))
	if c.Render.Mode == "" {
		c.Render.Mode = defaultRenderMode
	}
	c.Render.MP3Bitrate = strings.ToLower(strings.TrimSpace(c.Render.MP3Bitrate))
	if c.Render.MP3Bitrate == "" {
		c.Render.MP3Bitrate = defaultMP3Bitrate
	}
	if c.Batch.Chunks <= 0 {
		c.Batch.Chunks = defaultBatchChunks
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
	c.Tools.UVX = strings.TrimSpace(c.Tools.UVX)
	if c.Tools.UVX == "" {
		c.Tools.UVX = defaultUVX
	}
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
