package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

var validModes = map[string]struct{}{
	"instrumental-swap":               {},
	"backspin":                        {},
	"vocal-reverse-over-instrumental": {},
	"down-pitch":                      {},
	"dual":                            {},
	"dual-reverse":                    {},
	"v":                               {},
	"b":                               {},
	"vb":                              {},
	"p":                               {},
	"sv":                              {},
	"sb":                              {},
}

var bitratePattern = regexp.MustCompile(`^[0-9]+k$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateSeparation(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path must be set when history.enabled is true")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.BufferMS < 0 {
		return errors.New("transcription.buffer_ms must be >= 0")
	}
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method %q unsupported (use silero or pyannote)", c.Transcription.VADMethod)
	}
	if c.Transcription.VADMethod == "pyannote" && c.Transcription.HFToken == "" {
		return errors.New("transcription.hf_token must be set when vad_method is pyannote (or set HF_TOKEN)")
	}
	switch c.Transcription.Backend {
	case BackendWhisperX:
	case BackendGemini:
		if c.Transcription.GeminiAPIKey == "" {
			return errors.New("transcription.gemini_api_key must be set when backend is gemini (or set GEMINI_API_KEY)")
		}
		if u, err := url.Parse(c.Transcription.GeminiEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("transcription.gemini_endpoint %q is not an absolute URL", c.Transcription.GeminiEndpoint)
		}
	default:
		return fmt.Errorf("transcription.backend %q unsupported (use %s or %s)", c.Transcription.Backend, BackendWhisperX, BackendGemini)
	}
	return nil
}

func (c *Config) validateSeparation() error {
	if c.Separation.WaitTimeoutSeconds <= 0 {
		return errors.New("separation.wait_timeout_seconds must be positive")
	}
	if c.Separation.FullWaitTimeoutSeconds < 0 {
		return errors.New("separation.full_wait_timeout_seconds must be >= 0 (0 waits until completion)")
	}
	return nil
}

func (c *Config) validateRender() error {
	if _, ok := validModes[c.Render.Mode]; !ok {
		return fmt.Errorf("render.mode %q unsupported", c.Render.Mode)
	}
	if c.Render.PitchSemitones == 0 || c.Render.PitchSemitones < -24 || c.Render.PitchSemitones > 24 {
		return errors.New("render.pitch_semitones must be non-zero and within [-24, 24]")
	}
	if !bitratePattern.MatchString(c.Render.MP3Bitrate) {
		return fmt.Errorf("render.mp3_bitrate %q must look like 320k", c.Render.MP3Bitrate)
	}
	return nil
}
