package config

const (
	defaultConfigPath             = "~/.config/censorwave/config.toml"
	defaultScratchDir             = "~/.local/share/censorwave/scratch"
	defaultLogDir                 = "~/.local/share/censorwave/logs"
	defaultHistoryPath            = "~/.local/share/censorwave/history.db"
	defaultWhisperXModel          = "large-v3"
	defaultGeminiModel            = "gemini-2.5-flash"
	defaultGeminiEndpoint         = "https://generativelanguage.googleapis.com/v1beta"
	defaultVADMethod              = "silero"
	defaultLanguage               = "en"
	defaultBufferMS               = 50
	defaultSeparationCommand      = "spleeter"
	defaultSeparationModel        = "spleeter:2stems-16kHz"
	defaultWaitTimeoutSeconds     = 60
	defaultFullWaitTimeoutSeconds = 0
	defaultRenderMode             = "instrumental-swap"
	defaultPitchSemitones         = -10
	defaultMP3Bitrate             = "320k"
	defaultBatchChunks            = 4
	defaultFFmpeg                 = "ffmpeg"
	defaultFFprobe                = "ffprobe"
	defaultUVX                    = "uvx"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Transcription: Transcription{
			Backend:        BackendWhisperX,
			Model:          defaultWhisperXModel,
			VADMethod:      defaultVADMethod,
			Language:       defaultLanguage,
			BufferMS:       defaultBufferMS,
			CacheEnabled:   true,
			CacheKeyTerms:  true,
			GeminiModel:    defaultGeminiModel,
			GeminiEndpoint: defaultGeminiEndpoint,
		},
		Separation: Separation{
			Command:                defaultSeparationCommand,
			Model:                  defaultSeparationModel,
			WaitTimeoutSeconds:     defaultWaitTimeoutSeconds,
			FullWaitTimeoutSeconds: defaultFullWaitTimeoutSeconds,
		},
		Render: Render{
			Mode:           defaultRenderMode,
			PitchSemitones: defaultPitchSemitones,
			MP3Bitrate:     defaultMP3Bitrate,
			ValidateOutput: true,
		},
		Batch: Batch{
			Chunks: defaultBatchChunks,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
			UVX:     defaultUVX,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
