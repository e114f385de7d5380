package whisperx

// Config captures runtime settings for WhisperX.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3").
	Model       string
	CUDAEnabled bool
	// VADMethod selects voice activity detection: "silero" or "pyannote".
	VADMethod string
	// HFToken unlocks the pyannote VAD model.
	HFToken string
	// Language is an ISO 639-1 code; empty lets WhisperX detect it.
	Language  string
	UVXBinary string
}

const (
	DefaultModel      = "large-v3"
	UVXCommand        = "uvx"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"

	cudaIndexURL = "https://download.pytorch.org/whl/cu128"
	pypiIndexURL = "https://pypi.org/simple"
)

// Sung vocals sit under loud accompaniment, so VAD thresholds are lower than
// WhisperX defaults and the beam is wider.
var decodeArgs = []string{
	"--batch_size", "4",
	"--output_format", "json",
	"--vad_onset", "0.10",
	"--vad_offset", "0.08",
	"--beam_size", "8",
	"--best_of", "8",
	"--temperature", "0.0",
}

// device returns the --device and --compute_type values for cfg.
func (c Config) device() []string {
	if c.CUDAEnabled {
		return []string{"--device", "cuda"}
	}
	return []string{"--device", "cpu", "--compute_type", "float32"}
}

func (c Config) indexArgs() []string {
	if c.CUDAEnabled {
		return []string{"--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL}
	}
	return []string{"--index-url", pypiIndexURL}
}
