package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"censorwave/internal/config"
)

// Requirement is an external executable censorwave shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the executables the configuration points at. Spleeter is
// only needed by modes that read stems, and uvx only for the WhisperX backend.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Compressed codecs and pitch shifting"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Output validation", Optional: !cfg.Render.ValidateOutput},
		{Name: "uvx", Command: cfg.Tools.UVX, Description: "Runs WhisperX for word timestamps",
			Optional: cfg.Transcription.Backend != config.BackendWhisperX},
		{Name: "Spleeter", Command: firstField(cfg.Separation.Command), Description: "Vocal/instrumental separation", Optional: true},
	}
}

// CheckBinaries evaluates the requirements against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the names of unavailable required dependencies.
func Missing(statuses []Status) []string {
	var names []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			names = append(names, s.Name)
		}
	}
	return names
}

func firstField(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
