package audio

import (
	"path/filepath"
	"strings"
)

// OutputFormat describes how a rendered track is written back to disk.
type OutputFormat struct {
	// Ext is the file extension including the dot.
	Ext string
	// Muxer is the ffmpeg -f value.
	Muxer string
	// Codec is the ffmpeg audio encoder; empty for in-process WAV.
	Codec string
	// Args holds extra encoder arguments such as bitrate.
	Args []string
	// Lossless is true when no quality is lost on re-encode.
	Lossless bool
	// Fallback is set when the source extension was not recognised.
	Fallback bool
}

// Native reports whether the format is written without ffmpeg.
func (f OutputFormat) Native() bool {
	return f.Codec == ""
}

// OutputFormatFor picks the output encoding from the source file's extension.
// Lossless sources stay lossless; lossy sources are re-encoded at a fixed high
// quality. Unknown extensions fall back to WAV.
func OutputFormatFor(sourcePath, mp3Bitrate string) OutputFormat {
	if mp3Bitrate == "" {
		mp3Bitrate = "320k"
	}
	switch strings.ToLower(filepath.Ext(sourcePath)) {
	case ".mp3":
		return OutputFormat{Ext: ".mp3", Muxer: "mp3", Codec: "libmp3lame", Args: []string{"-b:a", mp3Bitrate}}
	case ".wav", ".wave":
		return OutputFormat{Ext: ".wav", Muxer: "wav", Lossless: true}
	case ".flac":
		return OutputFormat{Ext: ".flac", Muxer: "flac", Codec: "flac", Lossless: true}
	case ".m4a", ".alac":
		return OutputFormat{Ext: ".m4a", Muxer: "ipod", Codec: "alac", Lossless: true}
	case ".ogg", ".oga":
		return OutputFormat{Ext: ".ogg", Muxer: "ogg", Codec: "libvorbis", Args: []string{"-q:a", "8"}}
	default:
		return OutputFormat{Ext: ".wav", Muxer: "wav", Lossless: true, Fallback: true}
	}
}

// DefaultOutputPath derives "<dir>/<base>-censored<ext>" for a source.
func DefaultOutputPath(sourcePath string, format OutputFormat) string {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return filepath.Join(filepath.Dir(sourcePath), base+"-censored"+format.Ext)
}
