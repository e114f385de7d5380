package render

import (
	"fmt"
	"strings"

	"censorwave/internal/timeline"
)

// Mode selects the strategies used for flagged and severe ranges.
type Mode string

const (
	ModeInstrumentalSwap             Mode = "instrumental-swap"
	ModeBackspin                     Mode = "backspin"
	ModeVocalReverseOverInstrumental Mode = "vocal-reverse-over-instrumental"
	ModeDownPitch                    Mode = "down-pitch"
	ModeDual                         Mode = "dual"
	ModeDualReverse                  Mode = "dual-reverse"
)

var modeAliases = map[string]Mode{
	"v":  ModeInstrumentalSwap,
	"b":  ModeBackspin,
	"vb": ModeVocalReverseOverInstrumental,
	"p":  ModeDownPitch,
	"sv": ModeDual,
	"sb": ModeDualReverse,
}

// Modes lists every mode in display order.
func Modes() []Mode {
	return []Mode{ModeInstrumentalSwap, ModeBackspin, ModeVocalReverseOverInstrumental, ModeDownPitch, ModeDual, ModeDualReverse}
}

// ParseMode accepts a mode name or its short alias.
func ParseMode(value string) (Mode, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if m, ok := modeAliases[v]; ok {
		return m, nil
	}
	for _, m := range Modes() {
		if string(m) == v {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown render mode %q", value)
}

// Alias returns the short CLI alias for the mode.
func (m Mode) Alias() string {
	for alias, mode := range modeAliases {
		if mode == m {
			return alias
		}
	}
	return ""
}

// Policy maps range kinds to strategies. Severe ranges in the dual modes
// always use down-pitch.
func (m Mode) Policy() timeline.StrategyPolicy {
	switch m {
	case ModeBackspin:
		return timeline.StrategyPolicy{Flagged: timeline.StrategyBackspin, Severe: timeline.StrategyBackspin}
	case ModeVocalReverseOverInstrumental:
		return timeline.StrategyPolicy{Flagged: timeline.StrategyVocalReverse, Severe: timeline.StrategyVocalReverse}
	case ModeDownPitch:
		return timeline.StrategyPolicy{Flagged: timeline.StrategyDownPitch, Severe: timeline.StrategyDownPitch}
	case ModeDual:
		return timeline.StrategyPolicy{Flagged: timeline.StrategySwap, Severe: timeline.StrategyDownPitch}
	case ModeDualReverse:
		return timeline.StrategyPolicy{Flagged: timeline.StrategyVocalReverse, Severe: timeline.StrategyDownPitch}
	default:
		return timeline.StrategyPolicy{Flagged: timeline.StrategySwap, Severe: timeline.StrategySwap}
	}
}

// SeverityAware reports whether the mode treats severe terms separately.
func (m Mode) SeverityAware() bool {
	return m == ModeDual || m == ModeDualReverse
}

// NeedsStems reports whether any strategy of the mode reads separated stems.
func (m Mode) NeedsStems() bool {
	p := m.Policy()
	return p.Flagged.NeedsInstrumental() || p.Severe.NeedsInstrumental()
}

// NeedsVocals reports whether any strategy of the mode reads the vocals stem.
func (m Mode) NeedsVocals() bool {
	p := m.Policy()
	return p.Flagged.NeedsVocals() || p.Severe.NeedsVocals()
}
