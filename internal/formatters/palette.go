package formatters

import (
	"jdroaster/internal/types"

	"github.com/fatih/color"
)

// palette styles text output. Every colour is forced on or off per
// instance so the package-level color.NoColor detection never leaks in.
type palette struct {
	heading *color.Color
	high    *color.Color
	warn    *color.Color
	info    *color.Color
	good    *color.Color
	muted   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		heading: color.New(color.Bold, color.FgCyan),
		high:    color.New(color.Bold, color.FgRed),
		warn:    color.New(color.FgYellow),
		info:    color.New(color.FgBlue),
		good:    color.New(color.FgGreen),
		muted:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.heading, p.high, p.warn, p.info, p.good, p.muted} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s types.Severity) *color.Color {
	switch s {
	case types.SeverityHigh:
		return p.high
	case types.SeverityWarn:
		return p.warn
	default:
		return p.info
	}
}

func (p palette) label(l types.ScoreLabel) *color.Color {
	switch l {
	case types.LabelGood:
		return p.good
	case types.LabelMixed:
		return p.info
	case types.LabelRisky:
		return p.warn
	default:
		return p.high
	}
}
