package parser

import (
	"time"

	"github.com/aledsdavies/do2json/pkgs/diag"
)

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// IndentPolicy decides what happens to a shallower line whose indentation
// matches no open level
type IndentPolicy int

const (
	IndentStrict IndentPolicy = iota // reject the line (default)
	IndentClamp                      // attach at the nearest open level
)

func (p IndentPolicy) String() string {
	switch p {
	case IndentStrict:
		return "strict"
	case IndentClamp:
		return "clamp"
	default:
		return "unknown"
	}
}

// TelemetryMode controls telemetry collection
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // Counts only (default)
	TelemetryTiming                      // Counts + parse duration
)

// ParserConfig holds parser configuration
type ParserConfig struct {
	logger    *diag.Logger
	indent    IndentPolicy
	telemetry TelemetryMode
}

// WithLogger routes per-line traces and recoverable errors to logger
func WithLogger(logger *diag.Logger) ParserOpt {
	return func(c *ParserConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIndentClamp accepts irregular indentation by attaching the line at the
// nearest open level instead of rejecting it
func WithIndentClamp() ParserOpt {
	return WithIndentPolicy(IndentClamp)
}

// WithIndentPolicy sets the irregular indentation policy
func WithIndentPolicy(policy IndentPolicy) ParserOpt {
	return func(c *ParserConfig) {
		c.indent = policy
	}
}

// WithTelemetryTiming records the parse duration in Stats
func WithTelemetryTiming() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryTiming
	}
}

// Stats holds per-parse counters
type Stats struct {
	Lines      int           // Non-blank lines seen
	Roots      int           // Root lines, including discarded trees
	Properties int           // Property lines attached to the tree
	Unmatched  int           // Lines matching neither shape
	Overwrites int           // Properties that replaced a same-named sibling
	Rejected   int           // Property lines left out of the tree
	LevelUnit  int           // Indentation width of the first field
	MaxDepth   int           // Deepest frame stack reached, root frame included
	Duration   time.Duration // Zero unless TelemetryTiming is set
}
