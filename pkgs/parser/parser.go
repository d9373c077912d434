// Package parser assembles do2 dump lines into a tree.
//
// The dump carries no explicit depth markers: nesting is inferred from
// indentation width alone. Every open frame remembers the width it was
// opened at: deeper lines open the previous field as a parent, shallower
// lines close frames until one open at the same width is active.
package parser

import (
	"fmt"
	"time"

	"github.com/aledsdavies/do2json/pkgs/ast"
	"github.com/aledsdavies/do2json/pkgs/diag"
	"github.com/aledsdavies/do2json/pkgs/errors"
	"github.com/aledsdavies/do2json/pkgs/invariant"
	"github.com/aledsdavies/do2json/pkgs/lexer"
)

// Result is the outcome of one parse
type Result struct {
	Tree     *ast.Node
	Warnings []Warning
	Stats    Stats
}

// Parser holds the state of a single parse.
//
// A Parser must not be shared between goroutines. Parse resets all state on
// entry, so sequential reuse is fine; concurrent callers each construct their
// own with New.
type Parser struct {
	config ParserConfig
	log    *diag.Logger

	tree      *ast.Node
	stack     frameStack
	levelUnit int
	levelsSet bool

	result *Result
}

// New creates a parser configured by opts
func New(opts ...ParserOpt) *Parser {
	config := ParserConfig{logger: diag.Discard()}
	for _, opt := range opts {
		opt(&config)
	}
	return &Parser{
		config: config,
		log:    config.logger,
	}
}

// Parse parses raw dump text, splitting it on LF or CRLF
func Parse(raw string, opts ...ParserOpt) (*Result, error) {
	return New(opts...).ParseText(raw)
}

// ParseText parses raw dump text, splitting it on LF or CRLF
func (p *Parser) ParseText(raw string) (*Result, error) {
	return p.Parse(lexer.SplitLines(raw))
}

// Parse assembles the tree from ordered dump lines.
// It returns errors.ErrNoInput when there are no lines or no root line.
func (p *Parser) Parse(lines []string) (*Result, error) {
	p.reset()

	var start time.Time
	if p.config.telemetry == TelemetryTiming {
		start = time.Now()
	}

	if len(lines) == 0 {
		return p.result, errors.NewNoInputError("empty line list")
	}

	tracing := p.log.Enabled(diag.LogLevelTrace)
	for _, line := range lexer.ClassifyAll(lines) {
		p.result.Stats.Lines++
		if tracing {
			p.log.Tracef("parsing %s: %s", line.Position(), line)
		}

		switch line.Kind {
		case lexer.Root:
			p.openRoot(line)
		case lexer.Property:
			p.addProperty(line)
		default:
			p.result.Stats.Unmatched++
			p.warn(WarnUnmatched, line, "")
			p.log.Infof("no match: %s", line.Raw)
		}
	}

	if p.config.telemetry == TelemetryTiming {
		p.result.Stats.Duration = time.Since(start)
	}

	if p.tree == nil {
		return p.result, errors.NewNoInputError("dump without a root line")
	}
	p.result.Tree = p.tree
	p.result.Stats.LevelUnit = p.levelUnit
	return p.result, nil
}

func (p *Parser) reset() {
	p.tree = nil
	p.stack = frameStack{}
	p.levelUnit = 0
	p.levelsSet = false
	p.result = &Result{}
}

// openRoot discards any tree in progress and starts a new one
func (p *Parser) openRoot(line lexer.Line) {
	if p.tree != nil {
		p.warn(WarnDiscardedTree, line, fmt.Sprintf("%q replaced by %q", p.tree.Name, line.Name))
		p.log.Debugf("discarding tree %q", p.tree.Name)
	}

	p.result.Stats.Roots++
	p.tree = ast.NewRoot(line.Name, line.Level())
	p.stack.reset(p.tree)
	p.levelsSet = false
	p.levelUnit = 0
	p.trackDepth()
	p.log.Debugf("root %s", line.Name)
}

func (p *Parser) addProperty(line lexer.Line) {
	if p.stack.empty() {
		p.reject(WarnOrphan, line, "property before any root line")
		return
	}

	node := ast.NewProperty(line)
	invariant.NonNegative(node.Level, "property level")
	level := node.Level

	if !p.levelsSet {
		p.levelUnit = level
		p.stack.setBase(level)
		p.levelsSet = true
	}

	switch active := p.stack.top().level; {
	case level > active:
		parent := p.stack.top().last
		invariant.NotNil(parent, "descend parent")
		p.stack.push(parent, level)
		p.trackDepth()
		p.log.Debugf(">%s", line.Raw)

	case level < active:
		if !p.ascend(line, level) {
			return
		}
		p.log.Debugf("<%s", line.Raw)

	default:
		p.log.Debugf("=%s", line.Raw)
	}

	if p.stack.insert(node) {
		p.result.Stats.Overwrites++
		p.log.Debugf("%s overwrote sibling %q", line.Position(), node.Name)
	}
	p.result.Stats.Properties++
}

// ascend closes frames down to the one open at level. A level shallower
// than the root frame falls back to the root frame. A level between two open
// frames is irregular and handled by the indent policy. ok is false when the
// line must be rejected.
func (p *Parser) ascend(line lexer.Line, level int) (ok bool) {
	index, exact := p.stack.find(level)
	switch {
	case exact:
		p.stack.truncate(index)
		return true

	case index < 0:
		p.stack.truncate(0)
		p.warn(WarnUnderflow, line, fmt.Sprintf("level %d is above the top level %d, inserting at top level", level, p.stack.top().level))
		p.log.Errorf("ascend underflow at %s: falling back to top level", line.Position())
		return true
	}

	lower, upper := p.stack.at(index).level, p.stack.at(index+1).level
	detail := fmt.Sprintf("level %d matches no open level (between %d and %d)", level, lower, upper)
	if p.config.indent == IndentStrict {
		p.reject(WarnIrregularIndent, line, detail)
		return false
	}

	// ties go to the shallower frame
	if upper-level < level-lower {
		index++
	}
	p.stack.truncate(index)
	p.warn(WarnIrregularIndent, line, fmt.Sprintf("%s, attached at level %d", detail, p.stack.top().level))
	return true
}

func (p *Parser) reject(kind WarningKind, line lexer.Line, detail string) {
	p.result.Stats.Rejected++
	p.warn(kind, line, detail)
	p.log.Errorf("%s: %s: %s", line.Position(), kind, detail)
}

func (p *Parser) warn(kind WarningKind, line lexer.Line, detail string) {
	p.result.Warnings = append(p.result.Warnings, Warning{
		Kind:    kind,
		Line:    line.Number,
		Message: detail,
		Raw:     line.Raw,
	})
}

func (p *Parser) trackDepth() {
	if d := p.stack.depth(); d > p.result.Stats.MaxDepth {
		p.result.Stats.MaxDepth = d
	}
}
