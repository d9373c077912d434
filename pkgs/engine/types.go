package engine

import (
	"io"

	"github.com/aledsdavies/do2json/pkgs/ast"
	"github.com/aledsdavies/do2json/pkgs/diag"
	"github.com/aledsdavies/do2json/pkgs/execution"
	"github.com/aledsdavies/do2json/pkgs/parser"
	"github.com/aledsdavies/do2json/pkgs/treefmt"
)

// Options configures an Engine
type Options struct {
	Writer FileWriter   // defaults to OSFileWriter
	Log    *diag.Logger // defaults to Discard
	Sink   diag.Sink    // receives output when no path is given; defaults to Log
	Stdin  io.Reader    // read by ParseFile for "-"

	Format   treefmt.Format
	Select   string // dot-separated subtree path applied before encoding
	Validate bool   // check JSON output against the schema

	Depth    int
	Count    int
	Template string

	ParserOpts []parser.ParserOpt
}

// ParseResult represents the outcome of one pass
type ParseResult struct {
	Pass     execution.Pass
	Command  string // empty for text and file input
	Tree     *ast.Node
	Output   []byte
	Path     string // where Output was written; empty when emitted on the sink
	Digest   string
	Warnings []parser.Warning
	Stats    parser.Stats
}

// Empty reports whether the pass had nothing to parse
func (r *ParseResult) Empty() bool {
	return r == nil || r.Tree == nil
}
