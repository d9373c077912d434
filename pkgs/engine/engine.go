package engine

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/aledsdavies/do2json/pkgs/ast"
	"github.com/aledsdavies/do2json/pkgs/diag"
	"github.com/aledsdavies/do2json/pkgs/errors"
	"github.com/aledsdavies/do2json/pkgs/execution"
	"github.com/aledsdavies/do2json/pkgs/lexer"
	"github.com/aledsdavies/do2json/pkgs/parser"
	"github.com/aledsdavies/do2json/pkgs/treefmt"
)

// Engine drives the pipeline: run the dump command, parse its output into a
// tree, encode the tree and write or emit the result
type Engine struct {
	runner execution.Runner
	writer FileWriter
	log    *diag.Logger
	sink   diag.Sink
	opts   Options
}

// New creates an engine. runner may be nil when only text and file input
// are used.
func New(runner execution.Runner, opts Options) *Engine {
	if opts.Writer == nil {
		opts.Writer = OSFileWriter{}
	}
	if opts.Log == nil {
		opts.Log = diag.Discard()
	}
	if opts.Sink == nil {
		opts.Sink = opts.Log
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	return &Engine{
		runner: runner,
		writer: opts.Writer,
		log:    opts.Log,
		sink:   opts.Sink,
		opts:   opts,
	}
}

// Query returns the dump query for target built from the engine options
func (e *Engine) Query(target string) execution.Query {
	return execution.Query{
		Target:   target,
		Depth:    e.opts.Depth,
		Count:    e.opts.Count,
		Template: e.opts.Template,
	}
}

// Parse runs a single instance pass for target. The output is written to
// outputPath, or emitted on the log sink when outputPath is empty. A pass with
// nothing to parse is not an error: the result is Empty.
func (e *Engine) Parse(ctx context.Context, target, outputPath string, pretty bool) (*ParseResult, error) {
	return e.runPass(ctx, execution.InstancePass, target, outputPath, pretty)
}

// ParseBoth runs the instance pass into outputPath, then the static pass into
// StaticPath(outputPath). The passes are independent: both always run, the
// results of those that succeeded are returned in pass order, and the
// failures are joined, each prefixed with its pass name.
func (e *Engine) ParseBoth(ctx context.Context, target, outputPath string, pretty bool) ([]*ParseResult, error) {
	staticPath := ""
	if outputPath != "" {
		staticPath = StaticPath(outputPath)
	}

	var (
		results []*ParseResult
		errs    []error
	)
	for _, pass := range []struct {
		pass execution.Pass
		path string
	}{
		{execution.InstancePass, outputPath},
		{execution.StaticPass, staticPath},
	} {
		result, err := e.runPass(ctx, pass.pass, target, pass.path, pretty)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s pass: %w", pass.pass, err))
			continue
		}
		results = append(results, result)
	}
	return results, stderrors.Join(errs...)
}

// ParseText parses already captured dump text without running a command.
// The encoded output is emitted on the log sink.
func (e *Engine) ParseText(raw string, pretty bool) (*ast.Node, error) {
	result := &ParseResult{Pass: execution.InstancePass}
	if err := e.process(result, lexer.SplitLines(raw), "", pretty, e.log); err != nil {
		return nil, err
	}
	return result.Tree, nil
}

// ParseFile parses a saved dump file ("-" reads stdin) into outputPath
func (e *Engine) ParseFile(ctx context.Context, inputPath, outputPath string, pretty bool) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := e.readInput(inputPath)
	if err != nil {
		return nil, err
	}

	log := e.log.WithField("input", inputPath)
	result := &ParseResult{Pass: execution.InstancePass}
	if err := e.process(result, lexer.SplitLines(raw), outputPath, pretty, log); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) readInput(inputPath string) (string, error) {
	var (
		data []byte
		err  error
	)
	if inputPath == "-" {
		data, err = io.ReadAll(e.opts.Stdin)
	} else {
		data, err = os.ReadFile(inputPath)
	}
	if err != nil {
		return "", errors.NewInputError(fmt.Sprintf("failed to read %s", inputPath), err).
			WithContext("path", inputPath)
	}
	return string(data), nil
}

func (e *Engine) runPass(ctx context.Context, pass execution.Pass, target, outputPath string, pretty bool) (*ParseResult, error) {
	if e.runner == nil {
		return nil, errors.NewConfigError("no command runner configured", nil)
	}

	query := e.Query(target).ForPass(pass)
	command, err := query.Render()
	if err != nil {
		return nil, err
	}

	log := e.log.WithFields(map[string]interface{}{"pass": query.Pass().String(), "target": target})
	log.Infof("start: %s", command)

	result := &ParseResult{Pass: pass, Command: command}
	lines, err := e.runner.Run(ctx, command)
	if errors.IsNoInput(err) {
		log.Info("no input: command returned no result")
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if err := e.process(result, lines, outputPath, pretty, log); err != nil {
		return nil, err
	}
	return result, nil
}

// process parses lines with a fresh parser and delivers the encoded tree
func (e *Engine) process(result *ParseResult, lines []string, outputPath string, pretty bool, log *diag.Logger) error {
	opts := append([]parser.ParserOpt{parser.WithLogger(log)}, e.opts.ParserOpts...)
	parsed, err := parser.New(opts...).Parse(lines)
	if errors.IsNoInput(err) {
		log.Info("no input: nothing to parse")
		return nil
	}
	if err != nil {
		return err
	}
	result.Warnings = parsed.Warnings
	result.Stats = parsed.Stats
	if len(parsed.Warnings) > 0 {
		log.Warnf("%d line(s) skipped or repaired", len(parsed.Warnings))
	}

	tree := parsed.Tree
	if e.opts.Select != "" {
		tree, err = tree.Select(e.opts.Select)
		if err != nil {
			return errors.Wrap(errors.ErrSelectPath, fmt.Sprintf("cannot select %q", e.opts.Select), err).
				WithContext("path", e.opts.Select)
		}
	}
	result.Tree = tree

	data, err := treefmt.Encode(tree, e.opts.Format, pretty)
	if err != nil {
		return errors.NewSerializeError(e.opts.Format.String(), err)
	}
	if e.opts.Validate && e.opts.Format == treefmt.FormatJSON {
		if err := treefmt.Validate(data); err != nil {
			return err
		}
	}
	result.Output = data
	result.Digest = treefmt.DigestBytes(data)

	if outputPath == "" {
		e.emit(data)
		return nil
	}

	if err := e.writer.Write(outputPath, data); err != nil {
		log.ErrorWithErr(fmt.Sprintf("writing %s failed, emitting output instead", outputPath), err)
		e.emit(data)
		return errors.NewOutputWriteError(outputPath, err)
	}
	result.Path = outputPath
	log.Infof("wrote %s (%d bytes, %s)", outputPath, len(data), result.Digest)
	return nil
}

// emit sends output to the sink; binary formats are hex encoded
func (e *Engine) emit(data []byte) {
	if e.opts.Format == treefmt.FormatJSON {
		e.sink.Emit(string(data))
		return
	}
	e.sink.Emit(hex.EncodeToString(data))
}
