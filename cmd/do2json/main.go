package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/do2json/pkgs/config"
	"github.com/aledsdavies/do2json/pkgs/diag"
	"github.com/aledsdavies/do2json/pkgs/engine"
	"github.com/aledsdavies/do2json/pkgs/execution"
	"github.com/aledsdavies/do2json/pkgs/parser"
	"github.com/aledsdavies/do2json/pkgs/treefmt"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// flags holds every command-line option
type flags struct {
	envFile     string
	debug       bool
	quiet       bool
	noColor     bool
	logFile     string
	logLevel    string
	logFormat   string
	pretty      bool
	format      string
	selectPath  string
	validate    bool
	clampIndent bool
	output      string

	debugger        string
	dump            string
	depth           int
	count           int
	commandTemplate string
	timeout         time.Duration
	cacheSize       int
	retries         int
	retryDelay      time.Duration
}

// app wires configuration to the engine for one CLI invocation
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	flags          flags
	cfg            *config.Config
	log            *diag.Logger
	closers        []io.Closer

	// newRunner builds the command runner; replaced in tests
	newRunner func(cfg *config.Config, log *diag.Logger) (execution.Runner, error)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		newRunner: debuggerRunner,
	}
	return a.execute(args)
}

func (a *app) execute(args []string) int {
	defer a.close()

	rootCmd := a.rootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	if err := rootCmd.Execute(); err != nil {
		FormatError(a.stderr, err, a.useColor())
		return toCLIError(err).Code
	}
	return ExitSuccess
}

func (a *app) rootCommand() *cobra.Command {
	f := &a.flags
	rootCmd := &cobra.Command{
		Use:   "do2json",
		Short: "Convert do2 object dumps from a crash dump into JSON",
		Long: `do2json runs the do2 debugger extension against an object in a crash dump
and turns its indented field listing into a JSON tree.

Settings are read from .env and DO2JSON_* environment variables; flags win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.envFile, "env-file", "", "Load settings from this file instead of .env")
	pf.BoolVar(&f.debug, "debug", false, "Enable debug output, including per-line parse traces")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "Only log warnings and errors")
	pf.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&f.logFile, "log-file", "", "Also append log output to this file")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: trace, debug, info, warn or error (overrides --debug and --quiet)")
	pf.StringVar(&f.logFormat, "log-format", "text", "Log format: text or json")
	pf.BoolVarP(&f.pretty, "pretty", "p", false, "Indent JSON output")
	pf.StringVar(&f.format, "format", "json", "Output format: json or cbor")
	pf.StringVarP(&f.selectPath, "select", "s", "", "Only output the subtree at this dot-separated field path")
	pf.BoolVar(&f.validate, "validate", false, "Check JSON output against the node schema")
	pf.BoolVar(&f.clampIndent, "clamp-indent", false, "Repair irregular indentation instead of skipping the line")
	pf.StringVarP(&f.output, "output", "o", "", "Write output to this file instead of stdout")

	pf.StringVar(&f.debugger, "debugger", execution.DefaultDebugger, "Console debugger binary")
	pf.StringVar(&f.dump, "dump", "", "Crash dump file to open")
	pf.IntVar(&f.depth, "depth", execution.DefaultDepth, "Expansion depth passed to do2")
	pf.IntVar(&f.count, "count", execution.DefaultCount, "Result count passed to do2 (0 = unlimited)")
	pf.StringVar(&f.commandTemplate, "command-template", "", "Override the do2 command template")
	pf.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "Debugger timeout")
	pf.IntVar(&f.cacheSize, "cache-size", execution.DefaultCacheSize, "Number of command results to cache")
	pf.IntVar(&f.retries, "retries", 1, "Attempts per debugger command (1 = no retry)")
	pf.DurationVar(&f.retryDelay, "retry-delay", execution.DefaultRetryDelay, "Pause between debugger attempts")

	rootCmd.AddCommand(a.parseCommand(), a.bothCommand(), a.textCommand(), a.schemaCommand())
	return rootCmd
}

func (a *app) parseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <address>",
		Short: "Dump the instance fields of the object at address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine(true)
			if err != nil {
				return err
			}
			result, err := eng.Parse(cmd.Context(), args[0], a.flags.output, a.flags.pretty)
			if err != nil {
				return err
			}
			a.report(result)
			return nil
		},
	}
}

func (a *app) bothCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "both <address>",
		Short: "Dump instance fields, then static fields into a -static sibling file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine(true)
			if err != nil {
				return err
			}
			results, err := eng.ParseBoth(cmd.Context(), args[0], a.flags.output, a.flags.pretty)
			for _, result := range results {
				a.report(result)
			}
			return err
		},
	}
}

func (a *app) textCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "text [file|-]",
		Short: "Parse a saved do2 dump file, or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := a.inputPath(args)
			if err != nil {
				return err
			}
			eng, err := a.engine(false)
			if err != nil {
				return err
			}

			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				return eng.Watch(ctx, input, a.flags.output, a.flags.pretty, func(result *engine.ParseResult, err error) {
					if err != nil {
						a.log.ErrorWithErr("parse failed", err)
						return
					}
					a.report(result)
				})
			}

			result, err := eng.ParseFile(cmd.Context(), input, a.flags.output, a.flags.pretty)
			if err != nil {
				return err
			}
			a.report(result)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Parse again every time the file changes")
	return cmd
}

func (a *app) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(treefmt.Schema())
			return err
		},
	}
}

// setup loads configuration, applies flag overrides and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	var files []string
	if a.flags.envFile != "" {
		files = append(files, a.flags.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if changed("debugger") {
		cfg.Debugger = a.flags.debugger
	}
	if changed("dump") {
		cfg.Dump = a.flags.dump
	}
	if changed("depth") {
		cfg.Depth = a.flags.depth
	}
	if changed("count") {
		cfg.Count = a.flags.count
	}
	if changed("command-template") {
		cfg.CommandTemplate = a.flags.commandTemplate
	}
	if changed("timeout") {
		cfg.Timeout = a.flags.timeout
	}
	if changed("cache-size") {
		cfg.CacheSize = a.flags.cacheSize
	}
	if changed("retries") {
		cfg.Retries = a.flags.retries
	}
	if changed("retry-delay") {
		cfg.RetryDelay = a.flags.retryDelay
	}
	if changed("debug") {
		cfg.Debug = a.flags.debug
	}
	if changed("log-file") {
		cfg.LogFile = a.flags.logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.log = diag.NewLogger("do2json", a.stderr)
	switch a.flags.logFormat {
	case "text", "":
		a.log.SetFormatter(&diag.TextFormatter{UseColors: a.useColor()})
	case "json":
		a.log.SetFormatter(&diag.JSONFormatter{})
	default:
		return &CLIError{
			Type:    "usage",
			Message: fmt.Sprintf("unknown log format %q", a.flags.logFormat),
			Hint:    "Use --log-format text or --log-format json",
			Code:    ExitInvalidArguments,
		}
	}
	switch {
	case a.flags.logLevel != "":
		level, err := diag.ParseLevel(a.flags.logLevel)
		if err != nil {
			return &CLIError{Type: "usage", Message: err.Error(), Code: ExitInvalidArguments, Cause: err}
		}
		a.log.SetLevel(level)
	case cfg.Debug:
		a.log.SetLevel(diag.LogLevelDebug)
	case a.flags.quiet:
		a.log.SetLevel(diag.LogLevelWarn)
	}

	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return &CLIError{
				Type:    "output",
				Message: fmt.Sprintf("cannot open log file %s", cfg.LogFile),
				Details: err.Error(),
				Code:    ExitIOError,
				Cause:   err,
			}
		}
		a.closers = append(a.closers, logFile)
		a.log.AddOutput(logFile)
		a.log.Debugf("log file opened: %s", cfg.LogFile)
	}
	return nil
}

// engine builds an engine; withRunner attaches the debugger runner
func (a *app) engine(withRunner bool) (*engine.Engine, error) {
	format, err := treefmt.ParseFormat(a.flags.format)
	if err != nil {
		return nil, &CLIError{Type: "usage", Message: err.Error(), Code: ExitInvalidArguments, Cause: err}
	}

	var parserOpts []parser.ParserOpt
	if a.flags.clampIndent {
		parserOpts = append(parserOpts, parser.WithIndentClamp())
	}
	if a.cfg.Debug {
		parserOpts = append(parserOpts, parser.WithTelemetryTiming())
	}

	// stdout carries output verbatim, one emission per write
	out := diag.NewLogger("output", a.stdout)
	out.SetChunkSize(0)

	opts := engine.Options{
		Log:        a.log,
		Sink:       out,
		Stdin:      a.stdin,
		Format:     format,
		Select:     a.flags.selectPath,
		Validate:   a.flags.validate,
		Depth:      a.cfg.Depth,
		Count:      a.cfg.Count,
		Template:   a.cfg.CommandTemplate,
		ParserOpts: parserOpts,
	}

	var runner execution.Runner
	if withRunner {
		runner, err = a.newRunner(a.cfg, a.log)
		if err != nil {
			return nil, err
		}
	}
	return engine.New(runner, opts), nil
}

// debuggerRunner runs commands through the configured console debugger,
// retrying failed runs and caching results by command
func debuggerRunner(cfg *config.Config, log *diag.Logger) (execution.Runner, error) {
	log = log.WithField("dump", cfg.Dump)
	dbg := execution.NewDebuggerRunner(cfg.Debugger, cfg.Dump, cfg.Timeout)
	dbg.Log = log
	retry := execution.NewRetryRunner(dbg, cfg.Retries, cfg.RetryDelay, log)
	return execution.NewCachedRunner(retry, cfg.CacheSize)
}

// inputPath resolves the text command's input: an explicit path, "-" for
// stdin, or stdin when nothing is named and data is piped in
func (a *app) inputPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if hasPipedInput(a.stdin) {
		return "-", nil
	}
	return "", &CLIError{
		Type:    "usage",
		Message: "no dump file given",
		Hint:    "Pass a file path, or - to read from stdin",
		Code:    ExitInvalidArguments,
	}
}

// hasPipedInput detects if there's data piped to stdin
func hasPipedInput(stdin io.Reader) bool {
	f, ok := stdin.(*os.File)
	if !ok {
		return stdin != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// report logs a one-line summary of a finished pass
func (a *app) report(result *engine.ParseResult) {
	if result.Empty() {
		a.log.Warnf("%s pass: no input, nothing written", result.Pass)
		return
	}
	stats := result.Stats
	a.log.Infof("%s pass: %d fields, depth %d, %d unmatched, %d overwritten, %d rejected",
		result.Pass, stats.Properties, result.Tree.Depth(), stats.Unmatched, stats.Overwrites, stats.Rejected)
	if stats.Duration > 0 {
		a.log.Debugf("%s pass: parsed %d lines in %s", result.Pass, stats.Lines, stats.Duration)
	}
	for _, w := range result.Warnings {
		a.log.Debug(w.String())
	}
}

func (a *app) useColor() bool {
	if f, ok := a.stderr.(*os.File); ok {
		return ShouldUseColor(a.flags.noColor, f)
	}
	return false
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
}
