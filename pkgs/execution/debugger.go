package execution

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/aledsdavies/do2json/pkgs/diag"
	"github.com/aledsdavies/do2json/pkgs/errors"
	"github.com/aledsdavies/do2json/pkgs/lexer"
)

// DefaultDebugger is the console debugger used when none is configured
const DefaultDebugger = "cdb"

// promptPattern matches a debugger prompt such as "0:000> " or "0:000:x86> "
var promptPattern = regexp.MustCompile(`^\s*\d+:\d+(:[\w-]+)?>\s?`)

// DebuggerRunner runs commands against a crash dump with a console debugger:
//
//	<Binary> <Args...> -z <Dump> -c "<command>;q"
type DebuggerRunner struct {
	Binary  string
	Args    []string // inserted before -z
	Dump    string
	Timeout time.Duration
	Dir     string
	Log     *diag.Logger
}

// NewDebuggerRunner creates a runner for the given dump file
func NewDebuggerRunner(binary, dump string, timeout time.Duration) *DebuggerRunner {
	if binary == "" {
		binary = DefaultDebugger
	}
	return &DebuggerRunner{
		Binary:  binary,
		Dump:    dump,
		Timeout: timeout,
		Log:     diag.Discard(),
	}
}

// Run executes command and returns the lines it printed, without the
// debugger's banner and prompts
func (r *DebuggerRunner) Run(ctx context.Context, command string) ([]string, error) {
	if r.Dump == "" {
		return nil, errors.NewConfigError("no dump file configured for the debugger", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, r.Args...), "-z", r.Dump, "-c", command+";q")
	cmd := exec.CommandContext(ctx, r.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}

	log := r.logger()
	log.Debugf("running %s %s", r.binary(), strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	log.Debugf("debugger exited after %s (%d bytes)", time.Since(start).Round(time.Millisecond), stdout.Len())

	if ctxErr := ctx.Err(); ctxErr != nil {
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, errors.Wrap(errors.ErrTimeout,
				fmt.Sprintf("debugger did not finish within %s", r.Timeout), ctxErr).
				WithContext("command", command)
		}
		return nil, errors.NewCommandExecutionError(command, ctxErr)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, errors.NewCommandExecutionError(command, err)
	}

	lines := StripDebuggerOutput(lexer.SplitLines(stdout.String()))
	if len(lines) == 0 {
		return nil, ErrNoResult
	}
	return lines, nil
}

func (r *DebuggerRunner) binary() string {
	if r.Binary == "" {
		return DefaultDebugger
	}
	return r.Binary
}

func (r *DebuggerRunner) logger() *diag.Logger {
	if r.Log == nil {
		return diag.Discard()
	}
	return r.Log
}

// StripDebuggerOutput keeps only what the command printed: everything after
// the first prompt echo up to the next prompt or "quit:". Output with no
// prompt at all is returned unchanged. Leading and trailing blank lines are
// dropped.
func StripDebuggerOutput(lines []string) []string {
	start := -1
	for i, line := range lines {
		if promptPattern.MatchString(line) {
			start = i + 1
			break
		}
	}

	body := lines
	if start >= 0 {
		body = lines[start:]
		for i, line := range body {
			if promptPattern.MatchString(line) || strings.TrimSpace(line) == "quit:" {
				body = body[:i]
				break
			}
		}
	}

	for len(body) > 0 && strings.TrimSpace(body[0]) == "" {
		body = body[1:]
	}
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	if len(body) == 0 {
		return nil
	}
	return append([]string(nil), body...)
}
