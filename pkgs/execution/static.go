package execution

import (
	"context"
	"sync"

	"github.com/aledsdavies/do2json/pkgs/lexer"
)

// StaticRunner serves canned command output
type StaticRunner struct {
	Outputs map[string][]string
	Errors  map[string]error

	mu    sync.Mutex
	calls []string
}

// NewStaticRunner creates an empty StaticRunner
func NewStaticRunner() *StaticRunner {
	return &StaticRunner{
		Outputs: make(map[string][]string),
		Errors:  make(map[string]error),
	}
}

// Add registers raw output text for command
func (r *StaticRunner) Add(command, raw string) *StaticRunner {
	r.Outputs[command] = lexer.SplitLines(raw)
	return r
}

// Fail makes command return err
func (r *StaticRunner) Fail(command string, err error) *StaticRunner {
	r.Errors[command] = err
	return r
}

// Run implements Runner
func (r *StaticRunner) Run(ctx context.Context, command string) ([]string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, command)
	r.mu.Unlock()

	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if err, ok := r.Errors[command]; ok {
		return nil, err
	}
	lines := r.Outputs[command]
	if len(lines) == 0 {
		return nil, ErrNoResult
	}
	return append([]string(nil), lines...), nil
}

// Calls returns the commands run so far, in order
func (r *StaticRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
