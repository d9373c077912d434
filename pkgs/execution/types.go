package execution

import (
	"context"

	"github.com/aledsdavies/do2json/pkgs/errors"
)

// Runner executes one debugger command and returns its output lines
type Runner interface {
	Run(ctx context.Context, command string) ([]string, error)
}

// ErrNoResult is returned when a command ran but printed nothing.
// It is a NO_INPUT error, so errors.IsNoInput matches it.
var ErrNoResult = errors.New(errors.ErrNoInputType, "command produced no output")

// Pass selects which members of an object a query dumps
type Pass int

const (
	InstancePass Pass = iota // Instance fields
	StaticPass               // Static fields only
)

// String returns a string representation of the pass
func (p Pass) String() string {
	switch p {
	case InstancePass:
		return "instance"
	case StaticPass:
		return "static"
	default:
		return "unknown"
	}
}
