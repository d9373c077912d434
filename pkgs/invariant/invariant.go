// Package invariant provides contract assertions for do2json.
//
// All functions panic on violation. They guard programming errors such as a
// missing collaborator or a corrupted frame stack, never malformed dump input:
// bad input is reported through warnings and errors instead.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Precondition checks an input contract at function entry.
//
// Example:
//
//	func (e *Engine) Parse(ctx context.Context, target string) error {
//	    invariant.Precondition(target != "", "target must not be empty")
//	    // ... work ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Invariant checks internal consistency during function execution.
//
// Example:
//
//	invariant.Invariant(s.Depth() > 0, "frame stack must hold the root frame")
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*T)(nil).
func NotNil(value interface{}, name string) {
	if value == nil || isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// NonNegative panics if value < 0.
func NonNegative(value int, name string) {
	if value < 0 {
		fail("PRECONDITION", "%s must not be negative, got %d", name, value)
	}
}

// ExpectNoError panics if err is not nil.
// Use it for operations that cannot fail on well-formed values, such as
// compiling an embedded schema.
func ExpectNoError(err error, msg string) {
	if err != nil {
		fail("POSTCONDITION", "%s must not fail: %v", msg, err)
	}
}

func isNilValue(value interface{}) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// fail panics with a formatted message including the violating call site.
func fail(kind, format string, args ...interface{}) {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}

	panic(msg)
}
