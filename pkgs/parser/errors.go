package parser

import (
	"fmt"
	"strings"
)

// WarningKind represents the categories of recoverable input problems
type WarningKind int

const (
	WarnUnmatched       WarningKind = iota // line matched neither shape
	WarnOrphan                             // property before any root line
	WarnIrregularIndent                    // indentation matches no open level
	WarnUnderflow                          // ascend above the top level
	WarnDiscardedTree                      // a new root replaced an unfinished tree
)

func (k WarningKind) String() string {
	switch k {
	case WarnUnmatched:
		return "unmatched line"
	case WarnOrphan:
		return "orphan property"
	case WarnIrregularIndent:
		return "irregular indentation"
	case WarnUnderflow:
		return "stack underflow"
	case WarnDiscardedTree:
		return "discarded tree"
	default:
		return "warning"
	}
}

// Warning records a line the parser recovered from
type Warning struct {
	Kind    WarningKind
	Line    int // 1-based input line, 0 when unknown
	Message string
	Raw     string
}

func (w Warning) String() string {
	var b strings.Builder
	if w.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", w.Line)
	}
	b.WriteString(w.Kind.String())
	if w.Message != "" {
		b.WriteString(": ")
		b.WriteString(w.Message)
	}
	return b.String()
}

// Count returns how many warnings are of kind
func Count(warnings []Warning, kind WarningKind) int {
	n := 0
	for _, w := range warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
