package lexer

import (
	"fmt"
	"strings"
)

// LineKind represents the shape a dump line was classified as
type LineKind int

const (
	Unmatched LineKind = iota // neither shape; diagnostics only
	Root                      // 0x000001d61af5e430 System.Net.HttpWebResponse
	Property                  //     0020 m_ContentLength : 221 (System.Int64)
)

// Pre-computed kind name lookup for fast debugging
var kindNames = [...]string{
	Unmatched: "UNMATCHED",
	Root:      "ROOT",
	Property:  "PROPERTY",
}

func (k LineKind) String() string {
	if int(k) < len(kindNames) && int(k) >= 0 {
		return kindNames[k]
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// Line is the classified form of one line of dump output.
//
// Only the fields belonging to Kind are populated: a Root carries Name (and
// Indent), a Property carries every field, an Unmatched line carries only Raw.
type Line struct {
	Kind   LineKind
	Number int // 1-based position in the input, 0 when unknown
	Raw    string

	Indent       string
	ID           string
	Name         string
	Value        string
	HasValue     bool
	PropertyType string
	Attributes   string
}

// Level returns the indentation width of the line
func (l Line) Level() int {
	return len(l.Indent)
}

// IsNull reports whether the property was printed with the NULL marker
// instead of a bracketed type
func (l Line) IsNull() bool {
	return l.Kind == Property && l.PropertyType == NullMarker
}

// Position returns a human readable location for diagnostics
func (l Line) Position() string {
	if l.Number == 0 {
		return "?"
	}
	return fmt.Sprintf("line %d", l.Number)
}

// String renders the line for trace output
func (l Line) String() string {
	switch l.Kind {
	case Root:
		return fmt.Sprintf("%s %s", l.Kind, l.Name)
	case Property:
		var b strings.Builder
		fmt.Fprintf(&b, "%s level=%d id=%s name=%s", l.Kind, l.Level(), l.ID, l.Name)
		if l.HasValue {
			fmt.Fprintf(&b, " value=%q", l.Value)
		}
		fmt.Fprintf(&b, " type=%s", l.PropertyType)
		if l.Attributes != "" {
			fmt.Fprintf(&b, " attributes=%q", l.Attributes)
		}
		return b.String()
	default:
		return fmt.Sprintf("%s %q", l.Kind, l.Raw)
	}
}
