package lexer

import (
	"regexp"
	"strings"
)

// NullMarker is printed in place of the bracketed type for null references
const NullMarker = "NULL"

var (
	// 0x000001d61af5e430 System.Net.HttpWebResponse
	rootPattern = regexp.MustCompile(`^(\s*)0x[0-9A-Fa-f]+\s+(\S+)\s*$`)

	// <indent><id:4 hex> <name> : [value] (<type>)|NULL[<one char>][attributes]
	propertyPattern = regexp.MustCompile(`^(\s+)([0-9A-Fa-f]{4})\s(\S+?)\s+:\s?(.+?)?\s(\(.+?\)|NULL)\S?($|.+$)`)
)

// Classify categorizes a single line of dump output.
// Root is checked before Property; a line matching neither is Unmatched.
func Classify(line string) Line {
	line = strings.TrimRight(line, "\r")

	if m := rootPattern.FindStringSubmatch(line); m != nil {
		return Line{
			Kind:   Root,
			Raw:    line,
			Indent: m[1],
			Name:   m[2],
		}
	}

	if idx := propertyPattern.FindStringSubmatchIndex(line); idx != nil {
		l := Line{
			Kind:         Property,
			Raw:          line,
			Indent:       group(line, idx, 1),
			ID:           group(line, idx, 2),
			Name:         group(line, idx, 3),
			PropertyType: group(line, idx, 5),
			Attributes:   group(line, idx, 6),
		}
		if idx[8] >= 0 {
			l.Value = line[idx[8]:idx[9]]
			l.HasValue = true
		}
		return l
	}

	return Line{Kind: Unmatched, Raw: line}
}

// ClassifyAll classifies every line, numbering them from 1.
// Blank lines are dropped.
func ClassifyAll(lines []string) []Line {
	result := make([]Line, 0, len(lines))
	for i, raw := range lines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		l := Classify(raw)
		l.Number = i + 1
		result = append(result, l)
	}
	return result
}

// SplitLines splits raw dump text on LF or CRLF line endings
func SplitLines(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
}

func group(s string, idx []int, n int) string {
	if idx[2*n] < 0 {
		return ""
	}
	return s[idx[2*n]:idx[2*n+1]]
}
