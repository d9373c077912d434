package diag

import "unicode/utf8"

// Chunk splits text into segments of roughly size bytes for emission.
//
// A segment ends after the last ',', '}', ']' or newline that fits in the
// window, or at the window edge when there is none. A boundary never falls
// inside a double-quoted value: an open quotation extends the segment until
// it closes. Joining the segments yields text unchanged.
func Chunk(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}

	var segments []string
	start := 0
	lastBreak := -1
	inQuote, escaped := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inQuote && c == '\\':
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case !inQuote && isBreak(c):
			lastBreak = i + 1
		}

		if inQuote || i+1-start < size || i+1 == len(text) {
			continue
		}

		cut := i + 1
		if lastBreak > start {
			cut = lastBreak
		} else if !utf8.RuneStart(text[cut]) {
			continue
		}
		segments = append(segments, text[start:cut])
		start = cut
		lastBreak = -1
	}

	if start < len(text) {
		segments = append(segments, text[start:])
	}
	return segments
}

func isBreak(c byte) bool {
	return c == ',' || c == '}' || c == ']' || c == '\n'
}
