package ast

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SelectError is returned when a path segment names no child
type SelectError struct {
	Path       string
	Missing    string
	Suggestion string
}

func (e *SelectError) Error() string {
	msg := fmt.Sprintf("no field %q under %q", e.Missing, e.Path)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// Select follows a dot separated path of child names from n.
// An empty path selects n itself.
func (n *Node) Select(path string) (*Node, error) {
	path = strings.Trim(path, ".")
	if path == "" {
		return n, nil
	}

	current := n
	walked := []string{n.Name}
	for _, segment := range strings.Split(path, ".") {
		child, ok := current.Children.Get(segment)
		if !ok {
			return nil, &SelectError{
				Path:       strings.Join(walked, "."),
				Missing:    segment,
				Suggestion: findClosestMatch(segment, current.Children.Names()),
			}
		}
		current = child
		walked = append(walked, segment)
	}
	return current, nil
}

// findClosestMatch finds the closest child name using fuzzy matching
func findClosestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return best.Target
}
