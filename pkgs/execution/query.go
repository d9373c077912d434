package execution

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/aledsdavies/do2json/pkgs/errors"
)

// DefaultTemplate renders the do2 invocation for one object address.
// -c limits the number of results (0 = unlimited), -e the expansion depth.
const DefaultTemplate = "!do2 -c {{.Count}} -e {{.Depth}} -f -vi {{if .Static}}-static {{end}}{{.Target}}"

const (
	DefaultDepth = 20
	DefaultCount = 0
)

// Query describes one dump request
type Query struct {
	Target   string
	Static   bool
	Depth    int
	Count    int
	Template string // empty means DefaultTemplate
}

// ForPass returns a copy of q for the given pass
func (q Query) ForPass(pass Pass) Query {
	q.Static = pass == StaticPass
	return q
}

// Pass reports which pass q belongs to
func (q Query) Pass() Pass {
	if q.Static {
		return StaticPass
	}
	return InstancePass
}

// Render expands the command template
func (q Query) Render() (string, error) {
	if strings.TrimSpace(q.Target) == "" {
		return "", errors.New(errors.ErrCommandQuery, "no target address given")
	}
	if q.Depth < 0 || q.Count < 0 {
		return "", errors.New(errors.ErrCommandQuery,
			fmt.Sprintf("depth and count must not be negative (depth=%d, count=%d)", q.Depth, q.Count))
	}

	tmpl, err := ParseTemplate(q.Template)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, q); err != nil {
		return "", errors.Wrap(errors.ErrCommandQuery, "failed to render command template", err).
			WithContext("target", q.Target)
	}
	return strings.TrimSpace(buf.String()), nil
}

// ParseTemplate compiles a command template, falling back to DefaultTemplate
// when text is empty
func ParseTemplate(text string) (*template.Template, error) {
	if text == "" {
		text = DefaultTemplate
	}
	tmpl, err := template.New("command").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCommandQuery, "invalid command template", err).
			WithContext("template", text)
	}
	return tmpl, nil
}
