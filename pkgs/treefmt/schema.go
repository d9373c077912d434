package treefmt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/aledsdavies/do2json/pkgs/errors"
	"github.com/aledsdavies/do2json/pkgs/invariant"
)

//go:embed node.schema.json
var nodeSchema []byte

const schemaURL = "schema://node.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
)

// Schema returns the JSON Schema every rendered tree conforms to
func Schema() []byte {
	out := make([]byte, len(nodeSchema))
	copy(out, nodeSchema)
	return out
}

// Validate checks JSON output against the tree schema
func Validate(data []byte) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return errors.Wrap(errors.ErrSchemaValidation, "output is not valid JSON", err)
	}

	if err := schema().Validate(doc); err != nil {
		return convertValidationError(err)
	}
	return nil
}

func schema() *jsonschema.Schema {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.LoadURL = func(url string) (io.ReadCloser, error) {
			return nil, fmt.Errorf("remote $ref not allowed: %s", url)
		}

		err := compiler.AddResource(schemaURL, bytes.NewReader(nodeSchema))
		invariant.ExpectNoError(err, "adding embedded schema")

		compiledSchema, err = compiler.Compile(schemaURL)
		invariant.ExpectNoError(err, "compiling embedded schema")
	})
	return compiledSchema
}

// convertValidationError flattens a jsonschema.ValidationError into one
// line per failing location
func convertValidationError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}

	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)

	return errors.Wrap(errors.ErrSchemaValidation,
		fmt.Sprintf("schema validation failed:\n  %s", strings.Join(msgs, "\n  ")), err)
}
