package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
)

// MustCompileSchema compiles a Draft 2020-12 JSON Schema for generator
// output. It panics on an invalid schema and is meant for package-level
// variables.
func MustCompileSchema(name, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://agentic-planner.local/schemas/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("loading schema %s: %v", name, err))
	}
	return c.MustCompile(url)
}

// Decode strips any markdown fence from raw, validates the JSON against
// schema, and unmarshals it into out. Every failure is ErrOracleMalformed.
func Decode(raw string, schema *jsonschema.Schema, out any) error {
	body := StripFence(raw)
	if body == "" {
		return fmt.Errorf("%w: empty response", apperrors.ErrOracleMalformed)
	}

	var doc any
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return apperrors.Mark(fmt.Errorf("parsing JSON: %w", err), apperrors.ErrOracleMalformed)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", apperrors.ErrOracleMalformed)
	}

	if schema != nil {
		if err := schema.Validate(doc); err != nil {
			return apperrors.Mark(fmt.Errorf("validating output: %w", err), apperrors.ErrOracleMalformed)
		}
	}

	if err := json.NewDecoder(bytes.NewReader([]byte(body))).Decode(out); err != nil {
		return apperrors.Mark(fmt.Errorf("decoding output: %w", err), apperrors.ErrOracleMalformed)
	}
	return nil
}
