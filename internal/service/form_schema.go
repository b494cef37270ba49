package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrInvalidFormSchema indicates an exam form schema failed to compile.
	ErrInvalidFormSchema = errors.New("invalid form schema")
	// ErrInvalidSubmission indicates a form payload did not satisfy the exam form schema.
	ErrInvalidSubmission = errors.New("submission data does not match exam form schema")
)

const formSchemaResource = "exam-form.schema.json"

// compileFormSchema parses raw as a JSON Schema document.
func compileFormSchema(raw []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(formSchemaResource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormSchema, err)
	}

	schema, err := compiler.Compile(formSchemaResource)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormSchema, err)
	}
	return schema, nil
}

// normalizeFormSchema returns nil for absent or null schemas and the compact document otherwise.
func normalizeFormSchema(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	if _, err := compileFormSchema(trimmed); err != nil {
		return nil, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormSchema, err)
	}
	return compact.Bytes(), nil
}

// validateSubmission checks payload against the schema stored on an exam.
func validateSubmission(raw []byte, payload map[string]interface{}) error {
	schema, err := compileFormSchema(raw)
	if err != nil {
		return err
	}

	// Round-trip so numbers and nested values have the shapes the validator expects.
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	var document interface{}
	if err := json.Unmarshal(encoded, &document); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	if err := schema.Validate(document); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("%w: %s", ErrInvalidSubmission, strings.TrimSpace(validationErr.Error()))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	return nil
}
