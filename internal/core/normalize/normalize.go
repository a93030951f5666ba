// Package normalize recovers a JSON object from raw completion text and checks
// it against the expected result schema.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

const codeFence = "```"

// Normalize trims raw model output and isolates the outermost JSON object.
// Fenced output and output wrapped in prose are both sliced from the first
// '{' to the last '}'. No interior repair is attempted.
func Normalize(raw string) (json.RawMessage, error) {
	candidate := strings.TrimSpace(raw)
	if strings.HasPrefix(candidate, codeFence) || !strings.HasPrefix(candidate, "{") {
		sliced, ok := sliceObject(candidate)
		if !ok {
			return nil, &domain.MalformedResponseError{Raw: raw, Cause: errors.New("no JSON object found")}
		}
		candidate = sliced
	}

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Cause: err}
	}
	return json.RawMessage(candidate), nil
}

func sliceObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Classification normalizes raw, validates it and decodes the classification.
func Classification(raw string) (*domain.Classification, error) {
	value, err := normalizeAndValidate(domain.TaskClassify, raw)
	if err != nil {
		return nil, err
	}
	var out domain.Classification
	if err := json.Unmarshal(value, &out); err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Cause: err}
	}
	if !out.IsPOA {
		out.POAType = nil
	}
	return &out, nil
}

// Analysis normalizes raw, validates it and decodes the analysis with every
// list field present.
func Analysis(raw string) (*domain.Analysis, error) {
	value, err := normalizeAndValidate(domain.TaskAnalyze, raw)
	if err != nil {
		return nil, err
	}
	var out domain.Analysis
	if err := json.Unmarshal(value, &out); err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Cause: err}
	}
	out.FillEmpty()
	return &out, nil
}

func normalizeAndValidate(kind domain.TaskKind, raw string) (json.RawMessage, error) {
	value, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(kind, value); err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Cause: err}
	}
	return value, nil
}

// Validate checks value against the result schema of the given task kind.
func Validate(kind domain.TaskKind, value json.RawMessage) error {
	schema, err := schemaFor(kind)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(value, &doc); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match %s schema: %w", kind, err)
	}
	return nil
}
