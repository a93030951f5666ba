package normalize

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

const classificationSchema = `{
  "type": "object",
  "required": ["isPOA", "confidence"],
  "properties": {
    "isPOA": {"type": "boolean"},
    "poaType": {"type": ["string", "null"]},
    "confidence": {"enum": ["high", "medium", "low"]}
  }
}`

const analysisSchema = `{
  "type": "object",
  "required": ["extractedFields", "summary"],
  "properties": {
    "extractedFields": {
      "type": "object",
      "properties": {
        "principalAddress": {"type": ["string", "null"]},
        "agentAddress": {"type": ["string", "null"]},
        "principalName": {"type": ["string", "null"]},
        "agentNames": {"$ref": "#/$defs/stringList"},
        "successorAgents": {"$ref": "#/$defs/stringList"},
        "stateJurisdiction": {"$ref": "#/$defs/stringList"},
        "executionDate": {"type": ["string", "null"]},
        "notarizationDate": {"type": ["string", "null"]},
        "signatureDetected": {"type": "boolean"}
      }
    },
    "summary": {"type": "string"},
    "overallAssessment": {"type": "string"},
    "strengths": {"$ref": "#/$defs/stringList"},
    "issues": {"$ref": "#/$defs/stringList"},
    "recommendations": {"$ref": "#/$defs/stringList"},
    "disclaimer": {"type": "string"}
  },
  "$defs": {
    "stringList": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

var (
	compileOnce sync.Once
	compiled    map[domain.TaskKind]*jsonschema.Schema
	compileErr  error
)

func schemaFor(kind domain.TaskKind) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[domain.TaskKind]*jsonschema.Schema, 2)
		sources := map[domain.TaskKind]string{
			domain.TaskClassify: classificationSchema,
			domain.TaskAnalyze:  analysisSchema,
		}
		for task, source := range sources {
			compiler := jsonschema.NewCompiler()
			url := string(task) + ".json"
			if err := compiler.AddResource(url, strings.NewReader(source)); err != nil {
				compileErr = fmt.Errorf("add %s schema: %w", task, err)
				return
			}
			schema, err := compiler.Compile(url)
			if err != nil {
				compileErr = fmt.Errorf("compile %s schema: %w", task, err)
				return
			}
			compiled[task] = schema
		}
	})
	if compileErr != nil {
		return nil, compileErr
	}
	schema, ok := compiled[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for task %q", kind)
	}
	return schema, nil
}
