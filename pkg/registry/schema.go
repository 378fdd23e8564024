package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// workflowDefinitionSchema guards JSON-loaded definitions before they reach
// struct validation; it catches shape errors (wrong types, missing step ids)
// with clearer messages than unmarshalling alone.
const workflowDefinitionSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name", "steps"],
	"properties": {
		"name": {"type": "string", "minLength": 3},
		"description": {"type": "string"},
		"steps": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "name", "type"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"type": {"enum": ["automatic", "manual", "conditional"]},
					"actions": {"type": "array"},
					"next_steps": {"type": "array", "items": {"type": "string"}},
					"conditions": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["field", "operator", "next_step"],
							"properties": {
								"field": {"type": "string"},
								"operator": {"enum": ["equals", "not_equals", "greater_than", "less_than", "contains"]},
								"next_step": {"type": "string"}
							}
						}
					},
					"assigned_role": {"type": "string"},
					"sla_hours": {"type": "number", "minimum": 0}
				}
			}
		}
	}
}`

// LoadWorkflowJSON parses, schema-checks and registers a JSON workflow
// definition.
func (r *Registry) LoadWorkflowJSON(data []byte) (*models.WorkflowDefinition, error) {
	schemaLoader := gojsonschema.NewStringLoader(workflowDefinitionSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("failed to validate workflow definition: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, fmt.Errorf("workflow definition failed schema validation: %s", strings.Join(details, "; "))
	}

	var def models.WorkflowDefinition

	err = json.Unmarshal(data, &def)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow definition: %w", err)
	}

	err = r.RegisterWorkflow(&def)
	if err != nil {
		return nil, err
	}

	return &def, nil
}
