package signal

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const analyzeSchemaJSON = `{
  "type": "object",
  "properties": {
    "ai_score":          {"$ref": "#/$defs/unit"},
    "quality_score":     {"$ref": "#/$defs/unit"},
    "originality_score": {"$ref": "#/$defs/unit"},
    "execution_score":   {"$ref": "#/$defs/unit"},
    "market_value":      {"$ref": "#/$defs/unit"},
    "findings":          {"type": "array", "items": {"type": "string"}},
    "recommendations":   {"type": "array", "items": {"type": "string"}}
  },
  "$defs": {
    "unit": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

const verifySchemaJSON = `{
  "type": "object",
  "properties": {
    "is_real_ai":          {"type": "boolean"},
    "implementation_type": {"enum": ["framework", "api", "hybrid", "none"]},
    "confidence":          {"type": "number", "minimum": 0, "maximum": 1},
    "evidence":            {"type": "array", "items": {"type": "string"}},
    "suggestions":         {"type": "array", "items": {"type": "string"}}
  }
}`

const marketSchemaJSON = `{
  "type": "object",
  "properties": {
    "popularity_score":   {"$ref": "#/$defs/unit"},
    "adoption_score":     {"$ref": "#/$defs/unit"},
    "impact_score":       {"$ref": "#/$defs/unit"},
    "popularity_metrics": {"type": "object"},
    "community_metrics":  {"type": "object"},
    "market_context":     {"type": "string"},
    "recommendations":    {"type": "array", "items": {"type": "string"}}
  },
  "$defs": {
    "unit": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

const originalitySchemaJSON = `{
  "type": "object",
  "properties": {
    "originality_score": {"type": "number", "minimum": 0, "maximum": 1},
    "is_likely_copied":  {"type": "boolean"},
    "common_patterns":   {"type": "array", "items": {"type": "string"}},
    "unique_elements":   {"type": "array", "items": {"type": "string"}},
    "recommendations":   {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	analyzeSchema     = mustCompileSchema(analyzeSchemaJSON, "analyze.schema.json")
	verifySchema      = mustCompileSchema(verifySchemaJSON, "verify.schema.json")
	marketSchema      = mustCompileSchema(marketSchemaJSON, "market_context.schema.json")
	originalitySchema = mustCompileSchema(originalitySchemaJSON, "originality.schema.json")
)

func mustCompileSchema(raw, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}
