// internal/workers/scoring/score-submission/schema.go
package scoresubmission

import "pitch-scorer/internal/common/validation"

// scoreSchemaJSON accepts both category shapes: a bare integer and the
// {score, reasoning, evidence} object.
const scoreSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["overall_score", "category_scores", "confidence", "summary", "key_risks", "recommended_next_step", "pass"],
  "properties": {
    "overall_score": {"type": "integer", "minimum": 0, "maximum": 20},
    "category_scores": {
      "type": "object",
      "additionalProperties": false,
      "required": ["market", "financials", "team", "product"],
      "properties": {
        "market":     {"$ref": "#/definitions/category"},
        "financials": {"$ref": "#/definitions/category"},
        "team":       {"$ref": "#/definitions/category"},
        "product":    {"$ref": "#/definitions/category"}
      }
    },
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "summary": {"type": "string"},
    "key_risks": {"type": "array", "items": {"type": "string"}},
    "recommended_next_step": {"type": "string", "enum": ["no", "follow-up", "diligence"]},
    "pass": {"type": "boolean"}
  },
  "definitions": {
    "category": {
      "oneOf": [
        {"type": "integer", "minimum": 0, "maximum": 5},
        {
          "type": "object",
          "additionalProperties": false,
          "required": ["score", "reasoning", "evidence"],
          "properties": {
            "score": {"type": "integer", "minimum": 0, "maximum": 5},
            "reasoning": {"type": "string"},
            "evidence": {"type": "array", "items": {"type": "string"}}
          }
        }
      ]
    }
  }
}`

var scoreSchema = validation.MustCompileSchema(scoreSchemaJSON)
