package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["name", "count"],
  "properties": {
    "name":  {"type": "string"},
    "count": {"type": "integer", "minimum": 0, "maximum": 5},
    "tags":  {"type": "array", "items": {"type": "string"}}
  }
}`

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema(`{"type": 12}`)
	require.Error(t, err)

	assert.Panics(t, func() { MustCompileSchema(`not json`) })
}

func TestSchema_ValidateBytes(t *testing.T) {
	schema := MustCompileSchema(testSchema)

	tests := []struct {
		name      string
		doc       string
		wantValid bool
		wantField string
		wantCode  string
	}{
		{"valid", `{"name":"x","count":3}`, true, "", ""},
		{"missing required", `{"count":1}`, false, "name", "REQUIRED"},
		{"out of range", `{"name":"x","count":6}`, false, "count", "NUMBER_LTE"},
		{"wrong type", `{"name":"x","count":"3"}`, false, "count", "INVALID_TYPE"},
		{"extra key", `{"name":"x","count":1,"extra":true}`, false, "(root)", "ADDITIONAL_PROPERTY_NOT_ALLOWED"},
		{"nested item", `{"name":"x","count":1,"tags":[1]}`, false, "tags.0", "INVALID_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := schema.ValidateBytes([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			if tt.wantValid {
				assert.Empty(t, res.Errors)
				return
			}
			assert.True(t, res.HasErrors(tt.wantField), "errors: %v", res.GetErrorMessages())
			assert.Equal(t, tt.wantCode, res.GetErrorsForField(tt.wantField)[0].Code)
		})
	}
}

func TestSchema_ValidateBytes_NotJSON(t *testing.T) {
	schema := MustCompileSchema(testSchema)
	_, err := schema.ValidateBytes([]byte("```json {}```"))
	assert.Error(t, err)
}

func TestSchema_ValidateGo(t *testing.T) {
	schema := MustCompileSchema(testSchema)
	res, err := schema.ValidateGo(map[string]interface{}{"name": "x", "count": 2})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, testSchema, schema.Raw())
}

func TestValidationResult_Add(t *testing.T) {
	res := &ValidationResult{Valid: true}
	res.Add("overall_score", "does not equal the category sum", "SUM_MISMATCH")

	assert.False(t, res.Valid)
	assert.Equal(t, []string{"overall_score: does not equal the category sum"}, res.GetErrorMessages())
	assert.Len(t, res.GetErrorsForField("overall_score"), 1)
	assert.Empty(t, res.GetErrorsForField("summary"))
}
