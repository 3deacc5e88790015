package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() JSONSchema {
	return JSONSchema{
		Type:     "object",
		Required: []string{"email", "score", "meta"},
		Properties: map[string]Property{
			"email": {Type: "string", MinLength: IntPtr(3)},
			"score": {Type: "integer", Minimum: FloatPtr(0)},
			"tag":   {Type: "string", Enum: []string{"a", "b"}},
			"meta": {
				Type:       "object",
				Required:   []string{"flag"},
				Properties: map[string]Property{"flag": {Type: "boolean"}},
			},
		},
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name          string
		doc           string
		valid         bool
		expectedField string
		expectedCode  string
	}{
		{"valid", `{"email":"a@b.io","score":3,"tag":"a","meta":{"flag":true}}`, true, "", ""},
		{"missing root field", `{"email":"a@b.io","meta":{"flag":true}}`, false, "score", "REQUIRED_FIELD_MISSING"},
		{"missing nested field", `{"email":"a@b.io","score":1,"meta":{}}`, false, "meta.flag", "REQUIRED_FIELD_MISSING"},
		{"wrong type", `{"email":"a@b.io","score":"high","meta":{"flag":true}}`, false, "score", "INVALID_TYPE"},
		{"enum", `{"email":"a@b.io","score":1,"tag":"z","meta":{"flag":true}}`, false, "tag", "INVALID_ENUM_VALUE"},
		{"minimum", `{"email":"a@b.io","score":-1,"meta":{"flag":true}}`, false, "score", "MINIMUM_VIOLATION"},
		{"malformed", `{"email":`, false, "(root)", "INVALID_DOCUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateJSON([]byte(tt.doc), testSchema())

			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				require.NotEmpty(t, result.Errors)
				assert.True(t, result.HasErrors(tt.expectedField), "errors: %v", result.GetErrorMessages())
				assert.Equal(t, tt.expectedCode, result.GetErrorsForField(tt.expectedField)[0].Code)
			}
		})
	}
}

func TestValidateInput_GoValue(t *testing.T) {
	input := map[string]interface{}{
		"email": "a@b.io",
		"score": 10,
		"meta":  map[string]interface{}{"flag": false},
	}

	result := ValidateInput(input, testSchema())

	assert.True(t, result.Valid, "errors: %v", result.GetErrorMessages())
}

func TestGetErrorsForField_Prefix(t *testing.T) {
	vr := &ValidationResult{Errors: []ValidationError{
		{Field: "meta.flag"}, {Field: "metadata"}, {Field: "items[0]"},
	}}

	assert.Len(t, vr.GetErrorsForField("meta"), 1)
	assert.Len(t, vr.GetErrorsForField("items"), 1)
}

func TestValidateEmailAndURL(t *testing.T) {
	assert.True(t, ValidateEmail("jane@acme.com"))
	assert.False(t, ValidateEmail("jane@acme"))
	assert.True(t, ValidateURL("https://calendly.com/kanhasoft/demo"))
	assert.False(t, ValidateURL("calendly"))
}
