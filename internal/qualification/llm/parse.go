// internal/qualification/llm/parse.go
package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/common/validation"
	"lead-qualifier/internal/models"
	"lead-qualifier/internal/qualification"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

func tagNames() []string {
	tags := models.AllTags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

// ResponseSchema is the contract the model's JSON block must satisfy.
func ResponseSchema() validation.JSONSchema {
	boolean := validation.Property{Type: "boolean"}
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"updatedLead", "updatedState", "response"},
		Properties: map[string]validation.Property{
			"updatedLead": {
				Type:     "object",
				Required: []string{"score", "relevanceTag"},
				Properties: map[string]validation.Property{
					"email":        {Type: "string"},
					"companyName":  {Type: "string"},
					"score":        {Type: "integer"},
					"relevanceTag": {Type: "string", Enum: tagNames()},
				},
			},
			"updatedState": {
				Type: "object",
				Required: []string{
					"hasAskedEmail", "hasAskedCompany", "hasAskedBudget", "hasAskedTeamSize",
					"hasAskedTimeline", "hasFinishedQualifying", "hasOfferedCalendly",
				},
				Properties: map[string]validation.Property{
					"hasAskedEmail":         boolean,
					"hasAskedCompany":       boolean,
					"hasAskedBudget":        boolean,
					"hasAskedTeamSize":      boolean,
					"hasAskedTimeline":      boolean,
					"hasFinishedQualifying": boolean,
					"hasOfferedCalendly":    boolean,
				},
			},
			"response": {Type: "string", MinLength: validation.IntPtr(1)},
		},
	}
}

// ParseResponse extracts the first fenced json block from a model answer and
// decodes it into a Turn. Every failure is an extraction error.
func ParseResponse(text string) (*qualification.Turn, error) {
	m := fencedJSON.FindStringSubmatch(text)
	if m == nil {
		return nil, apperrors.NewExtractionError("no fenced json block in model response", nil)
	}
	block := strings.TrimSpace(m[1])

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return nil, apperrors.NewExtractionError("fenced block is not valid JSON", err)
	}
	dropNullStrings(doc, "updatedLead", "email", "companyName")

	result := validation.ValidateInput(doc, ResponseSchema())
	if !result.Valid {
		return nil, apperrors.NewExtractionError(strings.Join(result.GetErrorMessages(), "; "), nil)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, apperrors.NewExtractionError("re-encode model response", err)
	}
	var turn qualification.Turn
	if err := json.Unmarshal(normalized, &turn); err != nil {
		return nil, apperrors.NewExtractionError("decode model response", err)
	}
	return &turn, nil
}

// dropNullStrings removes null optional fields so they decode as "".
func dropNullStrings(doc map[string]interface{}, object string, fields ...string) {
	obj, ok := doc[object].(map[string]interface{})
	if !ok {
		return
	}
	for _, f := range fields {
		if v, exists := obj[f]; exists && v == nil {
			delete(obj, f)
		}
	}
}
