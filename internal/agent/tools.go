package agent

import (
	"encoding/json"

	"github.com/caldermed/triage/internal/domain"
)

// The closed set of capabilities the assessment model may invoke.
const (
	ToolGetPatientRecord = "get_patient_record"
	ToolSearchGuidelines = "search_guidelines"
)

func assessmentTools() []domain.ToolSpec {
	return []domain.ToolSpec{
		{
			Name: ToolGetPatientRecord,
			Description: "Retrieve structured patient data (age, gender, smoking history, " +
				"symptoms, symptom duration) from the patient database by their unique ID.",
			Params: []domain.ToolParam{
				{
					Name:        "patient_id",
					Type:        "string",
					Description: "Unique patient identifier, e.g. 'PT-101'",
					Required:    true,
				},
			},
		},
		{
			Name: ToolSearchGuidelines,
			Description: "Semantic search over the NICE NG12 cancer guidelines. Returns the " +
				"most relevant guideline passages with page numbers. Use targeted queries " +
				"that combine symptoms with patient characteristics for best results.",
			Params: []domain.ToolParam{
				{
					Name:        "query",
					Type:        "string",
					Description: "Natural-language query, e.g. 'unexplained hemoptysis urgent referral criteria male smoker over 40'",
					Required:    true,
				},
				{
					Name:        "top_k",
					Type:        "integer",
					Description: "Number of results to return (default 5)",
					Required:    false,
				},
			},
		},
	}
}

// toolError wraps a failure as a result the model can recover from.
func toolError(name, message string) domain.ToolResult {
	return domain.ToolResult{
		Name:     name,
		Response: map[string]any{"error": message},
	}
}

// toJSONValue round-trips a value through JSON so tool responses contain
// only plain maps, slices, and scalars the gateway can serialize.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// stringArg extracts a required string argument from model-provided args.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// intArg extracts an optional integer argument. Numbers arrive as float64
// from the wire.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	}
	return 0
}
