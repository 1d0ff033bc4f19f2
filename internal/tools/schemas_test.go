package tools

import (
	"encoding/json"
	"testing"
)

func TestErrorFieldsAreFlattened(t *testing.T) {
	resp := ValidateCrateResponse{
		ErrorFields: ErrorFields{Status: StatusError, Code: "VALIDATION_ERROR", Error: "bad crate"},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal ValidateCrateResponse: %v", err)
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(data, &jsonMap); err != nil {
		t.Fatalf("Failed to unmarshal JSON into map: %v", err)
	}

	if jsonMap["status"] != StatusError || jsonMap["code"] != "VALIDATION_ERROR" || jsonMap["error"] != "bad crate" {
		t.Errorf("Expected error fields at top level, got %s", data)
	}
	if _, nested := jsonMap["ErrorFields"]; nested {
		t.Errorf("ErrorFields should not be nested: %s", data)
	}
}

func TestSuccessResponseOmitsErrorFields(t *testing.T) {
	data, err := json.Marshal(DescribeCrateResponse{
		ErrorFields: ErrorFields{Status: StatusSuccess},
		Description: "An ocean survey.",
	})
	if err != nil {
		t.Fatalf("Failed to marshal DescribeCrateResponse: %v", err)
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(data, &jsonMap); err != nil {
		t.Fatalf("Failed to unmarshal JSON into map: %v", err)
	}
	for _, key := range []string{"code", "error", "error_kind", "issues"} {
		if _, ok := jsonMap[key]; ok {
			t.Errorf("Expected %q to be omitted, got %s", key, data)
		}
	}
	if jsonMap["description"] != "An ocean survey." {
		t.Errorf("Unexpected description in %s", data)
	}
}
