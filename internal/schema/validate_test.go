package schema

import "testing"

const testSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"}
	},
	"required": ["name"]
}`

func TestValidateAccepts(t *testing.T) {
	if err := Validate([]byte(testSchema), []byte(`{"name":"fox"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsWrongType(t *testing.T) {
	if err := Validate([]byte(testSchema), []byte(`{"name":42}`)); err == nil {
		t.Fatal("want validation error")
	}
}

func TestValidateRejectsMissingRequired(t *testing.T) {
	if err := Validate([]byte(testSchema), []byte(`{}`)); err == nil {
		t.Fatal("want validation error")
	}
}

func TestValidateEmptySchemaAcceptsAll(t *testing.T) {
	if err := Validate(nil, []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateEmptyInput(t *testing.T) {
	if err := Validate([]byte(testSchema), nil); err == nil {
		t.Fatal("want error for empty input")
	}
}
