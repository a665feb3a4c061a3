package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelAliases(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.5-flash", "gemini-2.5-flash"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, geminiModels); got != tt.want {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(testSchemaReview().Definition)

	if s.Type != genai.TypeObject {
		t.Fatalf("type = %s", s.Type)
	}
	if len(s.Required) != 2 {
		t.Errorf("required = %v", s.Required)
	}
	awards := s.Properties["awards"]
	if awards == nil || awards.Type != genai.TypeArray || awards.Items == nil {
		t.Fatalf("awards = %+v", awards)
	}
	points := awards.Items.Properties["points"]
	if points.Type != genai.TypeInteger || points.Minimum == nil || *points.Minimum != 0 {
		t.Errorf("points = %+v", points)
	}
	if got := s.Properties["verdict"].Enum; len(got) != 2 {
		t.Errorf("verdict enum = %v", got)
	}
}
