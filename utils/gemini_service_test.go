package utils

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestGenaiSchema(t *testing.T) {
	s, err := NewResponseSchema("Process", Process{})
	if err != nil {
		t.Fatalf("NewResponseSchema failed: %v", err)
	}

	gs := GenaiSchema(s.Flat)
	if gs.Type != genai.TypeObject {
		t.Fatalf("Type = %v, want object", gs.Type)
	}
	actions, ok := gs.Properties["actions"]
	if !ok || actions.Type != genai.TypeArray || actions.Items == nil {
		t.Fatalf("Unexpected actions schema: %+v", actions)
	}
	ts := actions.Items.Properties["timeStamp"]
	if ts == nil || ts.Type != genai.TypeString || ts.Description == "" {
		t.Errorf("Unexpected timeStamp schema: %+v", ts)
	}
	if len(gs.Required) != 4 {
		t.Errorf("Expected 4 required fields, got %v", gs.Required)
	}
}

func TestGenaiSchemaBounds(t *testing.T) {
	gs := GenaiSchema(map[string]any{
		"type":    []any{"integer", "null"},
		"minimum": float64(1),
		"maximum": float64(5),
	})
	if gs.Type != genai.TypeInteger {
		t.Errorf("Type = %v, want integer", gs.Type)
	}
	if gs.Minimum == nil || *gs.Minimum != 1 || gs.Maximum == nil || *gs.Maximum != 5 {
		t.Errorf("Unexpected bounds: %v %v", gs.Minimum, gs.Maximum)
	}
}

func TestGenaiContent(t *testing.T) {
	content := genaiContent([]Part{
		TextPart("<VIDEO>"),
		FilePart("gs://b/v.mp4", "video/mp4"),
		TextPart("</VIDEO>"),
	})
	if content.Role != "user" {
		t.Errorf("Role = %q, want user", content.Role)
	}
	if len(content.Parts) != 3 {
		t.Fatalf("Expected 3 parts, got %d", len(content.Parts))
	}
	fd := content.Parts[1].FileData
	if fd == nil || fd.FileURI != "gs://b/v.mp4" || fd.MIMEType != "video/mp4" {
		t.Errorf("Unexpected file part: %+v", fd)
	}
	if content.Parts[0].Text != "<VIDEO>" {
		t.Errorf("Unexpected text part: %q", content.Parts[0].Text)
	}
}

func TestIsInvalidArgument(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad request", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "Cached content is too small"}, true},
		{"wrapped", fmt.Errorf("create: %w", genai.APIError{Code: 400}), true},
		{"permission", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isInvalidArgument(tt.err); got != tt.want {
				t.Errorf("isInvalidArgument = %v, want %v", got, tt.want)
			}
		})
	}
}
