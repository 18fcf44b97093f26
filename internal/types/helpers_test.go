package types

import (
	"encoding/json"
	"testing"
)

func TestContentText(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    string
	}{
		{"plain string", "hello", "hello"},
		{"nil", nil, ""},
		{"part array", []any{
			map[string]any{"type": "text", "text": "one"},
			map[string]any{"type": "text", "text": "two"},
		}, "one\ntwo"},
		{"skips non-text parts", []any{
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": "x"}},
			map[string]any{"type": "text", "text": "kept"},
		}, "kept"},
		{"content key fallback", []any{
			map[string]any{"content": "nested"},
		}, "nested"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentText(tt.content); got != tt.want {
				t.Errorf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestContentParts(t *testing.T) {
	parts := ContentParts("hi")
	if len(parts) != 1 || parts[0].Type != "text" || parts[0].Text != "hi" {
		t.Errorf("string content: %+v", parts)
	}

	if got := ContentParts(""); got != nil {
		t.Errorf("empty string should yield nil, got %+v", got)
	}

	parts = ContentParts([]any{
		map[string]any{"type": "text", "text": "caption"},
		map[string]any{"type": "image_url", "image_url": map[string]any{"url": "data:image/png;base64,AA"}},
		map[string]any{"type": "image_url", "image_url": "https://example.com/i.png"},
	})
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if parts[1].ImageURL.URL != "data:image/png;base64,AA" {
		t.Errorf("object image url: %+v", parts[1])
	}
	if parts[2].ImageURL.URL != "https://example.com/i.png" {
		t.Errorf("string image url: %+v", parts[2])
	}
}

func TestStopSequences(t *testing.T) {
	if got := StopSequences("END"); len(got) != 1 || got[0] != "END" {
		t.Errorf("string stop: %v", got)
	}
	if got := StopSequences([]any{"a", "b", 3}); len(got) != 2 {
		t.Errorf("array stop: %v", got)
	}
	if got := StopSequences(nil); got != nil {
		t.Errorf("nil stop: %v", got)
	}
	if got := StopSequences(""); got != nil {
		t.Errorf("empty stop: %v", got)
	}
}

func TestIntFromAny(t *testing.T) {
	if got := IntFromAny(float64(42)); got != 42 {
		t.Errorf("float64: %d", got)
	}
	if got := IntFromAny(7); got != 7 {
		t.Errorf("int: %d", got)
	}
	if got := IntFromAny(json.Number("13")); got != 13 {
		t.Errorf("json.Number: %d", got)
	}
	if got := IntFromAny("nope"); got != 0 {
		t.Errorf("unsupported: %d", got)
	}
}
