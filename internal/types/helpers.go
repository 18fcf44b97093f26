package types

import (
	"encoding/json"
	"strings"
)

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to the given int.
func IntPtr(i int) *int {
	return &i
}

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(f float64) *float64 {
	return &f
}

// IntFromAny converts a JSON-decoded numeric value to int.
// Handles float64, int, and json.Number (all common from json.Unmarshal).
func IntFromAny(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

// ContentText flattens a message content value (string or multimodal part
// array) into plain text. Non-text parts are skipped.
func ContentText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []any:
		var texts []string
		for _, part := range c {
			p, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if t, _ := p["text"].(string); t != "" {
				texts = append(texts, t)
			} else if t, _ := p["content"].(string); t != "" {
				texts = append(texts, t)
			}
		}
		return strings.Join(texts, "\n")
	}
	return ""
}

// ContentParts normalizes a message content value into typed multimodal
// parts. A plain string becomes a single text part.
func ContentParts(content any) []ContentPart {
	switch c := content.(type) {
	case string:
		if c == "" {
			return nil
		}
		return []ContentPart{{Type: "text", Text: c}}
	case []any:
		var parts []ContentPart
		for _, raw := range c {
			p, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			ptype, _ := p["type"].(string)
			switch ptype {
			case "text":
				if t, _ := p["text"].(string); t != "" {
					parts = append(parts, ContentPart{Type: "text", Text: t})
				}
			case "image_url":
				var imgURL string
				if img, ok := p["image_url"].(map[string]any); ok {
					imgURL, _ = img["url"].(string)
				} else if s, ok := p["image_url"].(string); ok {
					imgURL = s
				}
				if imgURL != "" {
					parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: imgURL}})
				}
			}
		}
		return parts
	}
	return nil
}

// StopSequences normalizes a stop value (string or array of strings) into a
// string slice.
func StopSequences(stop any) []string {
	switch s := stop.(type) {
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	case []any:
		var out []string
		for _, v := range s {
			if str, ok := v.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return s
	}
	return nil
}
