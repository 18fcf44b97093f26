package proxy

import (
	"strings"

	"github.com/modelrelay/modelrelay/internal/config"
)

// routeBackend maps a requested model name to the backend that serves it.
// Matching is case-insensitive on well-known prefixes; anything unrecognized
// goes to the OpenAI-compatible shim, which accepts arbitrary model names.
func routeBackend(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gemini"):
		return config.BackendGemini
	case strings.HasPrefix(m, "gpt-5"), strings.HasPrefix(m, "codex"):
		return config.BackendCodex
	default:
		return config.BackendOpenAI
	}
}
