package config

import (
	"os"
	"strconv"
	"strings"
)

// Backend identifiers.
const (
	BackendOpenAI = "openai"
	BackendCodex  = "codex"
	BackendGemini = "gemini"
)

const (
	// CodexResponsesPath is the fixed path of the Responses-style backend.
	CodexResponsesPath = "/responses"

	// DefaultCodexBaseURL points at the Codex backend API.
	DefaultCodexBaseURL = "https://chatgpt.com/backend-api/codex"

	// DefaultGeminiBaseURL points at the native multimodal generation API.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultOpenAIBaseURL points at the OpenAI-compatible shim.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultOAuthIssuer is the token endpoint issuer for the Codex backend.
	DefaultOAuthIssuer = "https://auth.openai.com"
)

// ServerConfig holds all server configuration.
type ServerConfig struct {
	Host        string
	Port        int
	Verbose     bool
	AccessToken string // inbound bearer token; empty disables the check

	// Codex backend
	CodexBaseURL      string
	CodexAccessToken  string
	CodexRefreshToken string
	CodexAccountID    string
	CodexClientID     string
	OAuthIssuer       string
	ReasoningEffort   string
	Instructions      string

	// OpenAI-compatible shim
	OpenAIBaseURL string
	OpenAIAPIKey  string

	// Native multimodal backend
	GeminiBaseURL string
	GeminiAPIKey  string

	// ToolNameLimit caps backend tool/function name length.
	ToolNameLimit int
}

// DefaultFromEnv creates a ServerConfig with defaults from environment
// variables.
func DefaultFromEnv() *ServerConfig {
	return &ServerConfig{
		Host:              "127.0.0.1",
		Port:              8000,
		Verbose:           envBool("MODELRELAY_VERBOSE"),
		AccessToken:       strings.TrimSpace(os.Getenv("MODELRELAY_ACCESS_TOKEN")),
		CodexBaseURL:      envOrDefault("MODELRELAY_CODEX_BASE_URL", DefaultCodexBaseURL),
		CodexAccessToken:  strings.TrimSpace(os.Getenv("MODELRELAY_CODEX_ACCESS_TOKEN")),
		CodexRefreshToken: strings.TrimSpace(os.Getenv("MODELRELAY_CODEX_REFRESH_TOKEN")),
		CodexAccountID:    strings.TrimSpace(os.Getenv("MODELRELAY_CODEX_ACCOUNT_ID")),
		CodexClientID:     strings.TrimSpace(os.Getenv("MODELRELAY_CODEX_CLIENT_ID")),
		OAuthIssuer:       envOrDefault("MODELRELAY_OAUTH_ISSUER", DefaultOAuthIssuer),
		ReasoningEffort:   envOrDefault("MODELRELAY_REASONING_EFFORT", "medium"),
		OpenAIBaseURL:     envOrDefault("MODELRELAY_OPENAI_BASE_URL", DefaultOpenAIBaseURL),
		OpenAIAPIKey:      strings.TrimSpace(os.Getenv("MODELRELAY_OPENAI_API_KEY")),
		GeminiBaseURL:     envOrDefault("MODELRELAY_GEMINI_BASE_URL", DefaultGeminiBaseURL),
		GeminiAPIKey:      strings.TrimSpace(os.Getenv("MODELRELAY_GEMINI_API_KEY")),
		ToolNameLimit:     envInt("MODELRELAY_TOOL_NAME_LIMIT", 0),
	}
}

// TokenURL returns the OAuth token endpoint.
func (c *ServerConfig) TokenURL() string {
	return c.OAuthIssuer + "/oauth/token"
}

func envOrDefault(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func envInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
