package upstream

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/modelrelay/modelrelay/internal/auth"
	"github.com/modelrelay/modelrelay/internal/config"
)

func testConfig() *config.ServerConfig {
	return &config.ServerConfig{
		CodexBaseURL:     "https://codex.example.com/backend",
		CodexAccessToken: "codex-token",
		OAuthIssuer:      "https://auth.example.com",
		OpenAIBaseURL:    "https://shim.example.com/v1",
		OpenAIAPIKey:     "shim-key",
		GeminiBaseURL:    "https://gemini.example.com/v1beta",
		GeminiAPIKey:     "gemini-key",
	}
}

func TestBuildOpenAIRequest(t *testing.T) {
	c := NewClient(testConfig())
	req, err := c.buildHTTPRequest(context.Background(), &Request{
		Backend: config.BackendOpenAI,
		Model:   "llama-3",
		Body:    []byte(`{"model":"original","stream":true}`),
		Stream:  true,
		Path:    "/chat/completions",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.URL.String() != "https://shim.example.com/v1/chat/completions" {
		t.Errorf("url: %s", req.URL)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer shim-key" {
		t.Errorf("authorization: %q", got)
	}
	if got := req.Header.Get("Accept"); got != "text/event-stream" {
		t.Errorf("accept: %q", got)
	}

	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"model":"llama-3","stream":true}` {
		t.Errorf("model not rewritten: %s", body)
	}
}

func TestBuildCodexRequest(t *testing.T) {
	c := NewClient(testConfig())
	req, err := c.buildHTTPRequest(context.Background(), &Request{
		Backend: config.BackendCodex,
		Model:   "gpt-5",
		Body:    []byte(`{}`),
		Stream:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.URL.String() != "https://codex.example.com/backend/responses" {
		t.Errorf("url: %s", req.URL)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer codex-token" {
		t.Errorf("authorization: %q", got)
	}
	if got := req.Header.Get("Accept"); got != "text/event-stream" {
		t.Errorf("accept: %q", got)
	}
	if req.Header.Get("OpenAI-Beta") == "" {
		t.Error("missing beta header")
	}
}

// The client is shared across requests; concurrent Codex calls must resolve
// credentials safely. Run with -race.
func TestCodexAuthConcurrent(t *testing.T) {
	c := NewClient(testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, _, err := c.codexAuth(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if token != "codex-token" {
				t.Errorf("token: %q", token)
			}
		}()
	}
	wg.Wait()
}

func TestBuildGeminiRequest(t *testing.T) {
	c := NewClient(testConfig())

	req, err := c.buildHTTPRequest(context.Background(), &Request{
		Backend: config.BackendGemini,
		Model:   "gemini-2.5-flash",
		Body:    []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.URL.String() != "https://gemini.example.com/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Errorf("url: %s", req.URL)
	}
	if got := req.Header.Get("x-goog-api-key"); got != "gemini-key" {
		t.Errorf("api key header: %q", got)
	}

	req, err = c.buildHTTPRequest(context.Background(), &Request{
		Backend: config.BackendGemini,
		Model:   "gemini-2.5-flash",
		Body:    []byte(`{}`),
		Stream:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://gemini.example.com/v1beta/models/gemini-2.5-flash:streamGenerateContent?alt=sse"
	if req.URL.String() != want {
		t.Errorf("streaming url: %s", req.URL)
	}
}

func TestBuildGeminiRequestNoCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = ""
	c := NewClient(cfg)
	_, err := c.buildHTTPRequest(context.Background(), &Request{
		Backend: config.BackendGemini,
		Model:   "gemini-2.5-flash",
	})
	if err != auth.ErrNoCredentials {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestBuildUnknownBackend(t *testing.T) {
	c := NewClient(testConfig())
	if _, err := c.buildHTTPRequest(context.Background(), &Request{Backend: "mystery"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
