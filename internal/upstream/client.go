// Package upstream performs the actual backend HTTP calls. The conversion
// layer never touches the network; it hands this client a backend id, a
// native request body and a streaming flag, and receives raw bytes back.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"

	"github.com/modelrelay/modelrelay/internal/auth"
	"github.com/modelrelay/modelrelay/internal/config"
)

// backendHTTPTimeout is the maximum time allowed for one backend exchange.
// SSE streams can be long-lived, so the timeout is generous.
const backendHTTPTimeout = 10 * time.Minute

// Request holds the parameters for one backend call.
type Request struct {
	Backend string // config.BackendOpenAI | BackendCodex | BackendGemini
	Model   string // upstream model name
	Body    []byte // native JSON request body
	Stream  bool
	Path    string // OpenAI shim only: inbound path to forward
}

// Response wraps the backend HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Doer abstracts the backend client so handlers can be tested with a mock.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Client calls the three configured backends. One Client is shared across
// requests, so the lazily built Codex token source is guarded by a mutex.
type Client struct {
	cfg        *config.ServerConfig
	httpClient *http.Client

	mu         sync.Mutex
	codexToken oauth2.TokenSource
}

// NewClient creates a backend client. Codex credentials are resolved lazily
// on first use so the other backends work without them.
func NewClient(cfg *config.ServerConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: backendHTTPTimeout},
	}
}

// Do sends the native request to the chosen backend and returns the raw
// response stream.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.buildHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend %s request failed: %w", req.Backend, err)
	}
	if c.cfg.Verbose {
		slog.Info("upstream.response", "backend", req.Backend, "status", resp.StatusCode)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

func (c *Client) buildHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	switch req.Backend {
	case config.BackendOpenAI:
		return c.buildOpenAIRequest(ctx, req)
	case config.BackendCodex:
		return c.buildCodexRequest(ctx, req)
	case config.BackendGemini:
		return c.buildGeminiRequest(ctx, req)
	default:
		return nil, fmt.Errorf("unknown backend %q", req.Backend)
	}
}

// buildOpenAIRequest forwards the inbound body to the shim, rewriting only
// the model field when the router mapped it.
func (c *Client) buildOpenAIRequest(ctx context.Context, req *Request) (*http.Request, error) {
	body := req.Body
	if req.Model != "" {
		patched, err := sjson.SetBytes(body, "model", req.Model)
		if err == nil {
			body = patched
		}
	}

	path := req.Path
	if path == "" {
		path = "/chat/completions"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.OpenAIAPIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
	}
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

func (c *Client) buildCodexRequest(ctx context.Context, req *Request) (*http.Request, error) {
	token, accountID, err := c.codexAuth(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.CodexBaseURL+config.CodexResponsesPath, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("OpenAI-Beta", "responses=experimental")
	if accountID != "" {
		httpReq.Header.Set("chatgpt-account-id", accountID)
	}
	return httpReq, nil
}

func (c *Client) buildGeminiRequest(ctx context.Context, req *Request) (*http.Request, error) {
	if c.cfg.GeminiAPIKey == "" {
		return nil, auth.ErrNoCredentials
	}

	method := ":generateContent"
	query := ""
	if req.Stream {
		method = ":streamGenerateContent"
		query = "?alt=sse"
	}
	endpoint := fmt.Sprintf("%s/models/%s%s%s",
		c.cfg.GeminiBaseURL, url.PathEscape(req.Model), method, query)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.GeminiAPIKey)
	return httpReq, nil
}

// codexAuth returns a valid access token and account id for the Codex
// backend, building the token source on first use.
func (c *Client) codexAuth(ctx context.Context) (token, accountID string, err error) {
	ts, err := c.codexTokenSource(ctx)
	if err != nil {
		return "", "", err
	}

	tok, err := ts.Token()
	if err != nil {
		return "", "", fmt.Errorf("codex token: %w", err)
	}

	accountID = c.cfg.CodexAccountID
	if accountID == "" {
		accountID = auth.DeriveAccountID(tok.AccessToken)
	}
	return tok.AccessToken, accountID, nil
}

func (c *Client) codexTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codexToken == nil {
		ts, err := auth.NewTokenSource(ctx,
			c.cfg.CodexAccessToken, c.cfg.CodexRefreshToken,
			c.cfg.CodexClientID, c.cfg.TokenURL())
		if err != nil {
			return nil, err
		}
		c.codexToken = ts
	}
	return c.codexToken, nil
}
