package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/modelrelay/modelrelay/internal/codex"
	"github.com/modelrelay/modelrelay/internal/config"
	"github.com/modelrelay/modelrelay/internal/gemini"
	"github.com/modelrelay/modelrelay/internal/sse"
	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
	"github.com/modelrelay/modelrelay/internal/upstream"
)

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "", "Invalid JSON body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "", "messages must be a non-empty array")
		return
	}

	backend := routeBackend(req.Model)
	if req.ReasoningEffort == "" {
		req.ReasoningEffort = s.Config.ReasoningEffort
	}
	if s.Config.Verbose {
		slog.Info("chat.request", "model", req.Model, "backend", backend, "stream", req.Stream)
	}

	switch backend {
	case config.BackendOpenAI:
		s.relayOpenAIChat(w, r, &req, body)
	case config.BackendCodex:
		s.relayCodexChat(w, r, &req)
	case config.BackendGemini:
		s.relayGeminiChat(w, r, &req)
	default:
		writeError(w, http.StatusInternalServerError, "server_error", "unsupported_backend",
			fmt.Sprintf("no backend available for model %q", req.Model))
	}
}

// doBackend performs one backend exchange. A transport failure or a non-200
// status is written to the client here; the backend's own error payload is
// forwarded literally, never reshaped.
func (s *Server) doBackend(w http.ResponseWriter, r *http.Request, upReq *upstream.Request) (*upstream.Response, bool) {
	resp, err := s.upstreamClient.Do(r.Context(), upReq)
	if err != nil {
		writeError(w, http.StatusBadGateway, "server_error", "internal_error", err.Error())
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		ct := resp.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
		return nil, false
	}
	return resp, true
}

// relayOpenAIChat forwards the canonical request to the shim as-is. The shim
// already speaks the canonical surface, so both directions are pass-through;
// the relay still reframes the stream to guarantee a single termination
// marker.
func (s *Server) relayOpenAIChat(w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest, body []byte) {
	resp, ok := s.doBackend(w, r, &upstream.Request{
		Backend: config.BackendOpenAI,
		Model:   req.Model,
		Body:    body,
		Stream:  req.Stream,
		Path:    "/chat/completions",
	})
	if !ok {
		return
	}
	defer resp.Body.Close()

	if !req.Stream {
		raw, _ := io.ReadAll(resp.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
		return
	}

	relayStream(w, resp.Body, func(payload string) ([]any, []string) {
		return nil, []string{payload}
	})
}

func (s *Server) relayCodexChat(w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest) {
	table := toolnames.New(s.Config.ToolNameLimit)
	backendReq := codex.BuildRequest(req, s.Config.Instructions, table)
	body, err := json.Marshal(backendReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "internal_error", err.Error())
		return
	}

	// The backend only streams; non-streaming clients get the collected
	// terminal event.
	resp, ok := s.doBackend(w, r, &upstream.Request{
		Backend: config.BackendCodex,
		Model:   req.Model,
		Body:    body,
		Stream:  true,
	})
	if !ok {
		return
	}
	defer resp.Body.Close()

	if req.Stream {
		relayStream(w, resp.Body, codexConverter(codex.NewStreamState(req.Model, table)))
		return
	}

	completion, done := s.collectCodexResponse(w, resp.Body, req.Model, table)
	if done {
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

// collectCodexResponse drains the backend stream and converts the terminal
// event into a single completion object. When it has already written a reply
// (error paths, unconvertible payloads) it reports done.
func (s *Server) collectCodexResponse(w http.ResponseWriter, body io.Reader, model string, table *toolnames.Table) (*types.ChatCompletionResponse, bool) {
	reader := sse.NewReader(body)
	var terminal string
	for {
		payload, err := reader.Next()
		if err != nil {
			break
		}
		switch gjson.Get(payload, "type").String() {
		case "response.completed", "response.failed", "error":
			terminal = payload
		}
	}
	if terminal == "" {
		writeError(w, http.StatusBadGateway, "server_error", "internal_error", "backend stream ended without a terminal event")
		return nil, true
	}

	completion, errResp, err := codex.ConvertResponse([]byte(terminal), model, table)
	if err != nil {
		// Conversion failures surface the unconverted payload rather than
		// failing the request.
		slog.Error("codex response conversion failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, terminal)
		return nil, true
	}
	if errResp != nil {
		writeJSON(w, http.StatusBadGateway, errResp)
		return nil, true
	}
	return completion, false
}

func (s *Server) relayGeminiChat(w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest) {
	table := toolnames.New(s.Config.ToolNameLimit)
	backendReq := gemini.BuildRequest(req, table)
	body, err := json.Marshal(backendReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "internal_error", err.Error())
		return
	}

	resp, ok := s.doBackend(w, r, &upstream.Request{
		Backend: config.BackendGemini,
		Model:   req.Model,
		Body:    body,
		Stream:  req.Stream,
	})
	if !ok {
		return
	}
	defer resp.Body.Close()

	if req.Stream {
		relayStream(w, resp.Body, geminiConverter(gemini.NewStreamState(req.Model, table)))
		return
	}

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		writeError(w, http.StatusBadGateway, "server_error", "internal_error", readErr.Error())
		return
	}
	completion, convErr := gemini.ConvertResponse(raw, req.Model, table)
	if convErr != nil {
		slog.Error("gemini response conversion failed", "error", convErr)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

// codexConverter adapts one stream's event-conversion state to the relay loop.
func codexConverter(st *codex.StreamState) streamConverter {
	return func(payload string) ([]any, []string) {
		res := st.ConvertEvent(payload)
		values := make([]any, 0, len(res.Chunks)+len(res.Errors))
		for _, ch := range res.Chunks {
			values = append(values, ch)
		}
		for _, e := range res.Errors {
			values = append(values, e)
		}
		return values, res.Raw
	}
}

func geminiConverter(st *gemini.StreamState) streamConverter {
	return func(payload string) ([]any, []string) {
		chunks, raw := st.ConvertPayload(payload)
		values := make([]any, 0, len(chunks))
		for _, ch := range chunks {
			values = append(values, ch)
		}
		if raw != "" {
			return values, []string{raw}
		}
		return values, nil
	}
}
