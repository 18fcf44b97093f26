package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/modelrelay/modelrelay/internal/codex"
	"github.com/modelrelay/modelrelay/internal/config"
	"github.com/modelrelay/modelrelay/internal/gemini"
	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
	"github.com/modelrelay/modelrelay/internal/upstream"
)

// handleCompletions serves the legacy single-prompt surface by translating it
// into a one-message chat request, routing it like any other chat request and
// mapping the result back to the text-completion shape.
func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}

	var req types.TextCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "", "Invalid JSON body")
		return
	}
	prompt := promptText(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "", "prompt must be a non-empty string")
		return
	}

	chatReq := &types.ChatCompletionRequest{
		Model:           req.Model,
		Messages:        []types.ChatMessage{{Role: "user", Content: prompt}},
		Stream:          req.Stream,
		StreamOptions:   req.StreamOptions,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxTokens:       req.MaxTokens,
		Stop:            req.Stop,
		ReasoningEffort: s.Config.ReasoningEffort,
	}

	backend := routeBackend(req.Model)
	table := toolnames.New(s.Config.ToolNameLimit)

	var upReq *upstream.Request
	switch backend {
	case config.BackendOpenAI:
		chatBody, err := json.Marshal(chatReq)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", "internal_error", err.Error())
			return
		}
		upReq = &upstream.Request{
			Backend: config.BackendOpenAI,
			Model:   req.Model,
			Body:    chatBody,
			Stream:  req.Stream,
			Path:    "/chat/completions",
		}
	case config.BackendCodex:
		codexBody, err := json.Marshal(codex.BuildRequest(chatReq, s.Config.Instructions, table))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", "internal_error", err.Error())
			return
		}
		upReq = &upstream.Request{
			Backend: config.BackendCodex,
			Model:   req.Model,
			Body:    codexBody,
			Stream:  true,
		}
	case config.BackendGemini:
		geminiBody, err := json.Marshal(gemini.BuildRequest(chatReq, table))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", "internal_error", err.Error())
			return
		}
		upReq = &upstream.Request{
			Backend: config.BackendGemini,
			Model:   req.Model,
			Body:    geminiBody,
			Stream:  req.Stream,
		}
	default:
		writeError(w, http.StatusInternalServerError, "server_error", "unsupported_backend",
			"no backend available for model "+req.Model)
		return
	}

	resp, ok := s.doBackend(w, r, upReq)
	if !ok {
		return
	}
	defer resp.Body.Close()

	if req.Stream {
		var convert streamConverter
		switch backend {
		case config.BackendCodex:
			convert = codexConverter(codex.NewStreamState(req.Model, table))
		case config.BackendGemini:
			convert = geminiConverter(gemini.NewStreamState(req.Model, table))
		default:
			convert = parseChatChunks
		}
		relayStream(w, resp.Body, textifyConverter(convert))
		return
	}

	var completion *types.ChatCompletionResponse
	switch backend {
	case config.BackendCodex:
		var done bool
		completion, done = s.collectCodexResponse(w, resp.Body, req.Model, table)
		if done {
			return
		}
	case config.BackendGemini:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			writeError(w, http.StatusBadGateway, "server_error", "internal_error", err.Error())
			return
		}
		completion, err = gemini.ConvertResponse(raw, req.Model, table)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(raw)
			return
		}
	default:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			writeError(w, http.StatusBadGateway, "server_error", "internal_error", err.Error())
			return
		}
		completion = &types.ChatCompletionResponse{}
		if jsonErr := json.Unmarshal(raw, completion); jsonErr != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(raw)
			return
		}
	}

	writeJSON(w, http.StatusOK, textCompletion(completion))
}

// promptText flattens the legacy prompt field, which may be a string or an
// array of strings.
func promptText(prompt any) string {
	switch p := prompt.(type) {
	case string:
		return p
	case []any:
		var parts []string
		for _, item := range p {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	}
	return ""
}

// parseChatChunks decodes shim payloads into canonical chunks so the text
// mapping can rewrite them; undecodable payloads stay literal.
func parseChatChunks(payload string) ([]any, []string) {
	var ch types.ChatCompletionChunk
	if err := json.Unmarshal([]byte(payload), &ch); err != nil || ch.Object != "chat.completion.chunk" {
		return nil, []string{payload}
	}
	return []any{ch}, nil
}

// textifyConverter rewrites canonical chat chunks into legacy text-completion
// chunks; everything else passes through unchanged.
func textifyConverter(inner streamConverter) streamConverter {
	return func(payload string) ([]any, []string) {
		values, raw := inner(payload)
		for i, v := range values {
			ch, ok := v.(types.ChatCompletionChunk)
			if !ok {
				continue
			}
			values[i] = textChunk(ch)
		}
		return values, raw
	}
}

func textChunk(ch types.ChatCompletionChunk) types.TextCompletionResponse {
	out := types.TextCompletionResponse{
		ID:      ch.ID,
		Object:  "text_completion",
		Created: ch.Created,
		Model:   ch.Model,
		Usage:   ch.Usage,
	}
	for _, choice := range ch.Choices {
		out.Choices = append(out.Choices, types.TextChoice{
			Index:        choice.Index,
			Text:         choice.Delta.Content,
			FinishReason: choice.FinishReason,
		})
	}
	return out
}

func textCompletion(resp *types.ChatCompletionResponse) types.TextCompletionResponse {
	out := types.TextCompletionResponse{
		ID:      resp.ID,
		Object:  "text_completion",
		Created: resp.Created,
		Model:   resp.Model,
		Usage:   resp.Usage,
	}
	for _, choice := range resp.Choices {
		text := ""
		if choice.Message.Content != nil {
			text = *choice.Message.Content
		}
		out.Choices = append(out.Choices, types.TextChoice{
			Index:        choice.Index,
			Text:         text,
			FinishReason: choice.FinishReason,
		})
	}
	return out
}
