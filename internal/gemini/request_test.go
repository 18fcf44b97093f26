package gemini

import (
	"testing"

	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
)

func TestBuildRequestSystemInstruction(t *testing.T) {
	req := &types.ChatCompletionRequest{
		Model: "gemini-2.5-pro",
		Messages: []types.ChatMessage{
			{Role: "system", Content: "You are terse."},
			{Role: "user", Content: "Hi"},
		},
	}
	out := BuildRequest(req, toolnames.New(0))

	if out.SystemInstruction == nil {
		t.Fatal("expected systemInstruction")
	}
	if got := out.SystemInstruction.Parts[0].Text; got != "You are terse." {
		t.Errorf("systemInstruction text: %q", got)
	}
	if len(out.Contents) != 1 || out.Contents[0].Role != "user" {
		t.Fatalf("unexpected contents: %+v", out.Contents)
	}
	if len(out.SafetySettings) != 5 {
		t.Errorf("expected permissive safety settings, got %d", len(out.SafetySettings))
	}
	for _, ss := range out.SafetySettings {
		if ss.Threshold != "BLOCK_NONE" {
			t.Errorf("safety threshold for %s: %s", ss.Category, ss.Threshold)
		}
	}
}

// A conversation with only system messages still needs a content block, so
// the system text folds into a first user block instead.
func TestBuildRequestSystemOnlyFoldsIntoUser(t *testing.T) {
	req := &types.ChatCompletionRequest{
		Messages: []types.ChatMessage{
			{Role: "system", Content: "Only instructions."},
		},
	}
	out := BuildRequest(req, toolnames.New(0))

	if out.SystemInstruction != nil {
		t.Error("systemInstruction should be empty when folded")
	}
	if len(out.Contents) != 1 || out.Contents[0].Role != "user" {
		t.Fatalf("unexpected contents: %+v", out.Contents)
	}
	if got := out.Contents[0].Parts[0].Text; got != "Only instructions." {
		t.Errorf("folded text: %q", got)
	}
}

func TestBuildRequestAssistantToolCallsAndResponse(t *testing.T) {
	req := &types.ChatCompletionRequest{
		Messages: []types.ChatMessage{
			{Role: "user", Content: "weather?"},
			{
				Role: "assistant",
				ToolCalls: []types.ToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: types.FunctionCall{
						Name:      "get_weather",
						Arguments: `{"city":"Paris"}`,
					},
				}},
			},
			{Role: "tool", ToolCallID: "call_1", Content: `{"temp":21}`},
		},
	}
	out := BuildRequest(req, toolnames.New(0))

	if len(out.Contents) != 3 {
		t.Fatalf("expected 3 content blocks, got %d", len(out.Contents))
	}
	model := out.Contents[1]
	if model.Role != "model" || model.Parts[0].FunctionCall == nil {
		t.Fatalf("unexpected model block: %+v", model)
	}
	if model.Parts[0].FunctionCall.Name != "get_weather" {
		t.Errorf("call name: %q", model.Parts[0].FunctionCall.Name)
	}
	if model.Parts[0].FunctionCall.Args["city"] != "Paris" {
		t.Errorf("call args: %v", model.Parts[0].FunctionCall.Args)
	}

	toolResp := out.Contents[2]
	if toolResp.Role != "user" || toolResp.Parts[0].FunctionResponse == nil {
		t.Fatalf("unexpected tool response block: %+v", toolResp)
	}
	fr := toolResp.Parts[0].FunctionResponse
	if fr.Name != "get_weather" {
		t.Errorf("tool response keyed by %q, want call name", fr.Name)
	}
	if fr.Response["temp"] != float64(21) {
		t.Errorf("tool response payload: %v", fr.Response)
	}
}

func TestBuildRequestNonJSONToolContentWrapped(t *testing.T) {
	req := &types.ChatCompletionRequest{
		Messages: []types.ChatMessage{
			{Role: "tool", ToolCallID: "call_x", Content: "plain text result"},
		},
	}
	out := BuildRequest(req, toolnames.New(0))
	fr := out.Contents[0].Parts[0].FunctionResponse
	if fr.Response["result"] != "plain text result" {
		t.Errorf("expected wrapped result, got %v", fr.Response)
	}
}

func TestBuildRequestInlineImage(t *testing.T) {
	req := &types.ChatCompletionRequest{
		Messages: []types.ChatMessage{{
			Role: "user",
			Content: []any{
				map[string]any{"type": "text", "text": "what is this?"},
				map[string]any{"type": "image_url", "image_url": map[string]any{
					"url": "data:image/png;base64,AAAA",
				}},
			},
		}},
	}
	out := BuildRequest(req, toolnames.New(0))

	parts := out.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	blob := parts[1].InlineData
	if blob == nil || blob.MimeType != "image/png" || blob.Data != "AAAA" {
		t.Errorf("unexpected inline data: %+v", blob)
	}
}

func TestBuildRequestRemoteImageBecomesFileData(t *testing.T) {
	req := &types.ChatCompletionRequest{
		Messages: []types.ChatMessage{{
			Role: "user",
			Content: []any{
				map[string]any{"type": "image_url", "image_url": map[string]any{
					"url": "https://example.com/cat.png",
				}},
			},
		}},
	}
	out := BuildRequest(req, toolnames.New(0))
	fd := out.Contents[0].Parts[0].FileData
	if fd == nil || fd.FileURI != "https://example.com/cat.png" {
		t.Errorf("unexpected file data: %+v", fd)
	}
}

func TestThinkingConfigTiers(t *testing.T) {
	tests := []struct {
		effort     string
		wantNil    bool
		wantBudget *int
		wantLevel  string
	}{
		{effort: "", wantNil: true},
		{effort: "none", wantBudget: types.IntPtr(0)},
		{effort: "auto", wantBudget: types.IntPtr(-1)},
		{effort: "low", wantLevel: "low"},
		{effort: "HIGH", wantLevel: "high"},
	}
	for _, tt := range tests {
		t.Run("effort="+tt.effort, func(t *testing.T) {
			got := thinkingConfig(tt.effort)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected config")
			}
			if tt.wantBudget != nil {
				if got.ThinkingBudget == nil || *got.ThinkingBudget != *tt.wantBudget {
					t.Errorf("budget: got %v want %d", got.ThinkingBudget, *tt.wantBudget)
				}
			}
			if got.ThinkingLevel != tt.wantLevel {
				t.Errorf("level: got %q want %q", got.ThinkingLevel, tt.wantLevel)
			}
		})
	}
}

func TestBuildGenerationConfigMaxTokensPreference(t *testing.T) {
	req := &types.ChatCompletionRequest{
		MaxTokens:           types.IntPtr(100),
		MaxCompletionTokens: types.IntPtr(50),
	}
	cfg := buildGenerationConfig(req)
	if cfg.MaxOutputTokens == nil || *cfg.MaxOutputTokens != 50 {
		t.Errorf("max_completion_tokens should win, got %v", cfg.MaxOutputTokens)
	}
}

func TestBuildToolsAndChoice(t *testing.T) {
	table := toolnames.New(0)
	tools := buildTools([]types.ChatTool{
		{Type: "function", Function: &types.FunctionDef{Name: "lookup", Parameters: map[string]any{"type": "object"}}},
		{Type: "web_search"},
		{Type: "code_execution"},
	}, table)

	if len(tools) != 3 {
		t.Fatalf("expected 3 tool entries, got %d", len(tools))
	}
	if tools[0].GoogleSearch == nil {
		t.Error("expected googleSearch entry")
	}
	if tools[1].CodeExecution == nil {
		t.Error("expected codeExecution entry")
	}
	if len(tools[2].FunctionDeclarations) != 1 || tools[2].FunctionDeclarations[0].Name != "lookup" {
		t.Errorf("unexpected declarations: %+v", tools[2].FunctionDeclarations)
	}

	tc := buildToolConfig(map[string]any{
		"type":     "function",
		"function": map[string]any{"name": "lookup"},
	}, table)
	if tc == nil || tc.FunctionCallingConfig.Mode != "ANY" {
		t.Fatalf("unexpected tool config: %+v", tc)
	}
	if len(tc.FunctionCallingConfig.AllowedFunctionNames) != 1 ||
		tc.FunctionCallingConfig.AllowedFunctionNames[0] != "lookup" {
		t.Errorf("allowed names: %v", tc.FunctionCallingConfig.AllowedFunctionNames)
	}

	for choice, wantMode := range map[string]string{"none": "NONE", "auto": "AUTO", "required": "ANY"} {
		got := buildToolConfig(choice, table)
		if got == nil || got.FunctionCallingConfig.Mode != wantMode {
			t.Errorf("choice %q: got %+v want mode %s", choice, got, wantMode)
		}
	}
}
