package gemini

import (
	"testing"

	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
)

func TestStreamTextThenTerminalWithUsage(t *testing.T) {
	st := NewStreamState("gemini-2.5-flash", toolnames.New(0))

	chunks, raw := st.ConvertPayload(`{"candidates":[{"index":0,"content":{"parts":[{"text":"Hi"}]}}]}`)
	if raw != "" {
		t.Fatalf("unexpected raw passthrough: %q", raw)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	first := chunks[0]
	if first.Object != "chat.completion.chunk" {
		t.Errorf("object: %q", first.Object)
	}
	if first.Choices[0].Delta.Role != "assistant" {
		t.Error("first delta must carry the assistant role")
	}
	if first.Choices[0].Delta.Content != "Hi" {
		t.Errorf("content: %q", first.Choices[0].Delta.Content)
	}
	if first.Choices[0].FinishReason != nil {
		t.Error("non-terminal chunk must not carry a finish reason")
	}

	// Terminal frame: finish reason and usage arrive together and must
	// yield one terminal chunk carrying both.
	chunks, raw = st.ConvertPayload(`{"candidates":[{"index":0,"finishReason":"STOP"}],` +
		`"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":2,"totalTokenCount":7}}`)
	if raw != "" {
		t.Fatalf("unexpected raw passthrough: %q", raw)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 terminal chunk, got %d", len(chunks))
	}
	term := chunks[0]
	if term.Choices[0].FinishReason == nil || *term.Choices[0].FinishReason != types.FinishStop {
		t.Errorf("finish: %v", term.Choices[0].FinishReason)
	}
	if term.Choices[0].Delta.Role != "" {
		t.Error("role must be injected exactly once per stream")
	}
	if term.Usage == nil || term.Usage.PromptTokens != 5 || term.Usage.CompletionTokens != 2 || term.Usage.TotalTokens != 7 {
		t.Errorf("usage: %+v", term.Usage)
	}
}

func TestStreamUsageOnlyFrame(t *testing.T) {
	st := NewStreamState("gemini-2.5-flash", toolnames.New(0))
	chunks, raw := st.ConvertPayload(`{"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":1,"totalTokenCount":4}}`)
	if raw != "" {
		t.Fatalf("unexpected raw: %q", raw)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if len(chunks[0].Choices) != 0 {
		t.Errorf("usage-only chunk must have empty choices: %+v", chunks[0].Choices)
	}
	if chunks[0].Usage == nil || chunks[0].Usage.TotalTokens != 4 {
		t.Errorf("usage: %+v", chunks[0].Usage)
	}
}

func TestStreamToolCallSlotsAndFinishOverride(t *testing.T) {
	table := toolnames.New(0)
	table.Add("get_weather")
	table.Add("get_time")
	st := NewStreamState("gemini-2.5-pro", table)

	chunks, _ := st.ConvertPayload(`{"candidates":[{"index":0,"content":{"parts":[
		{"functionCall":{"name":"get_weather","args":{"city":"Paris"}}},
		{"functionCall":{"name":"get_time","args":{}}}
	]}}]}`)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		tcs := ch.Choices[0].Delta.ToolCalls
		if len(tcs) != 1 {
			t.Fatalf("chunk %d: expected 1 tool call", i)
		}
		// Slots are assigned in encounter order.
		if tcs[0].Index != i {
			t.Errorf("chunk %d slot: got %d", i, tcs[0].Index)
		}
	}
	if chunks[0].Choices[0].Delta.ToolCalls[0].Function.Name != "get_weather" {
		t.Errorf("first call name: %q", chunks[0].Choices[0].Delta.ToolCalls[0].Function.Name)
	}

	// Native STOP on a candidate that emitted tool calls becomes tool_calls.
	chunks, _ = st.ConvertPayload(`{"candidates":[{"index":0,"finishReason":"STOP"}]}`)
	if len(chunks) != 1 {
		t.Fatalf("expected terminal chunk, got %d", len(chunks))
	}
	if got := *chunks[0].Choices[0].FinishReason; got != types.FinishToolCalls {
		t.Errorf("finish: %q", got)
	}
}

func TestStreamErrorPayloadPassesThroughRaw(t *testing.T) {
	st := NewStreamState("gemini-2.5-pro", toolnames.New(0))

	payload := `{"error":{"code":429,"message":"quota"}}`
	chunks, raw := st.ConvertPayload(payload)
	if len(chunks) != 0 {
		t.Errorf("error payload must not convert: %+v", chunks)
	}
	if raw != payload {
		t.Errorf("error payload must pass through literally: %q", raw)
	}

	malformed := `{"candidates": [`
	chunks, raw = st.ConvertPayload(malformed)
	if len(chunks) != 0 || raw != malformed {
		t.Errorf("malformed payload must pass through literally: %v %q", chunks, raw)
	}
}

func TestStreamAdoptsNativeIDAndModel(t *testing.T) {
	st := NewStreamState("gemini-requested", toolnames.New(0))
	chunks, _ := st.ConvertPayload(`{"responseId":"native1","modelVersion":"gemini-2.5-flash-001",` +
		`"candidates":[{"index":0,"content":{"parts":[{"text":"x"}]}}]}`)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "chatcmpl-native1" {
		t.Errorf("id: %q", chunks[0].ID)
	}
	if chunks[0].Model != "gemini-2.5-flash-001" {
		t.Errorf("model: %q", chunks[0].Model)
	}
}
