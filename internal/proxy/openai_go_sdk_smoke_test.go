package proxy

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// The official Go SDK is the strictest consumer of the canonical surface
// available; these tests drive the relay through it end to end.

func newSDKSmokeHTTPServer(t *testing.T, up *queuedUpstreamClient) *httptest.Server {
	t.Helper()
	s := newTestServer(up)
	return httptest.NewServer(s.httpServer.Handler)
}

func newOpenAISDKClient(baseURL string) openai.Client {
	return openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("test-key"),
	)
}

func TestOpenAIGoSDKSmokeGeminiChat(t *testing.T) {
	up := &queuedUpstreamClient{results: []queuedUpstreamResult{{
		body: `{"responseId":"r1","candidates":[{"index":0,"content":{"parts":[{"text":"SDK gemini works"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":3,"totalTokenCount":7}}`,
	}}}

	httpSrv := newSDKSmokeHTTPServer(t, up)
	defer httpSrv.Close()

	client := newOpenAISDKClient(httpSrv.URL + "/v1")

	out, err := client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model: shared.ChatModel("gemini-2.5-flash"),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("hello from sdk"),
		},
	})
	if err != nil {
		t.Fatalf("sdk chat completion failed: %v", err)
	}
	if len(out.Choices) == 0 {
		t.Fatalf("expected non-empty choices, got: %+v", out)
	}
	if got := out.Choices[0].Message.Content; !strings.Contains(got, "SDK gemini works") {
		t.Fatalf("unexpected content: %q", got)
	}
	if out.Usage.TotalTokens != 7 {
		t.Fatalf("usage: %+v", out.Usage)
	}
	if len(up.calls) != 1 {
		t.Fatalf("upstream call count: got %d want 1", len(up.calls))
	}
}

func TestOpenAIGoSDKSmokeCodexStreaming(t *testing.T) {
	up := &queuedUpstreamClient{results: []queuedUpstreamResult{{
		body: "data: {\"type\":\"response.created\",\"response\":{\"id\":\"resp_sdk\",\"model\":\"gpt-5\"}}\n\n" +
			"data: {\"type\":\"response.output_text.delta\",\"delta\":\"streamed \"}\n\n" +
			"data: {\"type\":\"response.output_text.delta\",\"delta\":\"by sdk\"}\n\n" +
			"data: {\"type\":\"response.completed\",\"response\":{\"id\":\"resp_sdk\",\"status\":\"completed\"}}\n\n" +
			"data: [DONE]\n\n",
	}}}

	httpSrv := newSDKSmokeHTTPServer(t, up)
	defer httpSrv.Close()

	client := newOpenAISDKClient(httpSrv.URL + "/v1")

	stream := client.Chat.Completions.NewStreaming(context.Background(), openai.ChatCompletionNewParams{
		Model: shared.ChatModel("gpt-5"),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("stream please"),
		},
	})

	var text strings.Builder
	var sawFinish bool
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		text.WriteString(chunk.Choices[0].Delta.Content)
		if chunk.Choices[0].FinishReason != "" {
			sawFinish = true
		}
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if got := text.String(); got != "streamed by sdk" {
		t.Fatalf("streamed text: %q", got)
	}
	if !sawFinish {
		t.Fatal("no finish reason observed")
	}
}
