package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
)

// partKind is the discriminated classification of a native content part.
// Classification happens in exactly one place so streaming and non-streaming
// conversion agree on what a part means.
type partKind int

const (
	partUnsupported partKind = iota
	partText
	partThought
	partFunctionCall
	partInlineImage
)

// classifyPart decides what a native part carries. A part with only an opaque
// continuation signature and no visible content classifies as unsupported and
// is dropped.
func classifyPart(p Part) partKind {
	switch {
	case p.FunctionCall != nil:
		return partFunctionCall
	case p.InlineData != nil:
		return partInlineImage
	case p.Thought && p.Text != "":
		return partThought
	case p.Text != "":
		return partText
	default:
		return partUnsupported
	}
}

// newToolCallID generates a tool-call id unique within a response: the
// function name, an encounter counter and the current time.
func newToolCallID(name string, counter int) string {
	return fmt.Sprintf("call_%s_%d_%d", name, counter, time.Now().UnixNano())
}

// mapFinishReason maps a native finish reason onto the canonical enum.
// Unknown or unspecified native reasons map to stop.
func mapFinishReason(reason string) string {
	switch strings.ToUpper(reason) {
	case "MAX_TOKENS":
		return types.FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII", "IMAGE_SAFETY":
		return types.FinishContentFilter
	default:
		return types.FinishStop
	}
}

// ConvertResponse converts a non-streaming native response into a canonical
// chat completion message.
func ConvertResponse(raw []byte, model string, table *toolnames.Table) (*types.ChatCompletionResponse, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode native response: %w", err)
	}

	out := &types.ChatCompletionResponse{
		ID:      responseID(resp.ResponseID),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Usage:   convertUsage(resp.UsageMetadata),
	}

	callCounter := 0
	for i, cand := range resp.Candidates {
		var contentParts []string
		var thoughtParts []string
		var toolCalls []types.ToolCall
		var images []types.ContentPart

		if cand.Content != nil {
			for _, p := range cand.Content.Parts {
				switch classifyPart(p) {
				case partText:
					contentParts = append(contentParts, p.Text)
				case partThought:
					thoughtParts = append(thoughtParts, p.Text)
				case partFunctionCall:
					name := table.Restore(p.FunctionCall.Name)
					toolCalls = append(toolCalls, types.ToolCall{
						Index: len(toolCalls),
						ID:    newToolCallID(name, callCounter),
						Type:  "function",
						Function: types.FunctionCall{
							Name:      name,
							Arguments: marshalArgs(p.FunctionCall.Args),
						},
					})
					callCounter++
				case partInlineImage:
					images = append(images, types.ContentPart{
						Type: "image_url",
						ImageURL: &types.ImageURL{
							URL: dataURL(p.InlineData),
						},
					})
				}
			}
		}

		msg := types.ChatResponseMsg{Role: "assistant"}
		if len(contentParts) > 0 {
			msg.Content = types.StringPtr(strings.Join(contentParts, ""))
		}
		msg.ReasoningContent = strings.Join(thoughtParts, "")
		msg.ToolCalls = toolCalls
		msg.Images = images

		finish := mapFinishReason(cand.FinishReason)
		if len(toolCalls) > 0 {
			finish = types.FinishToolCalls
		}

		out.Choices = append(out.Choices, types.ChatChoice{
			Index:        i,
			Message:      msg,
			FinishReason: types.StringPtr(finish),
		})
	}

	return out, nil
}

func responseID(native string) string {
	if native != "" {
		return "chatcmpl-" + native
	}
	return "chatcmpl-" + uuid.NewString()
}

func convertUsage(u *UsageMetadata) *types.Usage {
	if u == nil {
		return nil
	}
	completion := u.CandidatesTokenCount + u.ThoughtsTokenCount
	total := u.TotalTokenCount
	if total == 0 {
		total = u.PromptTokenCount + completion
	}
	return &types.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

func marshalArgs(args map[string]any) string {
	if args == nil {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func dataURL(blob *Blob) string {
	mime := blob.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + blob.Data
}
