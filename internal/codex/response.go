package codex

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
)

// ConvertResponse converts a non-streaming response into a canonical chat
// completion message. It accepts either a raw response object or one wrapped
// by a completed-event envelope. A failed status yields the backend's error
// object instead of a message.
func ConvertResponse(raw []byte, model string, table *toolnames.Table) (*types.ChatCompletionResponse, *types.ErrorResponse, error) {
	// Unwrap {"type":"response.completed","response":{...}} envelopes.
	if inner := gjson.GetBytes(raw, "response"); inner.Exists() && gjson.GetBytes(raw, "type").Exists() {
		raw = []byte(inner.Raw)
	}

	var resp ResponseBody
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status == "failed" {
		detail := types.ErrorDetail{Message: "response failed"}
		if resp.Error != nil {
			detail = types.ErrorDetail{
				Message: resp.Error.Message,
				Type:    resp.Error.Type,
				Code:    resp.Error.Code,
			}
		}
		return nil, &types.ErrorResponse{Error: detail}, nil
	}

	var contentParts []string
	var reasoningParts []string
	var toolCalls []types.ToolCall

	for _, item := range resp.Output {
		switch item.Type {
		case "reasoning":
			for _, s := range item.Summary {
				if s.Text != "" {
					reasoningParts = append(reasoningParts, s.Text)
				}
			}
		case "message":
			for _, c := range item.Content {
				if c.Text != "" {
					contentParts = append(contentParts, c.Text)
				}
			}
		case "function_call":
			toolCalls = append(toolCalls, types.ToolCall{
				Index: len(toolCalls),
				ID:    callID(&item),
				Type:  "function",
				Function: types.FunctionCall{
					Name:      table.Restore(item.Name),
					Arguments: item.Arguments,
				},
			})
		}
	}

	finish := mapStatus(&resp)
	if len(toolCalls) > 0 {
		finish = types.FinishToolCalls
	}

	msg := types.ChatResponseMsg{Role: "assistant"}
	if len(contentParts) > 0 {
		msg.Content = types.StringPtr(strings.Join(contentParts, ""))
	}
	msg.ReasoningContent = strings.Join(reasoningParts, "")
	msg.ToolCalls = toolCalls

	id := resp.ID
	if id == "" {
		id = "chatcmpl"
	}
	created := resp.CreatedAt
	if created == 0 {
		created = time.Now().Unix()
	}
	outModel := resp.Model
	if outModel == "" {
		outModel = model
	}

	return &types.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   outModel,
		Choices: []types.ChatChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: types.StringPtr(finish),
		}},
		Usage: convertUsage(resp.Usage),
	}, nil, nil
}
