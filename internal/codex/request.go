package codex

import (
	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
)

// DefaultReasoningEffort is used when the caller does not request an effort
// tier.
const DefaultReasoningEffort = "medium"

// BuildRequest converts a canonical chat request into a Responses-style
// request. Sampling parameters (temperature, top_p, max tokens) are
// deliberately not forwarded: the backend documents that it ignores them.
// Tool names are shortened through the given table; the same table must be
// used when parsing the response.
func BuildRequest(req *types.ChatCompletionRequest, instructions string, table *toolnames.Table) *Request {
	out := &Request{
		Model:             req.Model,
		Instructions:      instructions,
		Input:             buildInput(req.Messages, table),
		Tools:             buildTools(req.Tools, table),
		ToolChoice:        convertToolChoice(req.ToolChoice, table),
		ParallelToolCalls: true,
		Store:             false,
		Stream:            true,
		Reasoning:         buildReasoning(req.ReasoningEffort),
	}

	if rf := req.ResponseFormat; rf != nil && rf.Type == "json_schema" && rf.JSONSchema != nil {
		out.Text = &TextConfig{Format: &OutputFormat{
			Type:   "json_schema",
			Name:   rf.JSONSchema.Name,
			Schema: rf.JSONSchema.Schema,
			Strict: rf.JSONSchema.Strict,
		}}
	}

	return out
}

func buildInput(messages []types.ChatMessage, table *toolnames.Table) []InputItem {
	var input []InputItem

	for _, msg := range messages {
		switch msg.Role {
		case "system", "developer":
			if text := types.ContentText(msg.Content); text != "" {
				input = append(input, InputItem{
					Type:    "message",
					Role:    "developer",
					Content: []ContentItem{{Type: "input_text", Text: text}},
				})
			}

		case "tool":
			callID := msg.ToolCallID
			if callID == "" {
				callID = msg.Name
			}
			if callID != "" {
				input = append(input, InputItem{
					Type:   "function_call_output",
					CallID: callID,
					Output: types.ContentText(msg.Content),
				})
			}

		case "assistant":
			if items := contentItems(msg.Content, "output_text"); len(items) > 0 {
				input = append(input, InputItem{Type: "message", Role: "assistant", Content: items})
			}
			for _, tc := range msg.ToolCalls {
				if tc.Type != "" && tc.Type != "function" {
					continue
				}
				if tc.ID == "" || tc.Function.Name == "" {
					continue
				}
				input = append(input, InputItem{
					Type:      "function_call",
					CallID:    tc.ID,
					Name:      table.Add(tc.Function.Name),
					Arguments: tc.Function.Arguments,
				})
			}

		default: // user
			if items := contentItems(msg.Content, "input_text"); len(items) > 0 {
				input = append(input, InputItem{Type: "message", Role: "user", Content: items})
			}
		}
	}

	return input
}

func contentItems(content any, textKind string) []ContentItem {
	var items []ContentItem
	for _, cp := range types.ContentParts(content) {
		switch cp.Type {
		case "text":
			items = append(items, ContentItem{Type: textKind, Text: cp.Text})
		case "image_url":
			if cp.ImageURL != nil && textKind == "input_text" {
				items = append(items, ContentItem{Type: "input_image", ImageURL: cp.ImageURL.URL})
			}
		}
	}
	return items
}

// buildTools flattens function tools (the function wrapper is removed) and
// renames them through the table. Non-function tool kinds pass through
// unchanged.
func buildTools(tools []types.ChatTool, table *toolnames.Table) []ToolDef {
	var out []ToolDef
	for _, t := range tools {
		if t.Type != "function" {
			out = append(out, ToolDef{Type: t.Type})
			continue
		}
		if t.Function == nil || t.Function.Name == "" {
			continue
		}
		params := t.Function.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, ToolDef{
			Type:        "function",
			Name:        table.Add(t.Function.Name),
			Description: t.Function.Description,
			Strict:      types.BoolPtr(false),
			Parameters:  params,
		})
	}
	return out
}

func convertToolChoice(choice any, table *toolnames.Table) any {
	switch tc := choice.(type) {
	case nil:
		return nil
	case string:
		return tc
	case map[string]any:
		if fn, ok := tc["function"].(map[string]any); ok {
			if name, _ := fn["name"].(string); name != "" {
				return map[string]any{"type": "function", "name": table.Shorten(name)}
			}
		}
		return tc
	}
	return nil
}

// buildReasoning always requests reasoning with an auto-generated summary at
// the caller's effort tier.
func buildReasoning(effort string) *Reasoning {
	if effort == "" {
		effort = DefaultReasoningEffort
	}
	return &Reasoning{Effort: effort, Summary: "auto"}
}
