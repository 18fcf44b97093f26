package codex

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
)

// StreamState carries the per-request conversion state for one streaming
// response. One instance per stream, driven only by that stream's events in
// arrival order.
type StreamState struct {
	ID      string
	Created int64
	Model   string

	table *toolnames.Table

	roleSent bool
	// slot is the current function-call slot, assigned in encounter order
	// regardless of any backend-supplied output index. -1 until the first
	// call is announced.
	slot          int
	currentCallID string
	argsDelta     bool
	announced     bool
	usedToolCalls bool
}

// StreamResult is the output of converting one event: canonical chunks,
// literal error events, and unparseable payloads passed through untouched.
type StreamResult struct {
	Chunks []types.ChatCompletionChunk
	Errors []types.ErrorResponse
	Raw    []string
}

func (r *StreamResult) empty() bool {
	return len(r.Chunks) == 0 && len(r.Errors) == 0 && len(r.Raw) == 0
}

// NewStreamState creates the state for one streaming request.
func NewStreamState(model string, table *toolnames.Table) *StreamState {
	if table == nil {
		table = toolnames.New(0)
	}
	return &StreamState{
		ID:      "chatcmpl-" + uuid.NewString(),
		Created: time.Now().Unix(),
		Model:   model,
		table:   table,
		slot:    -1,
	}
}

// ConvertEvent converts one event payload into canonical output. Events of
// unrecognized type produce nothing; payloads that fail to parse are passed
// through untouched.
func (st *StreamState) ConvertEvent(payload string) StreamResult {
	var res StreamResult

	var evt streamEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		res.Raw = append(res.Raw, payload)
		return res
	}

	switch evt.Type {
	case "response.created":
		if evt.Response != nil {
			if evt.Response.ID != "" {
				st.ID = evt.Response.ID
			}
			if evt.Response.CreatedAt != 0 {
				st.Created = evt.Response.CreatedAt
			}
			if evt.Response.Model != "" {
				st.Model = evt.Response.Model
			}
		}

	case "response.reasoning_summary_text.delta", "response.reasoning_text.delta":
		res.Chunks = append(res.Chunks, st.deltaChunk(types.ChatDelta{ReasoningContent: evt.Delta}))

	case "response.output_text.delta":
		res.Chunks = append(res.Chunks, st.deltaChunk(types.ChatDelta{Content: evt.Delta}))

	case "response.output_item.added":
		if evt.Item != nil && evt.Item.Type == "function_call" {
			st.slot++
			st.argsDelta = false
			st.announced = true
			st.usedToolCalls = true
			st.currentCallID = callID(evt.Item)
			res.Chunks = append(res.Chunks, st.toolCallChunk(st.currentCallID, evt.Item.Name, ""))
		}

	case "response.function_call_arguments.delta":
		st.argsDelta = true
		res.Chunks = append(res.Chunks, st.deltaChunk(types.ChatDelta{
			ToolCalls: []types.ToolCall{{
				Index:    st.slot,
				Type:     "function",
				Function: types.FunctionCall{Arguments: evt.Delta},
			}},
		}))

	case "response.function_call_arguments.done":
		// Arguments already streamed via deltas; emitting them again here
		// would duplicate them.
		if !st.argsDelta {
			res.Chunks = append(res.Chunks, st.deltaChunk(types.ChatDelta{
				ToolCalls: []types.ToolCall{{
					Index:    st.slot,
					Type:     "function",
					Function: types.FunctionCall{Arguments: evt.Arguments},
				}},
			}))
		}

	case "response.output_item.done":
		if evt.Item != nil && evt.Item.Type == "function_call" {
			if st.announced {
				st.announced = false
				break
			}
			// Fallback for backends that skip the added event: announce
			// the full call here, assuming arrival order matches slots.
			st.slot++
			st.usedToolCalls = true
			st.currentCallID = callID(evt.Item)
			res.Chunks = append(res.Chunks, st.toolCallChunk(st.currentCallID, evt.Item.Name, evt.Item.Arguments))
		}

	case "response.completed":
		finish := types.FinishStop
		if st.usedToolCalls {
			finish = types.FinishToolCalls
		} else if evt.Response != nil {
			finish = mapStatus(evt.Response)
		}
		chunk := types.ChatCompletionChunk{
			ID:      st.ID,
			Object:  "chat.completion.chunk",
			Created: st.Created,
			Model:   st.Model,
			Choices: []types.ChatChunkChoice{{
				Index:        0,
				Delta:        types.ChatDelta{},
				FinishReason: types.StringPtr(finish),
			}},
		}
		if evt.Response != nil {
			chunk.Usage = convertUsage(evt.Response.Usage)
		}
		res.Chunks = append(res.Chunks, chunk)

	case "response.failed":
		detail := types.ErrorDetail{Message: "response.failed"}
		if evt.Response != nil && evt.Response.Error != nil {
			detail = types.ErrorDetail{
				Message: evt.Response.Error.Message,
				Type:    evt.Response.Error.Type,
				Code:    evt.Response.Error.Code,
			}
		}
		res.Errors = append(res.Errors, types.ErrorResponse{Error: detail})

	case "response.incomplete":
		finish := types.FinishLength
		if evt.Response != nil {
			finish = mapStatus(evt.Response)
		}
		res.Chunks = append(res.Chunks, types.ChatCompletionChunk{
			ID:      st.ID,
			Object:  "chat.completion.chunk",
			Created: st.Created,
			Model:   st.Model,
			Choices: []types.ChatChunkChoice{{
				Index:        0,
				Delta:        types.ChatDelta{},
				FinishReason: types.StringPtr(finish),
			}},
		})

	case "error":
		res.Errors = append(res.Errors, types.ErrorResponse{Error: types.ErrorDetail{
			Message: evt.Message,
			Code:    evt.Code,
		}})
	}

	return res
}

// mapStatus maps a response status onto the canonical finish reason.
func mapStatus(resp *ResponseBody) string {
	switch resp.Status {
	case "incomplete":
		reason := ""
		if resp.IncompleteDetails != nil {
			reason = resp.IncompleteDetails.Reason
		}
		switch reason {
		case "content_filter":
			return types.FinishContentFilter
		default:
			return types.FinishLength
		}
	default:
		return types.FinishStop
	}
}

func convertUsage(u *ResponseUsage) *types.Usage {
	if u == nil {
		return nil
	}
	total := u.TotalTokens
	if total == 0 {
		total = u.InputTokens + u.OutputTokens
	}
	return &types.Usage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      total,
	}
}

func callID(item *OutputItem) string {
	if item.CallID != "" {
		return item.CallID
	}
	return item.ID
}

func (st *StreamState) toolCallChunk(id, shortName, args string) types.ChatCompletionChunk {
	return st.deltaChunk(types.ChatDelta{
		ToolCalls: []types.ToolCall{{
			Index: st.slot,
			ID:    id,
			Type:  "function",
			Function: types.FunctionCall{
				Name:      st.table.Restore(shortName),
				Arguments: args,
			},
		}},
	})
}

// deltaChunk wraps a delta in a chunk, injecting the assistant role into
// exactly the first delta of the whole stream.
func (st *StreamState) deltaChunk(delta types.ChatDelta) types.ChatCompletionChunk {
	if !st.roleSent {
		delta.Role = "assistant"
		st.roleSent = true
	}
	return types.ChatCompletionChunk{
		ID:      st.ID,
		Object:  "chat.completion.chunk",
		Created: st.Created,
		Model:   st.Model,
		Choices: []types.ChatChunkChoice{{
			Index: 0,
			Delta: delta,
		}},
	}
}
