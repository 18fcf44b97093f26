package gemini

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
)

// StreamState carries the per-request conversion state for one native
// streaming response. One instance per stream, driven only by that stream's
// frames in arrival order.
type StreamState struct {
	ID      string
	Created int64
	Model   string

	table       *toolnames.Table
	roleSent    bool
	nextSlot    int
	callCounter int
	sawToolCall map[int]bool
}

// NewStreamState creates the state for one streaming request.
func NewStreamState(model string, table *toolnames.Table) *StreamState {
	if table == nil {
		table = toolnames.New(0)
	}
	return &StreamState{
		ID:          "chatcmpl-" + uuid.NewString(),
		Created:     time.Now().Unix(),
		Model:       model,
		table:       table,
		sawToolCall: make(map[int]bool),
	}
}

// ConvertPayload converts one frame's JSON payload into canonical chunks.
// Payloads that fail to parse, and payloads carrying the provider's own error
// field, are returned in raw and must be forwarded as literal text.
func (st *StreamState) ConvertPayload(payload string) (chunks []types.ChatCompletionChunk, raw string) {
	if !gjson.Valid(payload) || gjson.Get(payload, "error").Exists() {
		return nil, payload
	}

	var resp Response
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, payload
	}

	if resp.ResponseID != "" {
		st.ID = "chatcmpl-" + resp.ResponseID
	}
	if resp.ModelVersion != "" {
		st.Model = resp.ModelVersion
	}

	for _, cand := range resp.Candidates {
		chunks = append(chunks, st.convertCandidate(cand)...)
	}

	if usage := convertUsage(resp.UsageMetadata); usage != nil {
		if n := len(chunks); n > 0 && len(chunks[n-1].Choices) > 0 && chunks[n-1].Choices[0].FinishReason != nil {
			chunks[n-1].Usage = usage
		} else {
			// A frame carrying only usage metadata yields a single
			// terminal usage-only chunk.
			chunks = append(chunks, types.ChatCompletionChunk{
				ID:      st.ID,
				Object:  "chat.completion.chunk",
				Created: st.Created,
				Model:   st.Model,
				Choices: []types.ChatChunkChoice{},
				Usage:   usage,
			})
		}
	}

	return chunks, ""
}

func (st *StreamState) convertCandidate(cand Candidate) []types.ChatCompletionChunk {
	var chunks []types.ChatCompletionChunk

	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			switch classifyPart(p) {
			case partText:
				chunks = append(chunks, st.deltaChunk(cand.Index, types.ChatDelta{Content: p.Text}))
			case partThought:
				chunks = append(chunks, st.deltaChunk(cand.Index, types.ChatDelta{ReasoningContent: p.Text}))
			case partFunctionCall:
				name := st.table.Restore(p.FunctionCall.Name)
				// Slot order is encounter order, independent of any
				// backend-supplied index.
				slot := st.nextSlot
				st.nextSlot++
				st.sawToolCall[cand.Index] = true
				chunks = append(chunks, st.deltaChunk(cand.Index, types.ChatDelta{
					ToolCalls: []types.ToolCall{{
						Index: slot,
						ID:    newToolCallID(name, st.callCounter),
						Type:  "function",
						Function: types.FunctionCall{
							Name:      name,
							Arguments: marshalArgs(p.FunctionCall.Args),
						},
					}},
				}))
				st.callCounter++
			case partInlineImage:
				chunks = append(chunks, st.deltaChunk(cand.Index, types.ChatDelta{
					Images: []types.ContentPart{{
						Type:     "image_url",
						ImageURL: &types.ImageURL{URL: dataURL(p.InlineData)},
					}},
				}))
			}
		}
	}

	if cand.FinishReason != "" {
		finish := mapFinishReason(cand.FinishReason)
		if st.sawToolCall[cand.Index] {
			finish = types.FinishToolCalls
		}
		chunks = append(chunks, types.ChatCompletionChunk{
			ID:      st.ID,
			Object:  "chat.completion.chunk",
			Created: st.Created,
			Model:   st.Model,
			Choices: []types.ChatChunkChoice{{
				Index:        cand.Index,
				Delta:        types.ChatDelta{},
				FinishReason: types.StringPtr(finish),
			}},
		})
	}

	return chunks
}

// deltaChunk wraps a delta in a chunk, injecting the assistant role into
// exactly the first delta of the whole stream.
func (st *StreamState) deltaChunk(index int, delta types.ChatDelta) types.ChatCompletionChunk {
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
			Index: index,
			Delta: delta,
		}},
	}
}
