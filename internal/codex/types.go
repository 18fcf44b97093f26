// Package codex converts between the canonical chat completion format and
// the Responses-style streaming API: request building, the streaming event
// state machine, and non-streaming response conversion.
package codex

// Request is the Responses-style request payload.
type Request struct {
	Model             string      `json:"model"`
	Instructions      string      `json:"instructions,omitempty"`
	Input             []InputItem `json:"input"`
	Tools             []ToolDef   `json:"tools,omitempty"`
	ToolChoice        any         `json:"tool_choice,omitempty"`
	ParallelToolCalls bool        `json:"parallel_tool_calls"`
	Store             bool        `json:"store"`
	Stream            bool        `json:"stream"`
	Reasoning         *Reasoning  `json:"reasoning,omitempty"`
	Text              *TextConfig `json:"text,omitempty"`
	Include           []string    `json:"include,omitempty"`
}

// InputItem is one item of the request input array. Flat discriminated
// union: Type determines which fields are relevant.
type InputItem struct {
	Type      string        `json:"type"`
	Role      string        `json:"role,omitempty"`
	Content   []ContentItem `json:"content,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Output    string        `json:"output,omitempty"`
}

// ContentItem is one content entry of an input message.
type ContentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ToolDef is a flattened tool declaration (no function wrapper).
type ToolDef struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Strict      *bool  `json:"strict,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// Reasoning requests extended reasoning with a summary.
type Reasoning struct {
	Effort  string `json:"effort"`
	Summary string `json:"summary,omitempty"`
}

// TextConfig carries the structured output-format directive.
type TextConfig struct {
	Format *OutputFormat `json:"format,omitempty"`
}

// OutputFormat is a structured-output directive.
type OutputFormat struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Schema any    `json:"schema,omitempty"`
	Strict *bool  `json:"strict,omitempty"`
}

// --- Response shapes ---

// streamEvent is one decoded SSE event from the backend.
type streamEvent struct {
	Type      string        `json:"type"`
	Delta     string        `json:"delta"`
	Arguments string        `json:"arguments"`
	Item      *OutputItem   `json:"item"`
	Response  *ResponseBody `json:"response"`
	Message   string        `json:"message"`
	Code      string        `json:"code"`
}

// OutputItem is one item of a response output array.
type OutputItem struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Status    string          `json:"status,omitempty"`
	Role      string          `json:"role,omitempty"`
	Name      string          `json:"name,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	Content   []OutputContent `json:"content,omitempty"`
	Summary   []SummaryPart   `json:"summary,omitempty"`
}

// OutputContent is one content entry of a response message item.
type OutputContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// SummaryPart is one reasoning-summary entry.
type SummaryPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ResponseBody is the full response object, as carried by created/completed/
// failed/incomplete events or returned non-streaming.
type ResponseBody struct {
	ID                string             `json:"id,omitempty"`
	CreatedAt         int64              `json:"created_at,omitempty"`
	Model             string             `json:"model,omitempty"`
	Status            string             `json:"status,omitempty"`
	Output            []OutputItem       `json:"output,omitempty"`
	Usage             *ResponseUsage     `json:"usage,omitempty"`
	Error             *ResponseError     `json:"error,omitempty"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
}

// ResponseUsage is the backend's token accounting.
type ResponseUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ResponseError is the backend's error payload.
type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

// IncompleteDetails names why a response stopped early.
type IncompleteDetails struct {
	Reason string `json:"reason,omitempty"`
}
