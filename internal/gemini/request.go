package gemini

import (
	"encoding/json"
	"strings"

	"github.com/modelrelay/modelrelay/internal/toolnames"
	"github.com/modelrelay/modelrelay/internal/types"
)

// defaultSafetySettings is the maximal-permissiveness filter configuration
// attached when the caller specifies none. The relay must not silently apply
// stricter filtering than the client asked for.
var defaultSafetySettings = []SafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_CIVIC_INTEGRITY", Threshold: "BLOCK_NONE"},
}

// BuildRequest converts a canonical chat request into the native request
// shape. Tool names are shortened through the given table; the same table
// must be used when parsing the response.
func BuildRequest(req *types.ChatCompletionRequest, table *toolnames.Table) *Request {
	out := &Request{}

	// Tool responses are keyed by the tool name of the originating call, so
	// record call_id -> name from assistant tool calls as we walk.
	callNames := make(map[string]string)
	var systemTexts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system", "developer":
			if text := types.ContentText(msg.Content); text != "" {
				systemTexts = append(systemTexts, text)
			}

		case "tool":
			name := callNames[msg.ToolCallID]
			if name == "" {
				name = msg.ToolCallID
			}
			out.appendPart("user", Part{FunctionResponse: &FunctionResponse{
				Name:     name,
				Response: toolResponsePayload(msg.Content),
			}})

		case "assistant":
			var parts []Part
			for _, cp := range types.ContentParts(msg.Content) {
				if cp.Type == "text" {
					parts = append(parts, Part{Text: cp.Text})
				}
			}
			for _, tc := range msg.ToolCalls {
				if tc.Type != "" && tc.Type != "function" {
					continue
				}
				name := table.Shorten(tc.Function.Name)
				if tc.ID != "" {
					callNames[tc.ID] = name
				}
				parts = append(parts, Part{FunctionCall: &FunctionCall{
					Name: name,
					Args: parseArgs(tc.Function.Arguments),
				}})
			}
			if len(parts) > 0 {
				out.Contents = append(out.Contents, Content{Role: "model", Parts: parts})
			}

		default: // user
			var parts []Part
			for _, cp := range types.ContentParts(msg.Content) {
				switch cp.Type {
				case "text":
					parts = append(parts, Part{Text: cp.Text})
				case "image_url":
					if cp.ImageURL == nil {
						continue
					}
					if mime, data, ok := parseDataURL(cp.ImageURL.URL); ok {
						parts = append(parts, Part{InlineData: &Blob{MimeType: mime, Data: data}})
					} else {
						parts = append(parts, Part{FileData: &FileData{FileURI: cp.ImageURL.URL}})
					}
				}
			}
			if len(parts) > 0 {
				out.Contents = append(out.Contents, Content{Role: "user", Parts: parts})
			}
		}
	}

	if len(systemTexts) > 0 {
		systemText := strings.Join(systemTexts, "\n\n")
		if len(out.Contents) == 0 {
			// The native API rejects an empty content list, so a
			// system-only conversation becomes the first user block.
			out.Contents = []Content{{Role: "user", Parts: []Part{{Text: systemText}}}}
		} else {
			out.SystemInstruction = &Content{Parts: []Part{{Text: systemText}}}
		}
	}

	out.GenerationConfig = buildGenerationConfig(req)
	out.SafetySettings = defaultSafetySettings
	out.Tools = buildTools(req.Tools, table)
	out.ToolConfig = buildToolConfig(req.ToolChoice, table)

	return out
}

func buildGenerationConfig(req *types.ChatCompletionRequest) *GenerationConfig {
	cfg := &GenerationConfig{
		Temperature:    req.Temperature,
		TopP:           req.TopP,
		CandidateCount: req.N,
		StopSequences:  types.StopSequences(req.Stop),
	}
	if req.MaxCompletionTokens != nil {
		cfg.MaxOutputTokens = req.MaxCompletionTokens
	} else if req.MaxTokens != nil {
		cfg.MaxOutputTokens = req.MaxTokens
	}

	if rf := req.ResponseFormat; rf != nil {
		switch rf.Type {
		case "json_schema":
			cfg.ResponseMimeType = "application/json"
			if rf.JSONSchema != nil {
				cfg.ResponseSchema = rf.JSONSchema.Schema
			}
		case "json_object":
			cfg.ResponseMimeType = "application/json"
		}
	}

	for _, m := range req.Modalities {
		cfg.ResponseModalities = append(cfg.ResponseModalities, strings.ToUpper(m))
	}

	cfg.ThinkingConfig = thinkingConfig(req.ReasoningEffort)
	return cfg
}

// thinkingConfig maps the canonical reasoning effort onto the native
// thinking budget/level. Three tiers: "none" disables extended reasoning,
// "auto" grants an open-ended budget, any other value sets a bounded level.
func thinkingConfig(effort string) *ThinkingConfig {
	switch strings.ToLower(strings.TrimSpace(effort)) {
	case "":
		return nil
	case "none":
		return &ThinkingConfig{ThinkingBudget: types.IntPtr(0)}
	case "auto":
		return &ThinkingConfig{IncludeThoughts: true, ThinkingBudget: types.IntPtr(-1)}
	default:
		return &ThinkingConfig{IncludeThoughts: true, ThinkingLevel: strings.ToLower(strings.TrimSpace(effort))}
	}
}

func buildTools(tools []types.ChatTool, table *toolnames.Table) []Tool {
	var decls []FunctionDeclaration
	var out []Tool

	for _, t := range tools {
		switch t.Type {
		case "function":
			if t.Function == nil || t.Function.Name == "" {
				continue
			}
			decls = append(decls, FunctionDeclaration{
				Name:        table.Add(t.Function.Name),
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			})
		// Non-function tool kinds pass through under the native keys.
		case "web_search", "google_search":
			out = append(out, Tool{GoogleSearch: map[string]any{}})
		case "code_execution":
			out = append(out, Tool{CodeExecution: map[string]any{}})
		case "url_context":
			out = append(out, Tool{URLContext: map[string]any{}})
		}
	}

	if len(decls) > 0 {
		out = append(out, Tool{FunctionDeclarations: decls})
	}
	return out
}

func buildToolConfig(choice any, table *toolnames.Table) *ToolConfig {
	switch tc := choice.(type) {
	case string:
		switch tc {
		case "none":
			return &ToolConfig{FunctionCallingConfig: &FunctionCallingConfig{Mode: "NONE"}}
		case "required":
			return &ToolConfig{FunctionCallingConfig: &FunctionCallingConfig{Mode: "ANY"}}
		case "auto":
			return &ToolConfig{FunctionCallingConfig: &FunctionCallingConfig{Mode: "AUTO"}}
		}
	case map[string]any:
		if fn, ok := tc["function"].(map[string]any); ok {
			if name, _ := fn["name"].(string); name != "" {
				return &ToolConfig{FunctionCallingConfig: &FunctionCallingConfig{
					Mode:                 "ANY",
					AllowedFunctionNames: []string{table.Shorten(name)},
				}}
			}
		}
	}
	return nil
}

// toolResponsePayload wraps a tool message's content for the native
// functionResponse field. JSON object content is forwarded as-is; everything
// else is wrapped under a result key.
func toolResponsePayload(content any) map[string]any {
	text := types.ContentText(content)
	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil && parsed != nil {
		return parsed
	}
	return map[string]any{"result": text}
}

func parseArgs(args string) map[string]any {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return map[string]any{"_raw": args}
	}
	return parsed
}

func parseDataURL(u string) (mime, data string, ok bool) {
	if !strings.HasPrefix(u, "data:") {
		return "", "", false
	}
	rest := u[len("data:"):]
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", "", false
	}
	return rest[:sep], rest[sep+len(";base64,"):], true
}

func (r *Request) appendPart(role string, part Part) {
	if n := len(r.Contents); n > 0 && r.Contents[n-1].Role == role {
		r.Contents[n-1].Parts = append(r.Contents[n-1].Parts, part)
		return
	}
	r.Contents = append(r.Contents, Content{Role: role, Parts: []Part{part}})
}
