package domain

// ToolCall is a model request to execute a named capability. Args carry the
// model-provided arguments; numeric values may arrive as float64 and must be
// coerced by the dispatcher.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is the executed outcome of a single tool call, returned to the
// model. Errors are reported inside Response rather than aborting the
// conversation so the model can recover.
type ToolResult struct {
	Name     string
	Response map[string]any
}

// ModelTurn is one model response: either tool invocation requests, final
// text, or both. The orchestrator must validate, never trust, the text.
type ModelTurn struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolParam describes one parameter of a declared tool.
type ToolParam struct {
	Name        string
	Type        string // "string" or "integer"
	Description string
	Required    bool
}

// ToolSpec declares a capability the model may invoke. The set of tools is
// closed; dispatch happens through a tagged switch, never reflection.
type ToolSpec struct {
	Name        string
	Description string
	Params      []ToolParam
}
