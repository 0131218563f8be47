// Package intercept defines the wire contract between the host agent and the
// gatekeeper CLI: the JSON payload delivered on stdin at each interception
// point, and the structured Decision each hook (and the dispatch kernel as a
// whole) produces from it.
//
// The payload shape is deliberately loose-typed where the host contract is
// loose (tool_info is a grab-bag that varies per interception point), but
// the Decision contract is closed: exactly one Status, one exit code, and an
// optional human-readable reason plus machine-readable details.
package intercept

import "encoding/json"

// Point identifies one of the fixed interception points a host agent calls
// the gatekeeper binary for.
type Point string

const (
	PreUserPrompt      Point = "pre_user_prompt"
	PreMCPToolUse      Point = "pre_mcp_tool_use"
	PreRunCommand      Point = "pre_run_command"
	PreFilesystemWrite Point = "pre_filesystem_write"
	PreWriteCode       Point = "pre_write_code"
	PostWrite          Point = "post_write"
	PostSession        Point = "post_session"
	PostRefusal        Point = "post_refusal"
)

// Valid reports whether p is one of the eight fixed interception points.
func (p Point) Valid() bool {
	switch p {
	case PreUserPrompt, PreMCPToolUse, PreRunCommand, PreFilesystemWrite,
		PreWriteCode, PostWrite, PostSession, PostRefusal:
		return true
	default:
		return false
	}
}

// Edit is one proposed or already-applied file modification.
type Edit struct {
	Path      string `json:"path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

// ToolInfo is the per-invocation detail block, whose populated fields vary
// by interception point: a shell hook carries Command, an MCP-tool hook
// carries ToolName/Arguments, a write hook carries Edits, and so on. Unused
// fields are simply absent from the incoming JSON and left at zero value.
type ToolInfo struct {
	ToolName  string          `json:"tool_name,omitempty"`
	Command   string          `json:"command,omitempty"`
	Prompt    string          `json:"prompt,omitempty"`
	Edits     []Edit          `json:"edits,omitempty"`
	Plan      string          `json:"plan,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// RefusalInfo carries the agent's self-reported reason for declining a
// user request, delivered at the post_refusal interception point.
type RefusalInfo struct {
	Reason        string   `json:"reason,omitempty"`
	Message       string   `json:"message,omitempty"`
	Details       []string `json:"details,omitempty"`
	RecoverySteps []string `json:"recovery_steps,omitempty"`
	ExitCode      int      `json:"exit_code,omitempty"`
}

// Payload is the full JSON document read from stdin for every interception
// point.
type Payload struct {
	SessionID            string       `json:"session_id"`
	Point                Point        `json:"interception_point"`
	ToolInfo             ToolInfo     `json:"tool_info"`
	Edits                []Edit       `json:"edits,omitempty"`
	ConversationContext  string       `json:"conversation_context,omitempty"`
	RefusalInfo          *RefusalInfo `json:"refusal_info,omitempty"`
	WorkingDirectory     string       `json:"working_directory,omitempty"`
}

// AllEdits returns the edits carried by the payload, preferring the
// top-level Edits field and falling back to ToolInfo.Edits, since hosts are
// observed to populate either depending on interception point.
func (p *Payload) AllEdits() []Edit {
	if len(p.Edits) > 0 {
		return p.Edits
	}
	return p.ToolInfo.Edits
}

// Parse decodes a raw intercept payload from stdin JSON. It does not
// validate Point or required fields; callers decide how strictly to react to
// a malformed or incomplete payload.
func Parse(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
