// Package policy defines the policy-store domain types: the enforced
// policy document (execution profile, tool allowlist, command blocklist,
// prohibited-pattern categories, gate tokens, and optional custom rules).
//
// Parsing is deliberately permissive: missing fields default to empty
// collections, and malformed content yields an empty policy plus a logged
// warning rather than a hard failure. Enforcement hooks that require a
// specific key (e.g. tokens.audit_ok) are responsible for blocking their own
// turn when it is absent; the policy store itself never refuses to load.
// Structurally-invalid-but-present values (e.g. an unrecognized
// execution_profile string) are instead reported through Validate, using
// go-playground/validator struct tags.
package policy

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ExecutionProfile is the gateway's global capability stance.
type ExecutionProfile string

const (
	ProfileStandard      ExecutionProfile = "standard"
	ProfileExecutionOnly ExecutionProfile = "execution_only"
	ProfileLocked        ExecutionProfile = "locked"
)

// Valid reports whether p is one of the three recognized execution profiles.
// An empty or unrecognized value is treated as ProfileStandard by callers
// (the permissive-parse rule), but Validate flags it as a warning.
func (p ExecutionProfile) Valid() bool {
	switch p {
	case ProfileStandard, ProfileExecutionOnly, ProfileLocked, "":
		return true
	default:
		return false
	}
}

// Tokens holds the opaque strings a user must paste into a prompt to
// acknowledge the audit/ship gates.
type Tokens struct {
	AuditOK string `json:"audit_ok,omitempty"`
	ShipOK  string `json:"ship_ok,omitempty"`
}

// AllowlistEntry is one permitted MCP tool name, with an optional per-
// operation required-field schema. RequiredFields is an additive strictness
// layer on top of the base allowlist check; entries that omit it behave
// exactly like a plain allowlist string.
type AllowlistEntry struct {
	Name           string   `json:"name"`
	RequiredFields []string `json:"required_fields,omitempty"`
}

// UnmarshalJSON accepts either a bare tool-name string (the common
// shape) or an object carrying an optional required_fields schema, so policy
// authors only pay for the stricter shape when they need it.
func (e *AllowlistEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		e.Name = name
		e.RequiredFields = nil
		return nil
	}
	type alias AllowlistEntry
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("allowlist entry: %w", err)
	}
	*e = AllowlistEntry(a)
	return nil
}

// CustomRule is an operator-authored CEL expression evaluated against the
// intercept payload, additive to the fixed enforcement hooks.
type CustomRule struct {
	Name       string `json:"name" validate:"required"`
	Expression string `json:"expression" validate:"required"`
	Mandatory  bool   `json:"mandatory"`
	Reason     string `json:"reason,omitempty"`
}

// Document is the policy document as decoded from policy.json.
type Document struct {
	ExecutionProfile   ExecutionProfile    `json:"execution_profile"`
	MCPToolAllowlist   []AllowlistEntry    `json:"mcp_tool_allowlist"`
	BlockCommandsRegex []string            `json:"block_commands_regex"`
	ProhibitedPatterns map[string][]string `json:"prohibited_patterns"`
	Tokens             Tokens              `json:"tokens"`
	CustomRules        []CustomRule        `json:"custom_rules,omitempty" validate:"dive"`
}

// Empty returns a policy document with all collections initialized empty,
// the result of "policy absent or malformed"
func Empty() *Document {
	return &Document{
		ExecutionProfile:   ProfileStandard,
		MCPToolAllowlist:   []AllowlistEntry{},
		BlockCommandsRegex: []string{},
		ProhibitedPatterns: map[string][]string{},
	}
}

// Normalize fills nil collections with empty ones so downstream code never
// has to nil-check, and defaults an empty ExecutionProfile to standard.
func (d *Document) Normalize() {
	if d.MCPToolAllowlist == nil {
		d.MCPToolAllowlist = []AllowlistEntry{}
	}
	if d.BlockCommandsRegex == nil {
		d.BlockCommandsRegex = []string{}
	}
	if d.ProhibitedPatterns == nil {
		d.ProhibitedPatterns = map[string][]string{}
	}
	if d.ExecutionProfile == "" {
		d.ExecutionProfile = ProfileStandard
	}
}

// AllowlistLookup returns the allowlist entry for name, if present.
func (d *Document) AllowlistLookup(name string) (AllowlistEntry, bool) {
	for _, e := range d.MCPToolAllowlist {
		if e.Name == name {
			return e, true
		}
	}
	return AllowlistEntry{}, false
}

// HasTokens reports whether both gate tokens are configured. The prompt
// gate only
// enforces the token gate when this is true.
func (d *Document) HasTokens() bool {
	return d.Tokens.AuditOK != "" && d.Tokens.ShipOK != ""
}

// Validate reports structurally invalid (but present) values: an
// unrecognized execution_profile, or a custom rule missing its name or
// expression. It does not reject missing/empty collections; those are
// legitimate per the permissive-parse rule.
func (d *Document) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(d); err != nil {
		return err
	}
	if !d.ExecutionProfile.Valid() {
		return &InvalidProfileError{Profile: string(d.ExecutionProfile)}
	}
	return nil
}

// InvalidProfileError reports an execution_profile value outside the closed
// enum {standard, execution_only, locked}.
type InvalidProfileError struct {
	Profile string
}

func (e *InvalidProfileError) Error() string {
	return "policy: unrecognized execution_profile " + e.Profile
}
