package policystore

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/atlasgate/gatekeeper/internal/domain/policy"
)

func writePolicy(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "windsurf", "policy", "policy.json")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_RepoFallback(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, `{
		"execution_profile": "execution_only",
		"mcp_tool_allowlist": ["mcp_atlas-gate-mcp_begin_session"],
		"tokens": {"audit_ok": "AOK-1", "ship_ok": "SOK-1"}
	}`)

	doc, path := NewLoader("", dir, slog.Default()).Load()
	if path == "" {
		t.Fatal("expected the repo-local policy to be found")
	}
	if doc.ExecutionProfile != policy.ProfileExecutionOnly {
		t.Errorf("got profile %q", doc.ExecutionProfile)
	}
	if len(doc.MCPToolAllowlist) != 1 || doc.MCPToolAllowlist[0].Name != "mcp_atlas-gate-mcp_begin_session" {
		t.Errorf("allowlist not parsed: %+v", doc.MCPToolAllowlist)
	}
	if !doc.HasTokens() {
		t.Error("expected both tokens present")
	}
}

func TestLoad_OverrideWins(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(override, []byte(`{"execution_profile":"locked"}`), 0600); err != nil {
		t.Fatal(err)
	}

	doc, path := NewLoader(override, dir, slog.Default()).Load()
	if path != override {
		t.Errorf("expected override path, got %q", path)
	}
	if doc.ExecutionProfile != policy.ProfileLocked {
		t.Errorf("got profile %q", doc.ExecutionProfile)
	}
}

func TestLoad_MissingFileYieldsEmptyPolicy(t *testing.T) {
	doc, path := NewLoader("", t.TempDir(), slog.Default()).Load()
	if path != "" {
		t.Errorf("expected no path for missing policy, got %q", path)
	}
	if doc.ExecutionProfile != policy.ProfileStandard {
		t.Errorf("empty policy should default to standard, got %q", doc.ExecutionProfile)
	}
	if doc.MCPToolAllowlist == nil || doc.ProhibitedPatterns == nil {
		t.Error("empty policy collections must be initialized")
	}
}

func TestLoad_MalformedFileYieldsEmptyPolicy(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, `{not json`)

	doc, path := NewLoader("", dir, slog.Default()).Load()
	if path == "" {
		t.Error("the malformed file's path should still be reported")
	}
	if doc.ExecutionProfile != policy.ProfileStandard || len(doc.MCPToolAllowlist) != 0 {
		t.Errorf("malformed policy should degrade to empty, got %+v", doc)
	}
}

func TestLoad_InvalidProfileStillLoads(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, `{"execution_profile": "yolo"}`)

	doc, _ := NewLoader("", dir, slog.Default()).Load()
	// Permissive parse: the document loads with the value as-is; Validate
	// reported it as a warning. Hooks treat unknown profiles as standard.
	if doc.ExecutionProfile != "yolo" {
		t.Errorf("got profile %q", doc.ExecutionProfile)
	}
}

func TestLoad_RequiredFieldsEntry(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, `{
		"mcp_tool_allowlist": [
			"mcp_atlas-gate-mcp_begin_session",
			{"name": "mcp_atlas-gate-mcp_write_file", "required_fields": ["plan", "path", "content"]}
		]
	}`)

	doc, _ := NewLoader("", dir, slog.Default()).Load()
	entry, ok := doc.AllowlistLookup("mcp_atlas-gate-mcp_write_file")
	if !ok {
		t.Fatal("expected write_file entry")
	}
	if len(entry.RequiredFields) != 3 {
		t.Errorf("required_fields not parsed: %+v", entry)
	}
}
