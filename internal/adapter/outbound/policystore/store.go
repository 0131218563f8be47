// Package policystore loads the enforced policy document from its
// deployed location with a repo-local fallback. Parsing is permissive per
// the policy domain package's contract: a missing or malformed file yields
// an empty policy and a logged warning, never an error; enforcement hooks
// that require a specific key block their own turn when it is absent.
package policystore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/atlasgate/gatekeeper/internal/domain/policy"
)

// Deployed and repo-local policy document locations.
const (
	DeployedPath = "/etc/windsurf/policy/policy.json"
	FallbackRel  = "windsurf/policy/policy.json"
)

// Loader resolves and parses the policy document for one invocation.
type Loader struct {
	// Override, when non-empty, is consulted instead of the search paths
	// (set from the operational config's policy_path or --policy flag).
	Override string
	// RepoRoot anchors the repo-local fallback; defaults to ".".
	RepoRoot string
	Logger   *slog.Logger
}

// NewLoader creates a policy loader. A nil logger falls back to
// slog.Default.
func NewLoader(override, repoRoot string, logger *slog.Logger) *Loader {
	if repoRoot == "" {
		repoRoot = "."
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Override: override, RepoRoot: repoRoot, Logger: logger}
}

// searchPaths returns the candidate policy file locations in priority
// order.
func (l *Loader) searchPaths() []string {
	if l.Override != "" {
		return []string{l.Override}
	}
	return []string{DeployedPath, filepath.Join(l.RepoRoot, FallbackRel)}
}

// Load resolves the policy document. It never fails: an unreadable or
// malformed document degrades to the empty policy with a warning, per the
// permissive-parse rule. The path the document was loaded from is returned
// for logging; empty means no file was found.
func (l *Loader) Load() (*policy.Document, string) {
	for _, path := range l.searchPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				l.Logger.Warn("policy file unreadable, continuing search", "path", path, "error", err)
			}
			continue
		}

		doc, err := parse(data)
		if err != nil {
			l.Logger.Warn("policy file malformed, treating as empty policy", "path", path, "error", err)
			return policy.Empty(), path
		}

		if err := doc.Validate(); err != nil {
			// Structurally invalid values are a warning, not a failure:
			// the document still loads, hooks see the parsed values.
			l.Logger.Warn("policy document has invalid values", "path", path, "error", err)
		}
		return doc, path
	}

	l.Logger.Warn("no policy file found, using empty policy")
	return policy.Empty(), ""
}

// parse decodes a policy document, normalizing nil collections.
func parse(data []byte) (*policy.Document, error) {
	var doc policy.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode policy document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}
