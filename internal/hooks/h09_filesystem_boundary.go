package hooks

import (
	"context"
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/pattern"
	"github.com/atlasgate/gatekeeper/internal/domain/policy"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// maxNewFilesPerTurn bounds how many new files a single turn may create.
const maxNewFilesPerTurn = 50

// isPathEscaping reports whether path attempts to leave the working tree via
// traversal, an absolute path, or a home-relative reference.
func isPathEscaping(path string) bool {
	return strings.Contains(path, "..") || strings.HasPrefix(path, "/") || strings.HasPrefix(path, "~")
}

func isUnderForbiddenRoot(path string) (bool, string) {
	lower := strings.ToLower(path)
	for _, root := range pattern.ForbiddenPathRoots {
		if strings.Contains(lower, strings.ToLower(root)) {
			return true, root
		}
	}
	return false, ""
}

func hasForbiddenExtension(path string) (bool, string) {
	lower := strings.ToLower(path)
	for _, ext := range pattern.ForbiddenExtensions {
		if strings.HasSuffix(lower, ext) {
			return true, ext
		}
	}
	return false, ""
}

// FilesystemBoundary rejects path traversal, absolute/home-relative
// paths, forbidden roots, forbidden extensions, direct writes under
// execution_only, and more than maxNewFilesPerTurn new files in one turn.
type FilesystemBoundary struct{}

func (FilesystemBoundary) Name() string           { return "pre_filesystem_write" }
func (FilesystemBoundary) Posture() hook.Posture  { return hook.Mandatory }
func (FilesystemBoundary) Point() intercept.Point { return intercept.PreFilesystemWrite }

func (FilesystemBoundary) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	if deps.Policy.Doc.ExecutionProfile == policy.ProfileExecutionOnly {
		return intercept.Block("direct filesystem writes are forbidden in execution_only profile: route through the MCP write tool", nil), nil
	}

	edits := payload.AllEdits()
	newFileCount := 0

	for _, e := range edits {
		if isPathEscaping(e.Path) {
			return intercept.Block("path escapes the working tree", map[string]any{
				"category": "escape_attempt", "path": e.Path,
			}), nil
		}
		if forbidden, root := isUnderForbiddenRoot(e.Path); forbidden {
			return intercept.Block("path is under a forbidden root", map[string]any{"path": e.Path, "root": root}), nil
		}
		if forbidden, ext := hasForbiddenExtension(e.Path); forbidden {
			return intercept.Block("forbidden file extension", map[string]any{"path": e.Path, "extension": ext}), nil
		}
		if e.OldString == "" {
			newFileCount++
		}
	}

	if newFileCount > maxNewFilesPerTurn {
		return intercept.Block("too many new files in one turn", map[string]any{
			"new_files": newFileCount, "limit": maxNewFilesPerTurn,
		}), nil
	}
	return intercept.Allow(), nil
}

var _ hook.Hook = FilesystemBoundary{}
