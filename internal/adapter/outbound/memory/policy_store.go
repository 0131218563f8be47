package memory

import (
	"sync"

	"github.com/atlasgate/gatekeeper/internal/domain/policy"
)

// DocumentSource loads a policy document from wherever it lives. The file
// loader in the policystore package is the production implementation; tests
// substitute a literal document.
type DocumentSource interface {
	Load() (*policy.Document, string)
}

// PolicyCache memoizes the compiled policy document for the lifetime of one
// invocation, so the regex sets are compiled exactly once no matter how
// many hooks consult them. Thread-safe for concurrent access.
type PolicyCache struct {
	source DocumentSource

	mu       sync.Mutex
	compiled *policy.Compiled
	path     string
}

// NewPolicyCache creates a cache in front of the given source.
func NewPolicyCache(source DocumentSource) *PolicyCache {
	return &PolicyCache{source: source}
}

// Get returns the compiled policy, loading and compiling it on first use.
func (c *PolicyCache) Get() *policy.Compiled {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.compiled == nil {
		doc, path := c.source.Load()
		c.compiled = policy.Compile(doc)
		c.path = path
	}
	return c.compiled
}

// Path returns where the cached document was loaded from; empty until Get
// has been called, or when no policy file was found.
func (c *PolicyCache) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Invalidate drops the cached compilation so the next Get reloads. The
// policy document is immutable during an invocation, so this is only for
// long-lived test processes.
func (c *PolicyCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compiled = nil
	c.path = ""
}

// StaticSource is a DocumentSource returning a fixed document, for tests
// and for embedding a policy directly.
type StaticSource struct {
	Doc *policy.Document
}

// Load returns the fixed document, normalized.
func (s StaticSource) Load() (*policy.Document, string) {
	if s.Doc == nil {
		return policy.Empty(), ""
	}
	s.Doc.Normalize()
	return s.Doc, "<static>"
}
