package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// ConcernLog appends human-readable audit lines to one file per concern
// (e.g. "session", "plan", "enforcement") beside the JSON Lines trail.
// Line format is `[<ISO-8601 timestamp>] <message>`, append-only; the
// gateway never truncates these files.
type ConcernLog struct {
	dir string
	mu  sync.Mutex
}

// concernNameRe restricts concern names to a filesystem-safe alphabet so a
// caller cannot steer the log file outside the audit directory.
var concernNameRe = regexp.MustCompile(`^[a-z0-9_-]+$`)

// NewConcernLog creates a concern log rooted at dir, creating it if absent.
func NewConcernLog(dir string) (*ConcernLog, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create concern log directory: %w", err)
	}
	return &ConcernLog{dir: dir}, nil
}

// Append writes one timestamped line to the named concern's log file.
func (l *ConcernLog) Append(concern, message string) error {
	if !concernNameRe.MatchString(concern) {
		return fmt.Errorf("invalid concern name %q", concern)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, concern+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open concern log %s: %w", concern, err)
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), message)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append concern log %s: %w", concern, err)
	}
	return nil
}
