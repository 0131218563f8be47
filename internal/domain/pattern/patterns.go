// Package pattern holds the curated, mostly hard-coded regex groups several
// enforcement hooks scan content against: intent classification
// weights, escape primitives, incompleteness markers, mock patterns,
// reasoning markers, and filesystem path/extension denylists.
//
// These groups are deliberately not policy-configurable (except where noted);
// they encode baseline safety behavior the gateway enforces regardless of
// what policy.json says.
package pattern

import "regexp"

// IntentCategory is one of the four recognized prompt-intent buckets.
type IntentCategory string

const (
	IntentMutate  IntentCategory = "mutate"
	IntentRepair  IntentCategory = "repair"
	IntentAudit   IntentCategory = "audit"
	IntentExplore IntentCategory = "explore"
)

// WeightedPattern is one regex contributing a weight toward its category's
// score.
type WeightedPattern struct {
	Category IntentCategory
	Regex    *regexp.Regexp
	Weight   float64
}

func mustCompileWord(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + word + `)\b`)
}

// IntentPatterns is the fixed weighted pattern set intent classification
// scores against.
var IntentPatterns = []WeightedPattern{
	{IntentMutate, mustCompileWord("implement|write|generate|edit|refactor|add|create|patch|modify|change|update"), 1.0},
	{IntentRepair, mustCompileWord("fix|debug|repair|resolve"), 1.0},
	{IntentAudit, mustCompileWord("review|audit|check|verify"), 1.0},
	{IntentExplore, mustCompileWord("explain|show|diagram"), 1.0},
}

// EscapePrimitives are hard-coded process/network/FFI escape hatches
// forbidden in execution_only edits.
var EscapePrimitives = []*regexp.Regexp{
	regexp.MustCompile(`\bsubprocess\.`),
	regexp.MustCompile(`\bos\.system\(`),
	regexp.MustCompile(`\b(exec|eval|compile|__import__)\(`),
	regexp.MustCompile(`\bopen\(`),
	regexp.MustCompile(`\b(socket|urllib|requests|httpx)\.`),
	regexp.MustCompile(`\b(ctypes|cffi)\b`),
	regexp.MustCompile(`\b(bash|sh)\s+-c\b`),
	regexp.MustCompile(`\bcmd\s*/c\b`),
	regexp.MustCompile(`\bpowershell\s+-Command\b`),
}

// CommentPrefixes covers the comment syntaxes incompleteness markers are
// scanned within.
var CommentPrefixes = []string{"#", "//", "/*", "--", "%"}

// IncompletenessMarkers is the TODO/FIXME-family keyword set the
// completeness check blocks on.
var IncompletenessMarkers = regexp.MustCompile(`(?i)\b(TODO|FIXME|XXX|HACK|BUG|TEMP|LATER|SOMEDAY|BROKEN)\b`)

// StubKeywords are language-specific "not implemented" throws.
var StubKeywords = regexp.MustCompile(
	`NotImplementedError|NotImplementedException|UnsupportedOperationException|unimplemented!|todo!|panic\(\s*"not implemented"|runtime_error\(\s*".*implement.*"|fatalError\(`,
)

// PlaceholderReturns matches a bare return statement, or one returning only
// an empty or zero placeholder value (None, nil, null, {}, [], "", 0, false,
// vec![]).
var PlaceholderReturns = regexp.MustCompile(
	`^\s*return(\s+(None|nil|null|\{\}|\[\]|""|0|false))?\s*;?\s*$|^\s*return\s+vec!\[\]\s*;?\s*$`,
)

// BarePass matches a standalone `pass` statement not inside an except clause
// (the except-clause exclusion is applied by the caller, which inspects
// surrounding lines).
var BarePass = regexp.MustCompile(`^\s*pass\s*$`)

// MockPatterns are test-double idioms forbidden in REPAIR-mode edits and
// in test files.
var MockPatterns = regexp.MustCompile(
	`\b(Mock|Stub|Fake|Spy)\(|jest\.mock|vitest\.mock|@Mock\b|@Spy\b|\bmockito\b|\bsinon\b|\btestDouble\b|unittest\.mock`,
)

// ReasoningMarkers are hedging/deliberation words the reasoning detector
// forbids in executor tool arguments.
var ReasoningMarkers = regexp.MustCompile(
	`(?i)\b(because|should|maybe|could|might|probably|likely|I think|I believe|strategy|approach|recommend|suggest|best practice)\b`,
)

// SuspiciousPaths are path components the filesystem-boundary family
// treats as noteworthy but not automatically forbidden.
var SuspiciousPaths = []string{
	"node_modules", ".git", ".env", "__pycache__", "dist", "build", ".cache", "venv",
}

// ForbiddenPathRoots are path components writes are blocked under
// unconditionally.
var ForbiddenPathRoots = []string{
	".ssh", ".aws", ".env", "/etc", "/proc", "/sys", "/root", "/var/log",
	"build/", "dist/", "node_modules/",
}

// ForbiddenExtensions are binary/compiled-artifact extensions writes may
// never target.
var ForbiddenExtensions = []string{
	".exe", ".dll", ".so", ".bin", ".pyc", ".o", ".a", ".iso", ".dmg", ".jar", ".whl",
}
