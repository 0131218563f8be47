package policy

import (
	"fmt"
	"regexp"
)

// Compiled is a Document with its regex-bearing fields pre-compiled and
// memoized for the lifetime of one invocation. Hooks consult Compiled, never
// Document, so a malformed regex is reported once at load time rather than
// on every hook that happens to touch it.
type Compiled struct {
	Doc                *Document
	BlockCommandsRegex []*regexp.Regexp
	ProhibitedPatterns map[string][]*regexp.Regexp
	// BadPatterns collects regexes that failed to compile, keyed by their
	// source string, so a malformed policy entry degrades to "never
	// matches" plus a logged warning rather than crashing hook evaluation.
	BadPatterns []string
}

// Compile compiles all regex-bearing fields of doc. It never returns an
// error: an individual malformed regex is skipped and recorded in
// BadPatterns, consistent with the policy store's permissive-parse
// posture.
func Compile(doc *Document) *Compiled {
	doc.Normalize()
	c := &Compiled{
		Doc:                doc,
		ProhibitedPatterns: make(map[string][]*regexp.Regexp, len(doc.ProhibitedPatterns)),
	}

	for _, src := range doc.BlockCommandsRegex {
		if re, err := regexp.Compile(src); err == nil {
			c.BlockCommandsRegex = append(c.BlockCommandsRegex, re)
		} else {
			c.BadPatterns = append(c.BadPatterns, src)
		}
	}

	for category, patterns := range doc.ProhibitedPatterns {
		compiled := make([]*regexp.Regexp, 0, len(patterns))
		for _, src := range patterns {
			if re, err := regexp.Compile(src); err == nil {
				compiled = append(compiled, re)
			} else {
				c.BadPatterns = append(c.BadPatterns, fmt.Sprintf("%s: %s", category, src))
			}
		}
		c.ProhibitedPatterns[category] = compiled
	}

	return c
}

// MatchesBlockedCommand reports whether cmd matches any block_commands_regex
// entry (standard profile only; stricter profiles block all commands).
func (c *Compiled) MatchesBlockedCommand(cmd string) (bool, string) {
	for _, re := range c.BlockCommandsRegex {
		if re.MatchString(cmd) {
			return true, re.String()
		}
	}
	return false, ""
}

// MatchProhibited scans text against every compiled pattern in the named
// category, returning the first match's source pattern, or "" if none
// match.
func (c *Compiled) MatchProhibited(category, text string) (bool, string) {
	for _, re := range c.ProhibitedPatterns[category] {
		if re.MatchString(text) {
			return true, re.String()
		}
	}
	return false, ""
}
