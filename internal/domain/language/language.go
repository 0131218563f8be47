// Package language maps file extensions to the language-specific
// conventions the documentation and language-compliance hooks check
// against: expected lint/test config filenames and the regex used to
// locate function definitions for documentation extraction.
package language

import "regexp"

// Spec describes one recognized language's file-level conventions.
type Spec struct {
	Name        string
	Extensions  []string
	TestConfigs []string
	LintConfigs []string
	// FuncDefPattern locates a function/method definition on a single
	// line; capture group 1 (or the first non-empty of several
	// alternatives) is the function name.
	FuncDefPattern *regexp.Regexp
	// LintExempt marks a language whose toolchain has linting built in, so
	// no dedicated lint-config file is required (MATLAB).
	LintExempt bool
}

// Registry is the fixed extension -> language table.
var Registry = []Spec{
	{
		Name:        "python",
		Extensions:  []string{".py"},
		TestConfigs: []string{"pytest.ini", "pyproject.toml", "setup.cfg", "tox.ini"},
		LintConfigs: []string{".flake8", "pyproject.toml", "ruff.toml", ".pylintrc"},
		FuncDefPattern: regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(`),
	},
	{
		Name:        "javascript",
		Extensions:  []string{".js", ".jsx"},
		TestConfigs: []string{"package.json", "jest.config.js", "vitest.config.ts"},
		LintConfigs: []string{".eslintrc.js", "eslint.config.mjs", ".eslintignore"},
		FuncDefPattern: regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(|^\s*(?:const|let)\s+(\w+)\s*=\s*(?:async\s*)?\([^)]*\)\s*=>`),
	},
	{
		Name:        "typescript",
		Extensions:  []string{".ts", ".tsx"},
		TestConfigs: []string{"package.json", "jest.config.js", "vitest.config.ts"},
		LintConfigs: []string{".eslintrc.js", "tsconfig.json", "eslint.config.mjs"},
		FuncDefPattern: regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(|^\s*(?:const|let)\s+(\w+)\s*=\s*(?:async\s*)?\([^)]*\)\s*=>`),
	},
	{
		Name:        "java",
		Extensions:  []string{".java"},
		TestConfigs: []string{"pom.xml", "build.gradle", "build.gradle.kts"},
		LintConfigs: []string{"checkstyle.xml", "spotbugs.xml", "pmd.xml"},
		FuncDefPattern: regexp.MustCompile(`^\s*(?:public|private|protected)\s+[\w<>\[\],\s]+\s+(\w+)\s*\([^)]*\)\s*\{?`),
	},
	{
		Name:        "c",
		Extensions:  []string{".c", ".h"},
		TestConfigs: []string{"CMakeLists.txt", "Makefile"},
		LintConfigs: []string{".clang-tidy", ".clang-format"},
		FuncDefPattern: regexp.MustCompile(`^\s*[\w\*]+\s+(\w+)\s*\([^;]*\)\s*\{`),
	},
	{
		Name:        "cpp",
		Extensions:  []string{".cpp", ".cc", ".cxx", ".hpp"},
		TestConfigs: []string{"CMakeLists.txt", "Makefile"},
		LintConfigs: []string{".clang-tidy", ".clang-format"},
		FuncDefPattern: regexp.MustCompile(`^\s*[\w:<>\*&]+\s+(\w+)\s*\([^;]*\)\s*\{`),
	},
	{
		Name:        "csharp",
		Extensions:  []string{".cs"},
		TestConfigs: []string{".csproj", ".sln"},
		LintConfigs: []string{".editorconfig", ".stylecop.json"},
		FuncDefPattern: regexp.MustCompile(`^\s*(?:public|private|protected|internal)\s+[\w<>\[\],\s]+\s+(\w+)\s*\([^)]*\)`),
	},
	{
		Name:        "go",
		Extensions:  []string{".go"},
		TestConfigs: []string{"go.mod", "go.sum"},
		LintConfigs: []string{"golangci.yml", ".golangci.yml"},
		FuncDefPattern: regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?(\w+)\s*\(`),
	},
	{
		Name:        "rust",
		Extensions:  []string{".rs"},
		TestConfigs: []string{"Cargo.toml"},
		LintConfigs: []string{"clippy.toml"},
		FuncDefPattern: regexp.MustCompile(`^\s*(?:pub\s+)?(?:async\s+)?fn\s+(\w+)\s*\(`),
	},
	{
		Name:        "php",
		Extensions:  []string{".php"},
		TestConfigs: []string{"phpunit.xml", "composer.json"},
		LintConfigs: []string{"phpstan.neon", ".php-cs-fixer.php"},
		FuncDefPattern: regexp.MustCompile(`^\s*(?:public|private|protected)?\s*function\s+(\w+)\s*\(`),
	},
	{
		Name:        "ruby",
		Extensions:  []string{".rb"},
		TestConfigs: []string{"Gemfile", "Rakefile", "spec_helper.rb"},
		LintConfigs: []string{".rubocop.yml", ".rubocop.yaml"},
		FuncDefPattern: regexp.MustCompile(`^\s*def\s+(\w+[?!]?)`),
	},
	{
		Name:        "swift",
		Extensions:  []string{".swift"},
		TestConfigs: []string{"Package.swift"},
		LintConfigs: []string{".swiftlint.yml"},
		FuncDefPattern: regexp.MustCompile(`^\s*(?:public|private|internal)?\s*func\s+(\w+)\s*\(`),
	},
	{
		Name:        "kotlin",
		Extensions:  []string{".kt"},
		TestConfigs: []string{"build.gradle", "build.gradle.kts"},
		LintConfigs: []string{"detekt.yml"},
		FuncDefPattern: regexp.MustCompile(`^\s*(?:public|private|internal)?\s*fun\s+(\w+)\s*\(`),
	},
	{
		Name:        "r",
		Extensions:  []string{".r"},
		TestConfigs: []string{"DESCRIPTION", "tests/testthat"},
		LintConfigs: []string{".lintr"},
		FuncDefPattern: regexp.MustCompile(`^\s*(\w+)\s*<-\s*function\s*\(`),
	},
	{
		Name:        "matlab",
		Extensions:  []string{".m"},
		TestConfigs: []string{"runtests.m"},
		LintConfigs: nil,
		LintExempt:  true,
		FuncDefPattern: regexp.MustCompile(`^\s*function\s+(?:\[?[\w,\s\]]*\]?\s*=\s*)?(\w+)\s*\(`),
	},
}

var byExtension = buildIndex()

func buildIndex() map[string]Spec {
	idx := make(map[string]Spec)
	for _, s := range Registry {
		for _, ext := range s.Extensions {
			idx[ext] = s
		}
	}
	return idx
}

// Detect returns the Spec matching ext (including the leading dot), and
// whether the extension is recognized. Unknown extensions are exempt from
// every language-specific check.
func Detect(ext string) (Spec, bool) {
	s, ok := byExtension[ext]
	return s, ok
}

// GenericVariableNames are the flagged-as-non-descriptive identifiers the
// documentation check rejects, up to its first five instances per edit.
var GenericVariableNames = []string{"x", "y", "tmp", "data", "obj", "item", "result"}
