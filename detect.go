package previewhl

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/cptaffe/previewhl/cachekey"
	"github.com/cptaffe/previewhl/config"
	"github.com/cptaffe/previewhl/fallback"
	"github.com/cptaffe/previewhl/pattern"
)

// Handler is a compiled FilenameHandler, ready for matching.
type Handler struct {
	re   *regexp.Regexp
	lang string
}

// CompileHandlers pre-compiles the FilenameHandler regexes from cfg.
// Handlers whose regex is invalid are returned as an error.
func CompileHandlers(cfg *config.Config) ([]Handler, error) {
	out := make([]Handler, 0, len(cfg.FilenameHandlers))
	for _, fh := range cfg.FilenameHandlers {
		re, err := regexp.Compile(fh.Pattern)
		if err != nil {
			return nil, fmt.Errorf("FilenameHandler pattern %q: %w", fh.Pattern, err)
		}
		out = append(out, Handler{re: re, lang: Normalize(fh.LanguageID)})
	}
	return out, nil
}

// aliases maps alternative spellings to the language ids the highlighters
// register.
var aliases = map[string]string{
	"golang":  "go",
	"js":      "javascript",
	"jsx":     "javascript",
	"node":    "javascript",
	"ts":      "typescript",
	"tsx":     "typescript",
	"py":      "python",
	"python3": "python",
	"sh":      "bash",
	"shell":   "bash",
	"zsh":     "bash",
	"c++":     "cpp",
	"cc":      "cpp",
	"cxx":     "cpp",
	"yml":     "yaml",
	"rs":      "rust",
	"kotlin":  "generic-c-like",
	"csharp":  "generic-c-like",
	"c#":      "generic-c-like",
	"dart":    "generic-c-like",
	"groovy":  "generic-c-like",
}

// Normalize lowercases id and resolves aliases.  The empty id stays empty.
func Normalize(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if a, ok := aliases[id]; ok {
		return a
	}
	return id
}

// Languages lists every language id a document can be colored as: the
// fast-path tables, the tree-sitter grammars and the chroma lexers,
// normalized and sorted.
func Languages() []string {
	seen := make(map[string]struct{})
	for _, ids := range [][]string{pattern.Languages(), fallback.TreeSitterLanguages(), fallback.ChromaLanguages()} {
		for _, id := range ids {
			seen[Normalize(id)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DetectLanguage picks a language id for a document without one: filename
// handlers first, then the shebang line, then chroma's filename patterns.
// It returns cachekey.NoLanguage when nothing matches.
func DetectLanguage(handlers []Handler, path, text string) string {
	for _, h := range handlers {
		if h.re.MatchString(path) {
			return h.lang
		}
	}
	if id := detectByShebang(firstLine(text)); id != "" {
		return id
	}
	if l := lexers.Match(filepath.Base(path)); l != nil {
		return Normalize(l.Config().Name)
	}
	return cachekey.NoLanguage
}

// firstLine returns text up to (but not including) the first newline.
func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSuffix(text[:i], "\r")
	}
	return text
}

// shebangs maps interpreter base-names to language IDs.
// Version suffixes (python3.11, node20, …) are stripped before lookup.
var shebangs = map[string]string{
	// Shell
	"ash":  "bash",
	"bash": "bash",
	"dash": "bash",
	"fish": "bash",
	"ksh":  "bash",
	"sh":   "bash",
	"zsh":  "bash",
	// Python
	"python":  "python",
	"python2": "python",
	"python3": "python",
	// JavaScript / TypeScript
	"bun":     "javascript",
	"node":    "javascript",
	"nodejs":  "javascript",
	"deno":    "typescript",
	"ts-node": "typescript",
	"tsx":     "typescript",
	// Java
	"java":  "java",
	"jbang": "java",
	// Scala
	"amm":    "scala", // Ammonite script runner
	"scala":  "scala",
	"scala3": "scala",
	// Rust
	"rust-script": "rust",
	// Swift
	"swift": "swift",
	// Chroma-only
	"lua":  "lua",
	"perl": "perl",
	"php":  "php",
	"ruby": "ruby",
}

// detectByShebang returns the language id named by a #! first line, or ""
// if the line is not a shebang or the interpreter is unknown.
func detectByShebang(firstLine string) string {
	interp := shebangInterpreter(firstLine)
	if interp == "" {
		return ""
	}
	return langIDForInterpreter(interp)
}

// shebangInterpreter extracts the interpreter base-name from a shebang line.
//
// It handles the common forms:
//
//	#!/bin/bash
//	#!/usr/bin/env python3
//	#!/usr/bin/env -S scala -classpath lib   (env flags are skipped)
func shebangInterpreter(line string) string {
	if !strings.HasPrefix(line, "#!") {
		return ""
	}
	fields := strings.Fields(line[2:])
	if len(fields) == 0 {
		return ""
	}
	base := filepath.Base(fields[0])
	if base == "env" {
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "-") {
				return filepath.Base(f)
			}
		}
		return ""
	}
	return base
}

// langIDForInterpreter maps an interpreter base-name to a language ID,
// retrying with trailing version characters stripped so "python3.11"
// becomes "python".
func langIDForInterpreter(name string) string {
	if id, ok := shebangs[name]; ok {
		return id
	}
	stripped := strings.TrimRightFunc(name, func(r rune) bool {
		return r == '.' || (r >= '0' && r <= '9')
	})
	if stripped != "" && stripped != name {
		if id, ok := shebangs[stripped]; ok {
			return id
		}
	}
	return ""
}
