package detectors

import (
	"path/filepath"
	"strings"
)

func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

func trimIndent(line string) string {
	return strings.TrimLeft(line, " \t")
}

func stripLine(line string) string {
	return strings.TrimSpace(line)
}

func indentOf(line string) int {
	n := 0
	for _, c := range line {
		if c == ' ' {
			n++
		} else if c == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*")
}

func isBlockCloser(trimmed string) bool {
	return trimmed == "}" || trimmed == "}," || trimmed == "end" || strings.HasPrefix(trimmed, "} else") ||
		strings.HasPrefix(trimmed, "elif ") || strings.HasPrefix(trimmed, "else:") || trimmed == "else"
}

func hasWordPrefix(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	if len(s) == len(word) {
		return true
	}
	next := s[len(word)]
	return next == ' ' || next == '\t' || next == '(' || next == ';'
}

func firstWord(s string) string {
	s = trimIndent(s)
	for i, c := range s {
		if c == ' ' || c == '\t' || c == '(' {
			return s[:i]
		}
	}
	return s
}

func terminalIndentWord(line string) string {
	return trimIndent(line)
}

var extLanguage = map[string]string{
	".go":  "go",
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
	".java": "java",
	".rb":  "ruby",
	".php": "php",
	".c":   "c",
	".cc":  "cpp",
	".cpp": "cpp",
	".h":   "c",
	".hpp": "cpp",
	".rs":  "rust",
	".cs":  "csharp",
}

func languageOf(path string) string {
	return extLanguage[strings.ToLower(filepath.Ext(path))]
}
