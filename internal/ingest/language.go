package ingest

import (
	"path/filepath"
	"strings"
)

// languageByExtension maps known source file extensions to language names.
var languageByExtension = map[string]string{
	".py":   "python",
	".java": "java",
	".js":   "javascript",
	".ts":   "typescript",
	".cpp":  "cpp",
	".c":    "c",
	".go":   "go",
	".rs":   "rust",
	".rb":   "ruby",
}

// DetectLanguage returns the language for a file path, or "" when the
// extension is not a known source extension.
func DetectLanguage(path string) string {
	return languageByExtension[strings.ToLower(filepath.Ext(path))]
}

// KnownExtensions returns the extensions the source recognizes.
func KnownExtensions() []string {
	exts := make([]string, 0, len(languageByExtension))
	for ext := range languageByExtension {
		exts = append(exts, ext)
	}
	return exts
}
