// Package loader reads source files for documentation runs: it maps
// file extensions to languages and normalizes file contents to UTF-8,
// falling back to Latin-1 for legacy files.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/BaSui01/docflow/types"
)

// languageByExt maps lowercase file extensions to language names used
// throughout the pipeline (doc style selection, change detection).
var languageByExt = map[string]string{
	".py":    "python",
	".pyw":   "python",
	".js":    "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".go":    "go",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "c++",
	".cc":    "c++",
	".cxx":   "c++",
	".hpp":   "c++",
	".cs":    "c#",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".pl":    "perl",
	".lua":   "lua",
	".r":     "r",
}

// Source is a loaded, UTF-8 normalized source file.
type Source struct {
	Path     string
	Language string
	Content  string
}

// Stats summarizes a loaded source for logging and progress messages.
type Stats struct {
	Lines int
	Bytes int
}

// LanguageForPath returns the pipeline language for a file path.
func LanguageForPath(path string) (string, bool) {
	lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// IsSupported reports whether the file's extension maps to a language.
func IsSupported(path string) bool {
	_, ok := LanguageForPath(path)
	return ok
}

// SupportedLanguages returns the distinct language names, sorted.
func SupportedLanguages() []string {
	seen := make(map[string]struct{}, len(languageByExt))
	for _, lang := range languageByExt {
		seen[lang] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for lang := range seen {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// LoadFile reads and normalizes a source file from disk.
func LoadFile(path string) (*Source, error) {
	lang, ok := LanguageForPath(path)
	if !ok {
		return nil, types.NewError(types.ErrUnsupportedLanguage,
			fmt.Sprintf("no language known for %q", filepath.Ext(path)))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrStageFailed, "read source file").WithCause(err)
	}
	content, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &Source{Path: path, Language: lang, Content: content}, nil
}

// LoadBytes normalizes in-memory content under an explicit language.
func LoadBytes(data []byte, language string) (*Source, error) {
	if language == "" {
		return nil, types.NewError(types.ErrUnsupportedLanguage, "language is required")
	}
	content, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &Source{Language: language, Content: content}, nil
}

// decode accepts UTF-8 as is and reinterprets anything else as
// Latin-1, which cannot fail and preserves every byte.
func decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", types.NewError(types.ErrStageFailed, "decode source file").WithCause(err)
	}
	return string(decoded), nil
}

// Stats computes line and byte counts for the source.
func (s *Source) Stats() Stats {
	lines := strings.Count(s.Content, "\n")
	if s.Content != "" && !strings.HasSuffix(s.Content, "\n") {
		lines++
	}
	return Stats{Lines: lines, Bytes: len(s.Content)}
}
