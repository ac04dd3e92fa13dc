// Package snippets pulls visualization code out of a model response and
// writes it where a front end can pick it up.
package snippets

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/KaramelBytes/datavizard/internal/utils"
)

// Snippet is one code block from a response, numbered from 1.
type Snippet struct {
	Index    int    `json:"index"`
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}

// Filename returns viz_<index> with an extension for the language.
func (s Snippet) Filename() string {
	return fmt.Sprintf("viz_%d%s", s.Index, extension(s.Language))
}

var (
	fenceRe   = regexp.MustCompile("(?ms)^[ \t]*```[ \t]*([A-Za-z0-9_+#.-]*)[^\n]*\n(.*?)^[ \t]*```")
	headingRe = regexp.MustCompile(`(?im)^.*visualization[^\n]*\n`)
)

// Extract returns fenced code blocks in order. A response without fences is
// split after its last line mentioning "visualization" and the remainder is
// returned as a single snippet.
func Extract(response string) []Snippet {
	var out []Snippet
	for _, m := range fenceRe.FindAllStringSubmatch(response, -1) {
		code := strings.TrimRight(m[2], " \t\n")
		if strings.TrimSpace(code) == "" {
			continue
		}
		out = append(out, Snippet{Index: len(out) + 1, Language: strings.ToLower(m[1]), Code: code})
	}
	if len(out) > 0 {
		return out
	}
	rest := response
	if locs := headingRe.FindAllStringIndex(response, -1); len(locs) > 0 {
		rest = response[locs[len(locs)-1][1]:]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}
	return []Snippet{{Index: 1, Code: rest}}
}

func extension(lang string) string {
	switch strings.ToLower(lang) {
	case "", "python", "py", "python3":
		return ".py"
	case "r":
		return ".R"
	case "js", "javascript":
		return ".js"
	case "sql":
		return ".sql"
	case "json", "vega", "vega-lite":
		return ".json"
	}
	return ".txt"
}

// Bundle is everything one run hands to a front end.
type Bundle struct {
	Prompt   string
	Response string
	Snippets []Snippet
}

// Export writes prompt.txt, response.md and one file per snippet into dir,
// creating it if needed. It returns the written paths in order.
func Export(dir string, b Bundle) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}
	files := []struct {
		name string
		data string
	}{
		{"prompt.txt", b.Prompt},
		{"response.md", b.Response},
	}
	for _, s := range b.Snippets {
		files = append(files, struct {
			name string
			data string
		}{s.Filename(), s.Code + "\n"})
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(dir, f.name)
		if err := utils.SafeWriteFile(p, []byte(f.data)); err != nil {
			return written, fmt.Errorf("export %s: %w", f.name, err)
		}
		written = append(written, p)
	}
	return written, nil
}
