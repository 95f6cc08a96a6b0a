// Package template renders the lightweight bracket templates used for model
// prompts and judge instruction documents: {var} placeholders plus
// {path:relative.md} include directives resolved against a base directory.
package template

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	varRe  = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)
	pathRe = regexp.MustCompile(`\{path:([^}]+)\}`)
)

// maxIncludeDepth guards against include cycles.
const maxIncludeDepth = 8

// Render resolves {path:...} includes recursively, then substitutes {var}
// placeholders. Missing variables are left as-is so validation can surface
// gaps; unreadable includes are likewise left in place.
func Render(text string, vars map[string]string, baseDir string) string {
	out := resolveIncludes(text, baseDir, 0)
	return varRe.ReplaceAllStringFunc(out, func(m string) string {
		key := varRe.FindStringSubmatch(m)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
}

func resolveIncludes(s, baseDir string, depth int) string {
	if depth > maxIncludeDepth {
		return s
	}
	return pathRe.ReplaceAllStringFunc(s, func(m string) string {
		rel := strings.TrimSpace(pathRe.FindStringSubmatch(m)[1])
		p := rel
		if !filepath.IsAbs(p) && baseDir != "" {
			p = filepath.Join(baseDir, p)
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return m
		}
		return resolveIncludes(string(content), baseDir, depth+1)
	})
}
