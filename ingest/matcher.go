package ingest

import (
	"path/filepath"
	"strings"

	"github.com/viant/afs/url"
)

var defaultExclusions = []string{
	"node_modules/",
	".git/",
	".idea/",
	".vscode/",
	"vendor/",
	"__pycache__/",
	".DS_Store",
	"*.min.js",
	"*.map",
	"*.lock",
	"*.log",
	"*.exe",
	"*.dll",
}

// Matcher decides which listed objects are ingested.
type Matcher struct {
	Inclusions  []string
	Exclusions  []string
	MaxFileSize int64
}

// NewMatcher creates a Matcher; default exclusions are added to exclusions.
func NewMatcher(inclusions, exclusions []string, maxFileSize int64) *Matcher {
	return &Matcher{
		Inclusions:  inclusions,
		Exclusions:  append(append([]string{}, defaultExclusions...), exclusions...),
		MaxFileSize: maxFileSize,
	}
}

// IsExcluded reports whether location should be skipped.
func (m *Matcher) IsExcluded(location string, size int64, isDir bool) bool {
	if !isDir && m.MaxFileSize > 0 && size > m.MaxFileSize {
		return true
	}
	path := filepath.ToSlash(url.Path(location))
	if isDir {
		path = strings.TrimRight(path, "/") + "/"
	}
	for _, pattern := range m.Exclusions {
		if matches(path, pattern) {
			return true
		}
	}
	if isDir || len(m.Inclusions) == 0 {
		return false
	}
	for _, pattern := range m.Inclusions {
		if matches(path, pattern) {
			return false
		}
	}
	return true
}

func matches(path, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return false
	}
	if strings.HasSuffix(pattern, "/") {
		return strings.Contains(path, "/"+strings.TrimPrefix(pattern, "/"))
	}
	pattern = strings.TrimPrefix(pattern, "**/")
	base := filepath.Base(path)
	if ok, _ := filepath.Match(pattern, base); ok {
		return true
	}
	if ok, _ := filepath.Match(strings.TrimPrefix(pattern, "/"), strings.TrimPrefix(path, "/")); ok {
		return true
	}
	return false
}
