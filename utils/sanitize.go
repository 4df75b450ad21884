package utils

import (
	"html"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// DisplayName turns an untrusted client filename into a plain base name safe
// to echo back in transcripts and listings.
func DisplayName(name string) string {
	// StrictPolicy escapes what it keeps; unescape so "&" stays "&" in JSON.
	name = html.UnescapeString(strict.Sanitize(name))
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
