package dsl

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	markerLineRe   = regexp.MustCompile(`(?im)^[ \t]*\[(?:#|/)\s*[A-Z0-9_]+\s*\][ \t]*\r?\n?`)
	markerInlineRe = regexp.MustCompile(`(?i)\[(?:#|/)\s*[A-Z0-9_]+\s*\]`)
)

// ExtractTag returns the interior of the [#TAG]...[/TAG] section in text.
// Matching is case-insensitive and non-greedy across the whole text. One
// leading newline is stripped from the interior; nothing else is trimmed.
func ExtractTag(text, tag, file string) (string, error) {
	up := regexp.QuoteMeta(strings.ToUpper(tag))
	re, err := regexp.Compile(`(?is)\[#\s*` + up + `\s*\](.*?)\[/\s*` + up + `\s*\]`)
	if err != nil {
		return "", &Error{Kind: KindTagNotFound, Msg: fmt.Sprintf("bad tag name %q", tag), File: file}
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", &Error{
			Kind: KindTagNotFound,
			Msg:  fmt.Sprintf("tag section [#%s] not found", strings.ToUpper(tag)),
			File: file,
		}
	}
	interior := m[1]
	interior = strings.TrimPrefix(interior, "\n")
	return interior, nil
}

// StripTagMarkers removes section markers from text: lines consisting solely
// of an opening or closing marker are dropped whole, and any marker tokens
// left inline are excised. All other content is untouched.
func StripTagMarkers(text string) string {
	text = markerLineRe.ReplaceAllString(text, "")
	return markerInlineRe.ReplaceAllString(text, "")
}
