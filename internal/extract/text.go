package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var emptyComment = regexp.MustCompile(`<!--\s*-->`)

// VisibleText returns the text content of an HTML fragment with tags and
// comments removed and whitespace runs collapsed to single spaces. Script and
// style bodies are skipped.
func VisibleText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpaces(strings.TrimSpace(b.String()))
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawText(string(name)) {
				skip++
			}
			// tags separate words the same way the browser lays out blocks
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawText(string(name)) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// StripPlaceholders removes the empty comment markers React leaves between
// adjacent text nodes, e.g. "Gen <!-- -->3".
func StripPlaceholders(s string) string {
	return strings.TrimSpace(emptyComment.ReplaceAllString(s, ""))
}

func isRawText(name string) bool {
	return name == "script" || name == "style"
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
