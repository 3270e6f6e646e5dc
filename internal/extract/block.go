package extract

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
)

// Markers names the elements the block finder cares about. Container and
// Heading are class tokens; they are compared as whole tokens so "card" never
// matches an element whose class is "card-wide" or "card-header".
type Markers struct {
	// Tag is the element name whose nesting is counted, e.g. "div".
	Tag string
	// Container is the class token of the block to return.
	Container string
	// Heading is the class token of the caption inside the block.
	Heading string
}

// CardMarkers describes the profile page layout: <div class="card"> blocks
// captioned by an element with class "card-header".
var CardMarkers = Markers{Tag: "div", Container: "card", Heading: "card-header"}

// Matcher tests a heading's visible text. *regexp.Regexp satisfies it.
type Matcher interface {
	MatchString(s string) bool
}

// Phrase matches when the text contains the phrase, ignoring case.
type Phrase string

func (p Phrase) MatchString(s string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(string(p)))
}

// Pattern compiles expr as a case-insensitive regular expression. Expressions
// that do not compile are matched as a literal phrase instead.
func Pattern(expr string) Matcher {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Phrase(expr)
	}
	return re
}

// Span is a half-open byte range [Start, End) into a document.
type Span struct {
	Start int
	End   int
}

// Text returns the spanned text of doc.
func (s Span) Text(doc string) string {
	return doc[s.Start:s.End]
}

type openElem struct {
	start     int
	container bool
	// candidate indexes into the candidates slice, -1 when untargeted
	candidate int
}

type candidate struct {
	span     Span
	resolved bool
}

type heading struct {
	tag   string
	depth int
	text  strings.Builder
}

// FindBlock returns the span of the container enclosing the first heading
// whose visible text satisfies pattern and whose container closes. The bool
// is false when no such block exists; absence is not an error.
//
// The scan is a single pass over tokenizer offsets. Open elements of m.Tag
// sit on a stack; a matching heading marks the nearest enclosing container on
// that stack, and the mark resolves when the container's end tag pops it.
func FindBlock(doc string, m Markers, pattern Matcher) (Span, bool) {
	if pattern == nil || m.Heading == "" || m.Container == "" {
		return Span{}, false
	}
	tag := strings.ToLower(m.Tag)
	if tag == "" {
		tag = "div"
	}

	z := html.NewTokenizer(strings.NewReader(doc))
	var (
		off   int
		stack []openElem
		cands []candidate
		cur   *heading
	)
	for {
		tt := z.Next()
		start := off
		off += len(z.Raw())
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return Span{}, false
			}
			return firstResolved(cands)

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			elem := string(name)
			var classes string
			if hasAttr {
				classes = classAttr(z)
			}
			if tt == html.SelfClosingTagToken || voidElements[elem] {
				// No end tag follows, so a heading here has no text.
				if cur == nil && hasClass(classes, m.Heading) && pattern.MatchString("") {
					cands = markEnclosing(stack, cands)
				}
				continue
			}
			if elem == tag {
				stack = append(stack, openElem{
					start:     start,
					container: hasClass(classes, m.Container),
					candidate: -1,
				})
			}
			switch {
			case cur != nil:
				if elem == cur.tag {
					cur.depth++
				}
			case hasClass(classes, m.Heading):
				cur = &heading{tag: elem, depth: 1}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			elem := string(name)
			if elem == tag && len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.candidate >= 0 {
					cands[top.candidate].span = Span{Start: top.start, End: off}
					cands[top.candidate].resolved = true
					if cands[0].resolved {
						return cands[0].span, true
					}
				}
			}
			if cur != nil && elem == cur.tag {
				cur.depth--
				if cur.depth == 0 {
					text := collapseSpaces(strings.TrimSpace(cur.text.String()))
					cur = nil
					if pattern.MatchString(text) {
						cands = markEnclosing(stack, cands)
					}
				}
			}

		case html.TextToken:
			if cur != nil {
				cur.text.Write(z.Text())
			}
		}
	}
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// markEnclosing targets the innermost open container. A container already
// targeted by an earlier heading keeps that heading.
func markEnclosing(stack []openElem, cands []candidate) []candidate {
	for i := len(stack) - 1; i >= 0; i-- {
		if !stack[i].container {
			continue
		}
		if stack[i].candidate >= 0 {
			return cands
		}
		stack[i].candidate = len(cands)
		return append(cands, candidate{})
	}
	return cands
}

func firstResolved(cands []candidate) (Span, bool) {
	for _, c := range cands {
		if c.resolved {
			return c.span, true
		}
	}
	return Span{}, false
}

func classAttr(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "class" {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}

func hasClass(classes, token string) bool {
	if classes == "" || token == "" {
		return false
	}
	for _, c := range strings.Fields(classes) {
		if c == token {
			return true
		}
	}
	return false
}

// FindCard returns the markup of the profile card whose header text matches
// heading, compared case-insensitively.
func FindCard(doc, heading string) (string, bool) {
	span, ok := FindBlock(doc, CardMarkers, Pattern(heading))
	if !ok {
		return "", false
	}
	return span.Text(doc), true
}
