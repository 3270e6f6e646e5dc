package profile

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/profilekit/internal/extract"
)

var (
	reBackgroundURL = regexp.MustCompile(`(?i)background(?:-image)?:\s*url\(\s*["']?([^"')]+)["']?\s*\)`)
	reBoldWeight    = regexp.MustCompile(`(?i)font-weight:\s*600`)
	reDigits        = regexp.MustCompile(`\d+`)
)

// parseFragment parses markup into a goquery document. The HTML parser never
// fails on well-formed strings in memory; a nil return only happens on a
// reader error, which strings.Reader cannot produce.
func parseFragment(markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	return doc
}

// cleanText collapses whitespace in the selection's text. Comment nodes are
// not text, so React's empty placeholders disappear on their own.
func cleanText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// richText returns the text of a rich-text editor region. Lexical text spans
// are preferred when the page was copied from a hydrated DOM; otherwise all
// visible text is used. A single leftover character is treated as noise.
func richText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var parts []string
	sel.Find(`[data-lexical-text="true"]`).Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	if len(parts) > 0 {
		return strings.TrimSpace(strings.Join(parts, " "))
	}
	inner, err := sel.Html()
	if err != nil {
		return ""
	}
	text := extract.VisibleText(inner)
	if len([]rune(text)) <= 1 {
		return ""
	}
	return text
}

// richTextOf parses markup and applies richText to the whole fragment.
func richTextOf(markup string) string {
	doc := parseFragment(markup)
	if doc == nil {
		return ""
	}
	return richText(doc.Find("body"))
}

// styleURL returns the first url(...) in a background declaration found on
// sel or any of its descendants.
func styleURL(sel *goquery.Selection) string {
	var found string
	sel.Filter("[style]").AddSelection(sel.Find("[style]")).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := reBackgroundURL.FindStringSubmatch(s.AttrOr("style", "")); m != nil {
			found = strings.TrimSpace(m[1])
			return false
		}
		return true
	})
	return found
}

// boldText returns the text of the first descendant styled font-weight:600.
func boldText(sel *goquery.Selection) string {
	var found string
	sel.Find("[style]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if reBoldWeight.MatchString(s.AttrOr("style", "")) {
			found = cleanText(s)
			return found == ""
		}
		return true
	})
	return found
}

// styled returns the descendants of sel whose style attribute matches re.
func styled(sel *goquery.Selection, re *regexp.Regexp) *goquery.Selection {
	return sel.Find("[style]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return re.MatchString(s.AttrOr("style", ""))
	})
}

// countBefore finds "<n> <noun>" in text and returns n, or "0".
func countBefore(text string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return "0"
}

// fragmentFrom returns the first element whose class attribute is exactly
// class, starting at or after byte offset from in doc. Elements carrying
// further class tokens, such as custom HTML widgets, are passed over. The
// fragment is reparsed from the element's open tag onward so that earlier
// siblings cannot be selected by mistake.
func fragmentFrom(doc string, from int, class string) *goquery.Selection {
	if from < 0 || from > len(doc) {
		return nil
	}
	re := regexp.MustCompile(`<[a-zA-Z][^>]*\sclass="` + regexp.QuoteMeta(class) + `"`)
	loc := re.FindStringIndex(doc[from:])
	if loc == nil {
		return nil
	}
	frag := parseFragment(doc[from+loc[0]:])
	if frag == nil {
		return nil
	}
	sel := frag.Find(`[class="` + class + `"]`).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel
}

func firstNumber(s string) string {
	return reDigits.FindString(s)
}
