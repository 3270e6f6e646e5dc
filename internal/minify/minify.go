// Package minify shrinks the hand-written custom.css and custom.html of a
// profile so they fit the site's per-field character budget.
package minify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// DefaultBudget is the character limit the site enforces on each field.
const DefaultBudget = 50000

var (
	reCSSComment  = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reCSSPunct    = regexp.MustCompile(`\s*([{}:;,>~+])\s*`)
	reBetweenTags = regexp.MustCompile(`>\s+<`)
)

// CSS removes comments and every whitespace character the cascade does not
// need.
func CSS(css string) string {
	css = reCSSComment.ReplaceAllString(css, "")
	css = reSpaces.ReplaceAllString(css, " ")
	css = reCSSPunct.ReplaceAllString(css, "$1")
	css = strings.ReplaceAll(css, ";}", "}")
	return strings.TrimSpace(css)
}

// HTML removes comments other than conditional comments and collapses
// whitespace. Whitespace between adjacent tags is dropped entirely.
func HTML(html string) string {
	html = stripComments(html)
	html = reBetweenTags.ReplaceAllString(html, "><")
	html = reSpaces.ReplaceAllString(html, " ")
	return strings.TrimSpace(html)
}

// stripComments drops <!-- ... --> except those opening with "[if". An
// unterminated comment is left as is.
func stripComments(s string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, "<!--")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.Index(s[i+4:], "-->")
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += i + 4 + 3
		if strings.HasPrefix(s[i+4:], "[if") {
			b.WriteString(s[:end])
		} else {
			b.WriteString(s[:i])
		}
		s = s[end:]
	}
}

// Chars counts characters the way the site's field limit does.
func Chars(s string) int {
	return utf8.RuneCountInString(s)
}

// Report summarizes one minified file.
type Report struct {
	Name      string
	Source    int
	Minified  int
	Saved     int
	Remaining int
}

func (r Report) String() string {
	return fmt.Sprintf("=== %s ===\n  Source:    %d chars\n  Minified:  %d chars (saved %d)\n  Budget:    %d remaining",
		r.Name, r.Source, r.Minified, r.Saved, r.Remaining)
}

// Over reports whether the minified output exceeds the budget.
func (r Report) Over() bool { return r.Remaining < 0 }

// Job pairs an input file with its minified output.
type Job struct {
	Name string
	Src  string
	Dst  string
	Fn   func(string) string
}

// ProfileJobs returns the stylesheet and custom HTML jobs. Each output sits
// beside its input with ".min" before the extension.
func ProfileJobs(cssPath, htmlPath string) []Job {
	return []Job{
		{Name: "CSS", Src: cssPath, Dst: minName(cssPath), Fn: CSS},
		{Name: "HTML", Src: htmlPath, Dst: minName(htmlPath), Fn: HTML},
	}
}

func minName(p string) string {
	ext := filepath.Ext(p)
	return strings.TrimSuffix(p, ext) + ".min" + ext
}

// Run executes jobs in order. Missing inputs are skipped silently and blank
// ones are skipped with a log line; neither is an error. The returned slice
// is empty when there was nothing to do.
func Run(jobs []Job, budget int) ([]Report, error) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	var reports []Report
	for _, j := range jobs {
		raw, err := os.ReadFile(j.Src)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return reports, fmt.Errorf("read %s: %w", j.Src, err)
		}
		if strings.TrimSpace(string(raw)) == "" {
			log.Info().Str("file", j.Src).Msgf("%s empty, skipped", j.Name)
			continue
		}
		minified := j.Fn(string(raw))
		if err := os.WriteFile(j.Dst, []byte(minified), 0o644); err != nil {
			return reports, fmt.Errorf("write %s: %w", j.Dst, err)
		}
		src, out := Chars(string(raw)), Chars(minified)
		reports = append(reports, Report{
			Name:      j.Name,
			Source:    src,
			Minified:  out,
			Saved:     src - out,
			Remaining: budget - out,
		})
	}
	return reports, nil
}
