package shorten

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// longestFirst orders mappings so that no key is replaced before a longer
// key it prefixes.
func longestFirst(ms []Mapping) []Mapping {
	out := append([]Mapping(nil), ms...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].From) > len(out[j].From) })
	return out
}

// RenameAnimations replaces every animation name in css.
func (p Plan) RenameAnimations(css string) string {
	for _, m := range longestFirst(p.Animations) {
		css = strings.ReplaceAll(css, m.From, m.To)
	}
	return css
}

// RenameVariables replaces every "--name" custom property in css.
func (p Plan) RenameVariables(css string) string {
	for _, m := range longestFirst(p.Variables) {
		css = strings.ReplaceAll(css, "--"+m.From, "--"+m.To)
	}
	return css
}

// RemoveKeyframes deletes every @keyframes block called name. The block end
// is found by counting braces, so nested percentage blocks are handled.
func RemoveKeyframes(css, name string) string {
	re := regexp.MustCompile(`@keyframes\s+` + regexp.QuoteMeta(name) + `\s*\{`)
	for {
		loc := re.FindStringIndex(css)
		if loc == nil {
			return css
		}
		depth := 1
		i := loc[1]
		for i < len(css) && depth > 0 {
			switch css[i] {
			case '{':
				depth++
			case '}':
				depth--
			}
			i++
		}
		css = css[:loc[0]] + css[i:]
	}
}

// InsertBeforeMedia places rules just before the first @media block, or at
// the end when there is none.
func InsertBeforeMedia(css, rules string) string {
	i := strings.Index(css, "@media")
	if i < 0 {
		return css + rules
	}
	return css[:i] + rules + css[i:]
}

// ShortenCSS applies the stylesheet half of the plan.
func (p Plan) ShortenCSS(css string) string {
	css = p.RenameAnimations(css)
	css = p.RenameVariables(css)
	for _, name := range p.RemoveKeyframes {
		css = RemoveKeyframes(css, name)
	}
	css = strings.Join(p.Properties, "") + css
	css = InsertBeforeMedia(css, strings.Join(p.Rules, ""))
	return css + strings.Join(p.Keyframes, "")
}

var reMarquee = regexp.MustCompile(`(?i)<marquee\b[^>]*>|</marquee\s*>`)
var reAttr = regexp.MustCompile(`(?i)\b(direction|style)\s*=\s*"([^"]*)"`)

// RewriteHTML applies the literal replacements and converts marquees whose
// direction has a driving property.
func (p Plan) RewriteHTML(html string) string {
	for _, m := range p.HTML {
		html = strings.ReplaceAll(html, m.From, m.To)
	}
	if len(p.Marquees) == 0 {
		return html
	}
	return p.convertMarquees(html)
}

// convertMarquees pairs each closing tag with its opener so unconverted
// marquees keep their own closing tags.
func (p Plan) convertMarquees(html string) string {
	var b strings.Builder
	var open []bool
	last := 0
	for _, loc := range reMarquee.FindAllStringIndex(html, -1) {
		tag := html[loc[0]:loc[1]]
		b.WriteString(html[last:loc[0]])
		last = loc[1]
		if strings.HasPrefix(tag, "</") {
			converted := false
			if n := len(open); n > 0 {
				converted = open[n-1]
				open = open[:n-1]
			}
			if converted {
				b.WriteString("</span></div>")
			} else {
				b.WriteString(tag)
			}
			continue
		}
		var dir, style string
		for _, a := range reAttr.FindAllStringSubmatch(tag, -1) {
			switch strings.ToLower(a[1]) {
			case "direction":
				dir = strings.ToLower(a[2])
			case "style":
				style = a[2]
			}
		}
		prop, ok := p.Marquees[dir]
		open = append(open, ok)
		if !ok {
			b.WriteString(tag)
			continue
		}
		fmt.Fprintf(&b, `<div style="%s"><span style="display:inline-block;white-space:nowrap;transform:translateX(var(--%s));">`, style, prop)
	}
	b.WriteString(html[last:])
	return b.String()
}

// Legend renders every mapping of the plan as markdown tables.
func (p Plan) Legend() string {
	var b strings.Builder
	b.WriteString("# Shortening Legend\n\n")
	b.WriteString("## Animation Names\n| Original | Short |\n|----------|-------|\n")
	for _, m := range p.Animations {
		fmt.Fprintf(&b, "| %s | %s |\n", m.From, m.To)
	}
	b.WriteString("\n## CSS Variables\n| Original | Short |\n|----------|-------|\n")
	for _, m := range p.Variables {
		fmt.Fprintf(&b, "| --%s | --%s |\n", m.From, m.To)
	}
	if len(p.LegendEntries) > 0 {
		b.WriteString("\n## @property Custom Properties\n| Property | Used By | Pattern |\n|----------|---------|----------|\n")
		for _, e := range p.LegendEntries {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", e.Property, e.UsedBy, e.Pattern)
		}
	}
	return b.String()
}

// Report gives the character accounting of one Apply.
type Report struct {
	OriginalCSS  int
	FinalCSS     int
	NameSavings  int
	Properties   int
	Keyframes    int
	Rules        int
	OriginalHTML int
	FinalHTML    int
	Budget       int
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== CSS ===\n")
	fmt.Fprintf(&b, "  Original:        %d chars\n", r.OriginalCSS)
	fmt.Fprintf(&b, "  After shorten:   (saved %d from names)\n", r.NameSavings)
	fmt.Fprintf(&b, "  @property decls: +%d chars\n", r.Properties)
	fmt.Fprintf(&b, "  New keyframes:   +%d chars\n", r.Keyframes)
	fmt.Fprintf(&b, "  Card-body anim:  +%d chars\n", r.Rules)
	fmt.Fprintf(&b, "  Final:           %d chars\n", r.FinalCSS)
	fmt.Fprintf(&b, "  Budget:          %d remaining\n\n", r.Budget-r.FinalCSS)
	fmt.Fprintf(&b, "=== HTML ===\n")
	fmt.Fprintf(&b, "  Original: %d chars\n", r.OriginalHTML)
	fmt.Fprintf(&b, "  New:      %d chars\n", r.FinalHTML)
	fmt.Fprintf(&b, "  Budget:   %d remaining\n", r.Budget-r.FinalHTML)
	return b.String()
}

// Result is the output of Apply.
type Result struct {
	CSS    string
	HTML   string
	Legend string
	Report Report
}

// Apply runs the whole plan over a stylesheet and its HTML.
func (p Plan) Apply(css, html string, budget int) Result {
	outCSS := p.ShortenCSS(css)
	outHTML := p.RewriteHTML(html)
	props := chars(strings.Join(p.Properties, ""))
	kf := chars(strings.Join(p.Keyframes, ""))
	rules := chars(strings.Join(p.Rules, ""))
	orig := chars(css)
	final := chars(outCSS)
	return Result{
		CSS:    outCSS,
		HTML:   outHTML,
		Legend: p.Legend(),
		Report: Report{
			OriginalCSS:  orig,
			FinalCSS:     final,
			NameSavings:  orig - final + props + kf + rules,
			Properties:   props,
			Keyframes:    kf,
			Rules:        rules,
			OriginalHTML: chars(html),
			FinalHTML:    chars(outHTML),
			Budget:       budget,
		},
	}
}

func chars(s string) int { return utf8.RuneCountInString(s) }
