package shorten

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ShortNameLen is the name length savings estimates assume.
const ShortNameLen = 3

var (
	reKeyframeName = regexp.MustCompile(`@keyframes\s+([\w-]+)`)
	reVarName      = regexp.MustCompile(`--([a-z][\w-]*)`)
)

type KeyframeStat struct {
	Name  string
	Count int
	// Savings estimates the characters saved by renaming to ShortNameLen.
	Savings int
}

type PatternStat struct {
	Pattern string
	Count   int
}

type VariableStat struct {
	Name  string
	Count int
}

// Analysis lists where a stylesheet spends its characters.
type Analysis struct {
	Keyframes []KeyframeStat
	// Patterns holds only patterns seen more than once.
	Patterns []PatternStat
	// Variables is sorted by len(Name)*Count, largest first.
	Variables []VariableStat
	Size      int
	Budget    int
}

// Analyze inspects css. patterns are counted as literal substrings.
func Analyze(css string, patterns []string, budget int) Analysis {
	a := Analysis{Size: chars(css), Budget: budget}

	seen := make(map[string]bool)
	for _, m := range reKeyframeName.FindAllStringSubmatch(css, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		n := strings.Count(css, name)
		saving := (len(name) - ShortNameLen) * n
		if saving < 0 {
			saving = 0
		}
		a.Keyframes = append(a.Keyframes, KeyframeStat{Name: name, Count: n, Savings: saving})
	}

	for _, p := range patterns {
		if p == "" {
			continue
		}
		if n := strings.Count(css, p); n > 1 {
			a.Patterns = append(a.Patterns, PatternStat{Pattern: p, Count: n})
		}
	}

	counts := make(map[string]int)
	for _, m := range reVarName.FindAllStringSubmatch(css, -1) {
		counts[m[1]]++
	}
	for name, n := range counts {
		a.Variables = append(a.Variables, VariableStat{Name: name, Count: n})
	}
	sort.Slice(a.Variables, func(i, j int) bool {
		wi := len(a.Variables[i].Name) * a.Variables[i].Count
		wj := len(a.Variables[j].Name) * a.Variables[j].Count
		if wi != wj {
			return wi > wj
		}
		return a.Variables[i].Name < a.Variables[j].Name
	})
	return a
}

func (a Analysis) String() string {
	var b strings.Builder
	b.WriteString("=== @keyframes names ===\n")
	for _, k := range a.Keyframes {
		fmt.Fprintf(&b, "  %s (%dch, %dx, save ~%d if %dch)\n", k.Name, len(k.Name), k.Count, k.Savings, ShortNameLen)
	}
	b.WriteString("\n=== Repeated long patterns ===\n")
	for _, p := range a.Patterns {
		fmt.Fprintf(&b, "  %q (%dch x %d = %d)\n", p.Pattern, len(p.Pattern), p.Count, len(p.Pattern)*p.Count)
	}
	b.WriteString("\n=== CSS variables ===\n")
	for _, v := range a.Variables {
		fmt.Fprintf(&b, "  --%s (%dch, %dx)\n", v.Name, len(v.Name), v.Count)
	}
	b.WriteString("\n=== Total file size ===\n")
	fmt.Fprintf(&b, "  %d chars\n", a.Size)
	fmt.Fprintf(&b, "  Budget remaining: %d\n", a.Budget-a.Size)
	return b.String()
}
