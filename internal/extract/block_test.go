package extract

import (
	"regexp"
	"strings"
	"testing"
)

const photosDoc = `<div class="card"><div class="card-header">Title: Photos</div><div class="card-body">X</div></div>`

func TestFindCard_SingleContainer(t *testing.T) {
	got, ok := FindCard(photosDoc, "Photos")
	if !ok {
		t.Fatalf("expected card to be found")
	}
	if got != photosDoc {
		t.Fatalf("got %q, want whole document", got)
	}
}

func TestFindCard_NoMatchingHeading(t *testing.T) {
	if got, ok := FindCard(photosDoc, "Videos"); ok {
		t.Fatalf("expected not found, got %q", got)
	}
}

func TestFindCard_PrefixClassRejected(t *testing.T) {
	wide := `<div class="card-wide"><div class="card-header">Photos</div><div class="card-body">wide</div></div>`
	card := `<div class="card"><div class="card-header">Photos</div><div class="card-body">narrow</div></div>`
	doc := "<main>" + wide + card + "</main>"

	got, ok := FindCard(doc, "photos")
	if !ok {
		t.Fatalf("expected the class=\"card\" block to be found")
	}
	if got != card {
		t.Fatalf("got %q, want %q", got, card)
	}
}

func TestFindCard_NestedContainersBalanced(t *testing.T) {
	for n := 0; n <= 5; n++ {
		var inner strings.Builder
		for i := 0; i < n; i++ {
			inner.WriteString(`<div class="card"><div class="card-body">`)
		}
		inner.WriteString("leaf")
		for i := 0; i < n; i++ {
			inner.WriteString(`</div></div>`)
		}
		outer := `<div class="card"><div class="card-header hearted"><span>Groups</span></div><div class="card-body">` +
			inner.String() + `</div></div>`
		doc := `<section>` + outer + `<div class="card">after</div></section>`

		got, ok := FindCard(doc, "Groups")
		if !ok {
			t.Fatalf("n=%d: expected card", n)
		}
		if got != outer {
			t.Fatalf("n=%d: got %q, want %q", n, got, outer)
		}
		if opens, closes := strings.Count(got, "<div"), strings.Count(got, "</div>"); opens != closes {
			t.Fatalf("n=%d: unbalanced span: %d opens, %d closes", n, opens, closes)
		}
	}
}

func TestFindCard_HeadingTextIgnoresMarkupAndPlaceholders(t *testing.T) {
	doc := `<div class="card"><div class="card-header"><span>Friend<!-- --> Comments</span> (<!-- -->12<!-- -->)</div><p>hi</p></div>`
	got, ok := FindCard(doc, "Friend Comments")
	if !ok || got != doc {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestFindCard_SkipsUnbalancedCandidate(t *testing.T) {
	// The first matching card never closes; the second is well formed and
	// sits after it in document order.
	good := `<div class="card"><div class="card-header">Lore</div><div class="card-body">story</div></div>`
	doc := `<div class="card"><div class="card-header">Lore</div><div class="card-body">` + good
	got, ok := FindCard(doc, "Lore")
	if !ok {
		t.Fatalf("expected the balanced card to be found")
	}
	if got != good {
		t.Fatalf("got %q, want %q", got, good)
	}
}

func TestFindCard_FirstMatchWins(t *testing.T) {
	first := `<div class="card"><div class="card-header">Badges</div>one</div>`
	second := `<div class="card"><div class="card-header">Badges</div>two</div>`
	got, ok := FindCard(first+second, "badges")
	if !ok || got != first {
		t.Fatalf("got %q ok=%v, want first card", got, ok)
	}
}

func TestFindCard_OuterHeadingBeatsInnerCard(t *testing.T) {
	inner := `<div class="card"><div class="card-header">Links inner</div>in</div>`
	outer := `<div class="card"><div class="card-header">Links</div>` + inner + `</div>`
	got, ok := FindCard(outer, "Links")
	if !ok || got != outer {
		t.Fatalf("got %q ok=%v, want outer card", got, ok)
	}
}

func TestFindCard_HeadingOutsideAnyContainer(t *testing.T) {
	doc := `<div class="card-header">Details</div><div class="card"><div class="card-body">x</div></div>`
	if got, ok := FindCard(doc, "Details"); ok {
		t.Fatalf("expected not found, got %q", got)
	}
}

func TestFindCard_VoidHeadingSkipped(t *testing.T) {
	photos := `<div class="card"><div class="card-header">Photos</div>body</div>`
	tests := []struct {
		name string
		doc  string
	}{
		{"img", `<div class="card"><img class="card-header" src="x.png"><p>deco</p></div>` + photos},
		{"self closing", `<div class="card"><span class="card-header"/><p>deco</p></div>` + photos},
		{"br", `<div class="card"><br class="card-header"><p>Photos</p></div>` + photos},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindCard(tt.doc, "Photos")
			if !ok || got != photos {
				t.Fatalf("got %q ok=%v, want %q", got, ok, photos)
			}
		})
	}
}

func TestFindCard_Idempotent(t *testing.T) {
	doc := "<body>" + photosDoc + photosDoc + "</body>"
	a, okA := FindCard(doc, "Photos")
	b, okB := FindCard(doc, "Photos")
	if a != b || okA != okB {
		t.Fatalf("results differ between runs: %q/%v vs %q/%v", a, okA, b, okB)
	}
}

func TestFindBlock_CustomMarkersAndRegexp(t *testing.T) {
	doc := `<ul><li class="panel x"><h3 class="title">Top 8 Friends</h3><ul><li class="panel">n</li></ul></li></ul>`
	m := Markers{Tag: "li", Container: "panel", Heading: "title"}
	span, ok := FindBlock(doc, m, regexp.MustCompile(`(?i)^top\s+\d+`))
	if !ok {
		t.Fatalf("expected block")
	}
	want := `<li class="panel x"><h3 class="title">Top 8 Friends</h3><ul><li class="panel">n</li></ul></li>`
	if got := span.Text(doc); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFindBlock_NilPattern(t *testing.T) {
	if _, ok := FindBlock(photosDoc, CardMarkers, nil); ok {
		t.Fatalf("nil pattern must not match")
	}
}

func TestPattern_InvalidRegexpFallsBackToPhrase(t *testing.T) {
	m := Pattern("Who I(d")
	if !m.MatchString("who i(d like to meet") {
		t.Fatalf("expected literal phrase match")
	}
}

func TestPhrase_CaseFolding(t *testing.T) {
	if !Phrase("top 8").MatchString("My TOP 8") {
		t.Fatalf("expected case-insensitive match")
	}
}

func TestBlockFinder_Section(t *testing.T) {
	var f Finder = NewCardFinder()
	got, ok := f.Section(photosDoc, "title: photos")
	if !ok || got != photosDoc {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	var zero BlockFinder
	if _, ok := zero.Section(photosDoc, "Photos"); !ok {
		t.Fatalf("zero BlockFinder should default to card markers")
	}
}
