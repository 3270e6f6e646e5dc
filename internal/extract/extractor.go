package extract

// Finder locates a captioned section of a page. Implementations must be
// deterministic and side-effect free; a missing section is reported with
// ok=false, never as an error.
type Finder interface {
	// Section returns the markup of the block whose caption matches heading.
	Section(doc, heading string) (markup string, ok bool)
}

// BlockFinder finds sections with FindBlock using fixed markers.
type BlockFinder struct {
	Markers Markers
}

// NewCardFinder returns a Finder for the profile page card layout.
func NewCardFinder() BlockFinder {
	return BlockFinder{Markers: CardMarkers}
}

func (f BlockFinder) Section(doc, heading string) (string, bool) {
	m := f.Markers
	if m == (Markers{}) {
		m = CardMarkers
	}
	span, ok := FindBlock(doc, m, Pattern(heading))
	if !ok {
		return "", false
	}
	return span.Text(doc), true
}
