package render

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/hyperifyio/profilekit/internal/profile"
)

//go:embed fragments.tmpl
var fragmentSource string

// SlotsPerDay is the number of cells drawn for a day with no captured row.
const SlotsPerDay = 24

var fragments = template.Must(template.New("fragments").Funcs(template.FuncMap{
	"slotVar": func(v int) string {
		if v != 0 {
			return "--vs-blue"
		}
		return "--vs-bg-muted"
	},
}).Parse(fragmentSource))

func execute(name string, data any) string {
	var b strings.Builder
	// fragments are parsed at init and only fed known types, so a failure
	// here is a programming error
	if err := fragments.ExecuteTemplate(&b, name, data); err != nil {
		panic("render: " + name + ": " + err.Error())
	}
	return b.String()
}

// FriendsGrid renders the Top 8 grid. An empty list still yields the grid
// container so the card keeps its layout.
func FriendsGrid(friends []profile.Friend) string {
	return execute("friends", friends)
}

func Albums(albums []profile.Album) string {
	return execute("albums", albums)
}

func Groups(groups []profile.Group) string {
	return execute("groups", groups)
}

// EditTopGroups is the host-only link shown under the groups grid.
func EditTopGroups() string {
	return execute("editTopGroups", nil)
}

type collabRow struct {
	Day   string
	Slots []int
}

// CollabGrid renders one row per day. Days beyond the captured grid are drawn
// as free for the whole day.
func CollabGrid(grid [][]int) string {
	hours := make([]string, SlotsPerDay)
	for i := range hours {
		switch i {
		case 0:
			hours[i] = "12a"
		case 6:
			hours[i] = "6a"
		case 12:
			hours[i] = "12p"
		case 18:
			hours[i] = "6p"
		}
	}
	rows := make([]collabRow, len(profile.Days))
	for d, day := range profile.Days {
		slots := make([]int, SlotsPerDay)
		if d < len(grid) {
			slots = grid[d]
		}
		rows[d] = collabRow{Day: day, Slots: slots}
	}
	return execute("collab", struct {
		Hours []string
		Rows  []collabRow
	}{hours, rows})
}

func CollabTags(tags []string) string {
	return execute("tags", tags)
}

// Badges renders each badge around its raw SVG.
func Badges(badges []profile.Badge) string {
	return execute("badges", badges)
}

func SocialLinks(links []profile.SocialLink) string {
	return execute("links", links)
}

// Comments renders the comment list. The actions block links to the
// profile owner's comment page.
func Comments(comments []profile.Comment, username string) string {
	return execute("comments", struct {
		Comments []profile.Comment
		Username string
	}{comments, username})
}
