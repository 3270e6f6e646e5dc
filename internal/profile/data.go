// Package profile pulls structured fields out of a captured profile page.
package profile

// Data is everything the renderer needs from one captured page. Zero-length
// slices mean the section was absent or empty on the page.
type Data struct {
	Theme        string `json:"theme" yaml:"theme"`
	DisplayName  string `json:"displayName" yaml:"displayName"`
	Username     string `json:"username" yaml:"username"`
	Tagline      string `json:"tagline" yaml:"tagline"`
	OshiMark     string `json:"oshiMark" yaml:"oshiMark"`
	Mood         string `json:"mood" yaml:"mood"`
	AvatarURL    string `json:"avatarUrl" yaml:"avatarUrl"`
	OnlineStatus string `json:"onlineStatus" yaml:"onlineStatus"`
	BoopCount    string `json:"boopCount" yaml:"boopCount"`
	// ViewerBoops is empty when the page was captured logged out.
	ViewerBoops     string `json:"viewerBoops,omitempty" yaml:"viewerBoops,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty" yaml:"backgroundImage,omitempty"`

	Friends []Friend `json:"friends" yaml:"friends"`
	Albums  []Album  `json:"albums" yaml:"albums"`
	Groups  []Group  `json:"groups" yaml:"groups"`

	Collab Collab `json:"collab" yaml:"collab"`

	Generation    string `json:"generation" yaml:"generation"`
	GenTitle      string `json:"genTitle" yaml:"genTitle"`
	FriendsCount  string `json:"friendsCount" yaml:"friendsCount"`
	CommentsCount string `json:"commentsCount" yaml:"commentsCount"`
	Affiliation   string `json:"affiliation" yaml:"affiliation"`

	Badges      []Badge      `json:"badges" yaml:"badges"`
	SocialLinks []SocialLink `json:"socialLinks" yaml:"socialLinks"`
	ModelType   string       `json:"modelType" yaml:"modelType"`
	Lore        string       `json:"lore" yaml:"lore"`
	AboutMe     string       `json:"aboutMe" yaml:"aboutMe"`
	WhoToMeet   string       `json:"whoToMeet" yaml:"whoToMeet"`
	// Interests is keyed by the names in InterestCategories.
	Interests map[string]string `json:"interests" yaml:"interests"`
	SongURL   string            `json:"songUrl" yaml:"songUrl"`

	Comments     []Comment `json:"comments" yaml:"comments"`
	CommentTotal string    `json:"commentTotal" yaml:"commentTotal"`
}

type Friend struct {
	Href      string `json:"href" yaml:"href"`
	AvatarURL string `json:"avatarUrl" yaml:"avatarUrl"`
	Name      string `json:"name" yaml:"name"`
	Alt       string `json:"alt" yaml:"alt"`
}

type Album struct {
	Href     string `json:"href" yaml:"href"`
	CoverURL string `json:"coverUrl" yaml:"coverUrl"`
	Title    string `json:"title" yaml:"title"`
	Count    string `json:"count" yaml:"count"`
}

type Group struct {
	Href     string `json:"href" yaml:"href"`
	CoverURL string `json:"coverUrl" yaml:"coverUrl"`
	Name     string `json:"name" yaml:"name"`
	Members  string `json:"members" yaml:"members"`
}

// Collab is the weekly availability card. Grid holds one row per day with
// 1 for a busy slot and 0 for a free one.
type Collab struct {
	Grid        [][]int  `json:"grid" yaml:"grid"`
	Tags        []string `json:"tags" yaml:"tags"`
	Description string   `json:"description" yaml:"description"`
}

type Badge struct {
	Title string `json:"title" yaml:"title"`
	// SVG is raw markup and is spliced into the page unescaped.
	SVG string `json:"svg" yaml:"svg"`
}

type SocialLink struct {
	Href     string `json:"href" yaml:"href"`
	Platform string `json:"platform" yaml:"platform"`
	Name     string `json:"name" yaml:"name"`
}

type Comment struct {
	AuthorHref string `json:"authorHref" yaml:"authorHref"`
	AuthorName string `json:"authorName" yaml:"authorName"`
	AvatarURL  string `json:"avatarUrl" yaml:"avatarUrl"`
	Time       string `json:"time" yaml:"time"`
	Body       string `json:"body" yaml:"body"`
	Reply      *Reply `json:"reply,omitempty" yaml:"reply,omitempty"`
}

type Reply struct {
	AuthorHref string `json:"authorHref" yaml:"authorHref"`
	AuthorName string `json:"authorName" yaml:"authorName"`
	AvatarURL  string `json:"avatarUrl" yaml:"avatarUrl"`
	Time       string `json:"time" yaml:"time"`
	Text       string `json:"text" yaml:"text"`
}

// Days labels the collab grid rows, Monday first.
var Days = []string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// InterestCategories lists the interest headings in page order.
var InterestCategories = []string{"Music", "Movies", "Shows", "Books", "Games", "Heroes"}

// ImageURLs returns every distinct image URL referenced by d, in first-seen
// order: avatar, friends, albums, groups, comments and replies, background.
func (d Data) ImageURLs() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	add(d.AvatarURL)
	for _, f := range d.Friends {
		add(f.AvatarURL)
	}
	for _, a := range d.Albums {
		add(a.CoverURL)
	}
	for _, g := range d.Groups {
		add(g.CoverURL)
	}
	for _, c := range d.Comments {
		add(c.AvatarURL)
		if c.Reply != nil {
			add(c.Reply.AvatarURL)
		}
	}
	add(d.BackgroundImage)
	return out
}
