package profile

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/profilekit/internal/extract"
)

// Defaults used when a field is absent from the captured page. They match the
// placeholders in the profile template so an absent field renders unchanged.
const (
	DefaultTheme        = "theme-dark"
	DefaultDisplayName  = "Username"
	DefaultUsername     = "username"
	DefaultTagline      = "Headline"
	DefaultOshiMark     = "X"
	DefaultMood         = "Mood"
	DefaultOnlineStatus = "Last online recently"
	DefaultAffiliation  = "Affiliation"
	DefaultModelType    = "3d"
)

var (
	reBoops       = regexp.MustCompile(`(?i)(\d+)\s*boop`)
	reViewerBoops = regexp.MustCompile(`(?i)booped\s+(\d+)x`)
	rePhotoCount  = regexp.MustCompile(`(?i)(\d+)\s*photos?`)
	reMemberCount = regexp.MustCompile(`(?i)(\d+)\s*members?`)
	reGen         = regexp.MustCompile(`(?i)Gen\s*(\d+)`)
	reCellVar     = regexp.MustCompile(`(?i)background:\s*var\(([^)]+)\)`)
	reTagChip     = regexp.MustCompile(`(?i)border-radius:\s*3px`)
	reAudioExt    = regexp.MustCompile(`(?i)\.(mp3|wav|ogg|m4a|webm)`)
	reViewAll     = regexp.MustCompile(`(?i)View All[^(]*\(\s*(\d+)`)
	reReplyBox    = regexp.MustCompile(`(?i)margin-top:\s*8px;\s*margin-left:\s*10px`)
	reSmallText   = regexp.MustCompile(`(?i)font-size:\s*9px`)
	reAboutMe     = regexp.MustCompile(`About Me`)
	reWhoToMeet   = regexp.MustCompile(`Who I[^<]*Like to Meet`)
)

// Extractor turns a captured page into Data. The zero value uses the card
// layout of the profile page.
type Extractor struct {
	Finder extract.Finder
}

// Extract is shorthand for Extractor{}.Extract(source).
func Extract(source string) Data {
	return Extractor{}.Extract(source)
}

// Extract never fails: every missing section leaves its defaults in place.
func (e Extractor) Extract(source string) Data {
	finder := e.Finder
	if finder == nil {
		finder = extract.NewCardFinder()
	}
	d := Data{
		Theme:         DefaultTheme,
		DisplayName:   DefaultDisplayName,
		Username:      DefaultUsername,
		Tagline:       DefaultTagline,
		OshiMark:      DefaultOshiMark,
		Mood:          DefaultMood,
		OnlineStatus:  DefaultOnlineStatus,
		BoopCount:     "0",
		FriendsCount:  "0",
		CommentsCount: "0",
		Affiliation:   DefaultAffiliation,
		ModelType:     DefaultModelType,
		CommentTotal:  "0",
		Interests:     map[string]string{},
	}
	page := parseFragment(source)
	if page == nil {
		return d
	}
	extractHeader(page.Selection, &d)

	card := func(heading string) *goquery.Selection {
		markup, ok := finder.Section(source, heading)
		if !ok {
			log.Debug().Str("card", heading).Msg("card not found")
			return nil
		}
		doc := parseFragment(markup)
		if doc == nil {
			return nil
		}
		return doc.Selection
	}
	cardMarkup := func(heading string) string {
		markup, _ := finder.Section(source, heading)
		return markup
	}

	if c := card("Top 8"); c != nil {
		d.Friends = extractFriends(c)
	}
	if c := card("Photos"); c != nil {
		d.Albums = extractAlbums(c)
	}
	if c := card("Groups"); c != nil {
		d.Groups = extractGroups(c)
	}
	if m := cardMarkup("Collab Schedule"); m != "" {
		d.Collab = extractCollab(m)
	}
	if c := card("Details"); c != nil {
		extractDetails(c, &d)
	}
	if c := card("Badges"); c != nil {
		d.Badges = extractBadges(c)
	}
	if c := card("Links"); c != nil {
		d.SocialLinks = extractLinks(c)
	}
	if c := card("Avatar Info"); c != nil {
		if v := rowValue(c, "Model"); v != "" {
			d.ModelType = v
		}
	}
	if c := card("Lore"); c != nil {
		d.Lore = richText(c.Find(".card-body").First())
	}
	if m := cardMarkup("Blurbs"); m != "" {
		d.AboutMe = blurbAfter(m, reAboutMe)
		d.WhoToMeet = blurbAfter(m, reWhoToMeet)
	}
	if m := cardMarkup("Interests"); m != "" {
		d.Interests = extractInterests(m)
	}
	if c := card("Profile Song"); c != nil {
		d.SongURL = extractSong(c)
	}
	if c := card("Friend Comments"); c != nil {
		if m := reViewAll.FindStringSubmatch(cleanText(c)); m != nil {
			d.CommentTotal = m[1]
		}
		d.Comments = extractComments(c)
	}
	return d
}

func extractHeader(page *goquery.Selection, d *Data) {
	page.Find(".profile-page.profile-custom-css").First().Each(func(_ int, s *goquery.Selection) {
		for _, c := range strings.Fields(s.AttrOr("class", "")) {
			if strings.HasPrefix(c, "theme-") {
				d.Theme = c
				break
			}
		}
	})
	if bg := page.Find(".profile-page[style]").First(); bg.Length() > 0 {
		style := bg.AttrOr("style", "")
		if strings.Contains(strings.ToLower(style), "background-image") {
			if m := reBackgroundURL.FindStringSubmatch(style); m != nil {
				d.BackgroundImage = strings.TrimSpace(m[1])
			}
		}
	}
	text := func(selector string) (string, bool) {
		s := page.Find(selector).First()
		if s.Length() == 0 {
			return "", false
		}
		return cleanText(s), true
	}
	if v, ok := text(".profile-display-name"); ok {
		d.DisplayName = v
	}
	if v, ok := text(".profile-username"); ok {
		d.Username = strings.TrimPrefix(v, "@")
	}
	if v, ok := text(".profile-tagline"); ok {
		d.Tagline = strings.TrimSpace(trimQuotes(v))
	}
	if v, ok := text(".profile-oshi-mark"); ok {
		d.OshiMark = v
	}
	if v, ok := text(".mood-text"); ok {
		d.Mood = v
	}
	if v, ok := text(".profile-online-status"); ok {
		d.OnlineStatus = v
	}
	if v, ok := text(".profile-boop-stats"); ok {
		if m := reBoops.FindStringSubmatch(v); m != nil {
			d.BoopCount = m[1]
		}
		if m := reViewerBoops.FindStringSubmatch(v); m != nil {
			d.ViewerBoops = m[1]
		}
	}
	if src, ok := page.Find("img.user-avatar.profile-avatar").First().Attr("src"); ok {
		d.AvatarURL = src
	}
}

// trimQuotes drops one leading and one trailing straight or curly quote.
func trimQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimPrefix(s, "“")
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSuffix(s, "”")
	return s
}

func extractFriends(card *goquery.Selection) []Friend {
	var out []Friend
	card.Find("a.friend-item").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		img := a.Find("img").First()
		alt := img.AttrOr("alt", "")
		name := alt
		if n := a.Find(".friend-name").First(); n.Length() > 0 {
			name = cleanText(n)
		}
		out = append(out, Friend{
			Href:      href,
			AvatarURL: img.AttrOr("src", ""),
			Name:      name,
			Alt:       alt,
		})
	})
	return out
}

func extractAlbums(card *goquery.Selection) []Album {
	var out []Album
	card.Find(`a[href*="/photos/"]`).Each(func(_ int, a *goquery.Selection) {
		title := boldText(a)
		if title == "" {
			title = "Album"
		}
		out = append(out, Album{
			Href:     a.AttrOr("href", ""),
			CoverURL: styleURL(a),
			Title:    title,
			Count:    countBefore(cleanText(a), rePhotoCount),
		})
	})
	return out
}

func extractGroups(card *goquery.Selection) []Group {
	var out []Group
	card.Find(`a[href^="/groups/"]`).Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		if strings.Contains(href, "/top") {
			return
		}
		name := boldText(a)
		if name == "" {
			name = "Group"
		}
		out = append(out, Group{
			Href:     href,
			CoverURL: styleURL(a),
			Name:     name,
			Members:  countBefore(cleanText(a), reMemberCount),
		})
	})
	return out
}

func extractCollab(markup string) Collab {
	var c Collab
	doc := parseFragment(markup)
	if doc == nil {
		return c
	}
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("td").Length() == 0 {
			return
		}
		var slots []int
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			m := reCellVar.FindStringSubmatch(td.AttrOr("style", ""))
			if m == nil {
				return
			}
			if strings.Contains(m[1], "--vs-blue") {
				slots = append(slots, 1)
			} else {
				slots = append(slots, 0)
			}
		})
		if len(slots) > 0 {
			c.Grid = append(c.Grid, slots)
		}
	})
	styled(doc.Selection, reTagChip).Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(s); t != "" {
			c.Tags = append(c.Tags, t)
		}
	})
	if desc := doc.Find(".collab-description").First(); desc.Length() > 0 {
		c.Description = richText(desc)
	} else if i := strings.LastIndex(markup, "</table>"); i >= 0 {
		c.Description = richTextOf(markup[i+len("</table>"):])
	}
	return c
}

// rowValue returns the text of the value cell in the first table row whose
// label cell contains label.
func rowValue(card *goquery.Selection, label string) string {
	var out string
	card.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return true
		}
		if !strings.Contains(cleanText(cells.First()), label) {
			return true
		}
		out = cleanText(cells.Eq(1))
		return false
	})
	return out
}

func extractDetails(card *goquery.Selection, d *Data) {
	card.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := cleanText(cells.First())
		value := cells.Eq(1)
		switch {
		case strings.Contains(label, "Generation"):
			if t, ok := value.Find("[title]").First().Attr("title"); ok {
				d.GenTitle = t
			} else if t, ok := value.Attr("title"); ok {
				d.GenTitle = t
			}
			if m := reGen.FindStringSubmatch(cleanText(value)); m != nil {
				d.Generation = m[1]
			}
		case strings.Contains(label, "Friends"):
			if n := firstNumber(cleanText(value.Find("a").First())); n != "" {
				d.FriendsCount = n
			}
		case strings.Contains(label, "Comments"):
			if n := firstNumber(cleanText(value.Find("a").First())); n != "" {
				d.CommentsCount = n
			}
		case strings.Contains(label, "Affiliation"):
			if v := cleanText(value); v != "" {
				d.Affiliation = v
			}
		}
	})
}

func extractBadges(card *goquery.Selection) []Badge {
	var out []Badge
	card.Find("div[title]").Each(func(_ int, div *goquery.Selection) {
		kids := div.Children()
		if kids.Length() != 1 || goquery.NodeName(kids) != "svg" {
			return
		}
		svg, err := goquery.OuterHtml(kids)
		if err != nil {
			return
		}
		out = append(out, Badge{Title: div.AttrOr("title", ""), SVG: svg})
	})
	return out
}

func extractLinks(card *goquery.Selection) []SocialLink {
	var out []SocialLink
	card.Find(`a[class*="social-link-item"]`).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		platform := cleanText(a.Find(".social-link-platform").First())
		if !ok || platform == "" {
			return
		}
		name := cleanText(a.Find(".social-link-name").First())
		if name == "" {
			name = platform
		}
		out = append(out, SocialLink{Href: href, Platform: platform, Name: name})
	})
	return out
}

// blurbAfter returns the rich text of the first plain blurb-content block
// that follows the label in markup.
func blurbAfter(markup string, label *regexp.Regexp) string {
	loc := label.FindStringIndex(markup)
	if loc == nil {
		return ""
	}
	return richText(fragmentFrom(markup, loc[1], "blurb-content"))
}

func extractInterests(markup string) map[string]string {
	out := map[string]string{}
	for _, cat := range InterestCategories {
		i := strings.Index(markup, cat+":")
		if i < 0 {
			continue
		}
		if v := richText(fragmentFrom(markup, i, "interest-content")); v != "" {
			out[cat] = v
		}
	}
	return out
}

func extractSong(card *goquery.Selection) string {
	var src string
	card.Find("[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v := s.AttrOr("src", "")
		if reAudioExt.MatchString(v) {
			src = v
			return false
		}
		return true
	})
	if src != "" {
		return src
	}
	if v, ok := card.Find("source[src]").First().Attr("src"); ok {
		return v
	}
	if v, ok := card.Find("audio[src]").First().Attr("src"); ok {
		return v
	}
	return ""
}

func extractComments(card *goquery.Selection) []Comment {
	var out []Comment
	card.Find("div.profile-comment").Each(func(_ int, pc *goquery.Selection) {
		author := pc.Find("a.comment-author-name").First()
		href, ok := author.Attr("href")
		if !ok {
			return
		}
		c := Comment{
			AuthorHref: href,
			AuthorName: cleanText(author),
			AvatarURL:  pc.Find(`img[class*="comment-avatar"]`).First().AttrOr("src", ""),
			Time:       cleanText(pc.Find(".comment-time").First()),
			Body:       richText(pc.Find(".comment-body").First()),
		}
		if box := styled(pc, reReplyBox).First(); box.Length() > 0 {
			c.Reply = extractReply(box)
		}
		out = append(out, c)
	})
	return out
}

func extractReply(box *goquery.Selection) *Reply {
	r := &Reply{
		AvatarURL: box.Find("img[src]").First().AttrOr("src", ""),
		Time:      cleanText(styled(box, reSmallText).First()),
	}
	if a := styled(box, reBoldWeight).Filter("a").First(); a.Length() > 0 {
		r.AuthorHref = a.AttrOr("href", "")
		r.AuthorName = cleanText(a)
	}
	r.Text = richText(box)
	if box.Find(`[data-lexical-text="true"]`).Length() == 0 {
		// without editor spans the box text would repeat author and time
		if last := box.Children().Last(); last.Length() > 0 {
			r.Text = cleanText(last)
		}
	}
	return r
}
