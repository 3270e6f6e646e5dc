// Package render splices extracted profile data into the static profile
// template.
package render

import (
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperifyio/profilekit/internal/profile"
)

// Options control the steps that run after the data substitutions.
type Options struct {
	// CustomHTML replaces the custom blurb contents when InlineCustom is set.
	CustomHTML   string
	InlineCustom bool
	// Images maps remote image URLs to local paths.
	Images map[string]string
}

var (
	reAvatarPlaceholder = regexp.MustCompile(`src="data:image/svg\+xml[^"]*"(\s+style="width:100px)`)
	reFriendsGrid       = regexp.MustCompile(`(<div class="friends-grid">[\s\S]*?</div>\s*)(</div>\s*</div>\s*\n\s*<!--\s*={10,}\s*Photos)`)
	rePhotosBody        = regexp.MustCompile(`(<div class="card">\s*<div class="card-header hearted"[^>]*>\s*<span>[^<]*Photos</span>[\s\S]*?<div class="card-body">\s*)([\s\S]*?)(\s*</div>\s*</div>\s*\n\s*<!--\s*={10,}\s*Groups)`)
	reGroupsBody        = regexp.MustCompile(`(<div class="card">\s*<div class="card-header hearted"[^>]*>\s*<span>[^<]*Groups</span>[\s\S]*?<div class="card-body">\s*)([\s\S]*?)(<!-- HOST ONLY: Edit Top Groups[\s\S]*?</div>\s*</div>\s*</div>\s*\n\s*<!--\s*={10,}\s*Collab)`)
	reCollabTable       = regexp.MustCompile(`<table style="width:100%;border-collapse:collapse;font-size:9px">[\s\S]*?</table>`)
	reCollabTags        = regexp.MustCompile(`(<div style="display:flex;flex-wrap:wrap;gap:3px">[\s\S]*?</div>\s*)(</div>\s*</div>\s*\n\s*<!--\s*={5,}\s*(?:Details|Badges))`)
	reFriendsCount      = regexp.MustCompile(`(<td><a href="/)[^"]*/friends">\d+</a></td>`)
	reCommentsCount     = regexp.MustCompile(`(<td><a href="#comments">)\d+(</a></td>)`)
	reBadgesBlock       = regexp.MustCompile(`(<div style="display:flex;flex-wrap:wrap;gap:8px">[\s\S]*?</div>\s*</div>\s*</div>\s*)(\n\s*<!--\s*={5,}\s*Details)`)
	reSocialLinks       = regexp.MustCompile(`(<div class="social-links-list">[\s\S]*?</div>\s*)(</div>\s*</div>\s*\n\s*<!--\s*={5,}\s*Avatar Info)`)
	reViewAll           = regexp.MustCompile(`View All \(\d+\)`)
	reLeaveComment      = regexp.MustCompile(`Leave a comment for [^.]*\.\.\.`)
	reCommentList       = regexp.MustCompile(`(Post Comment</button>\s*</div>)[\s\S]*?(\s*</div>\s*</div>\s*\n\s*</div><!-- /profile-right -->)`)
	reCustomBlurb       = regexp.MustCompile(`<div class="blurb-content profile-custom-html">[\s\S]*?</div>`)
)

// interestPlaceholders holds the template text each interest replaces.
var interestPlaceholders = map[string]string{
	"Music":  "Genre, Artist, Album",
	"Movies": "Movie1, Movie2",
	"Shows":  "Show1, Show2",
	"Books":  "Book1, Book2",
	"Games":  "Game1, Game2",
	"Heroes": "Hero1, Hero2",
}

// Render returns the template with d substituted in. Placeholders the
// template does not contain are skipped; the template is never rejected.
func Render(tmpl string, d profile.Data, opts Options) string {
	esc := html.EscapeString
	name := esc(d.DisplayName)
	user := esc(d.Username)
	s := tmpl

	s = strings.ReplaceAll(s, "Username's ", name+"'s ")
	s = strings.ReplaceAll(s, ">Username<", ">"+name+"<")
	s = strings.ReplaceAll(s, "<strong>Username</strong>", "<strong>"+name+"</strong>")
	s = strings.ReplaceAll(s, "@username", "@"+user)
	s = strings.ReplaceAll(s, "myoshi.co/username", "myoshi.co/"+user)
	s = strings.ReplaceAll(s, "/username/", "/"+user+"/")
	s = strings.ReplaceAll(s, "to=username", "to="+user)
	s = strings.ReplaceAll(s, ">Display Name</div>", ">"+name+"</div>")
	s = strings.ReplaceAll(s, `"Headline"`, `"`+esc(d.Tagline)+`"`)

	s = replaceOnce(s, `<div class="profile-oshi-mark">X</div>`, `<div class="profile-oshi-mark">`+esc(d.OshiMark)+`</div>`)
	s = replaceOnce(s, `<div class="mood-text">Mood</div>`, `<div class="mood-text">`+esc(d.Mood)+`</div>`)
	if d.AvatarURL != "" {
		s = replaceFirst(s, reAvatarPlaceholder, func(m []string) string {
			return `src="` + esc(d.AvatarURL) + `"` + m[1]
		})
		s = strings.ReplaceAll(s, `alt="Username"`, `alt="`+name+`"`)
	}
	s = replaceOnce(s, ">Last online just now<", ">"+esc(d.OnlineStatus)+"<")
	s = replaceOnce(s, "14 boops received", esc(d.BoopCount)+" boops received")
	if d.ViewerBoops != "" {
		s = replaceOnce(s, "You've booped 9x", "You've booped "+esc(d.ViewerBoops)+"x")
	}
	s = replaceOnce(s, "profile-custom-css theme-dark", "profile-custom-css "+esc(d.Theme))
	if d.BackgroundImage != "" {
		s = replaceOnce(s, `class="profile-page profile-custom-css`,
			`style="background-image:url(`+esc(d.BackgroundImage)+`);background-size:cover;background-position:center top;background-attachment:fixed;background-repeat:no-repeat" class="profile-page profile-custom-css`)
	}

	s = replaceFirst(s, reFriendsGrid, func(m []string) string {
		return FriendsGrid(d.Friends) + "\n" + m[2]
	})
	s = replaceFirst(s, rePhotosBody, func(m []string) string {
		return m[1] + Albums(d.Albums) + m[3]
	})
	s = replaceFirst(s, reGroupsBody, func(m []string) string {
		return m[1] + Groups(d.Groups) + "\n" + EditTopGroups() + "\n</div>\n</div>\n\n<!-- ==================== Collab"
	})
	if len(d.Collab.Grid) > 0 {
		s = replaceFirst(s, reCollabTable, func([]string) string {
			return CollabGrid(d.Collab.Grid)
		})
	}
	if len(d.Collab.Tags) > 0 {
		s = replaceFirst(s, reCollabTags, func(m []string) string {
			return CollabTags(d.Collab.Tags) + m[2]
		})
	}
	if d.Collab.Description != "" {
		s = replaceOnce(s, "Collab description here", esc(d.Collab.Description))
	}

	s = replaceOnce(s, `title="N invites from founding"`, `title="`+esc(d.GenTitle)+`"`)
	gen := d.Generation
	if gen == "" {
		gen = "1"
	}
	s = replaceOnce(s, ">Gen 1<", ">Gen "+esc(gen)+"<")
	s = replaceFirst(s, reFriendsCount, func(m []string) string {
		return m[1] + user + `/friends">` + esc(d.FriendsCount) + `</a></td>`
	})
	s = replaceFirst(s, reCommentsCount, func(m []string) string {
		return m[1] + esc(d.CommentsCount) + m[2]
	})
	s = replaceOnce(s, "<td>Affiliation</td>", "<td>"+esc(d.Affiliation)+"</td>")

	if len(d.Badges) > 0 {
		s = replaceFirst(s, reBadgesBlock, func(m []string) string {
			return `<div style="display:flex;flex-wrap:wrap;gap:8px">` + Badges(d.Badges) + "\n</div>\n</div>\n</div>" + m[2]
		})
	}
	if len(d.SocialLinks) > 0 {
		s = replaceFirst(s, reSocialLinks, func(m []string) string {
			return `<div class="social-links-list">` + "\n" + SocialLinks(d.SocialLinks) + "\n</div>\n" + m[2]
		})
	}
	s = replaceOnce(s, "<td>3d</td>", "<td>"+esc(d.ModelType)+"</td>")

	if d.Lore != "" {
		s = replaceOnce(s, "Lore content goes here.", esc(d.Lore))
	}
	if d.AboutMe != "" {
		s = replaceOnce(s, "About me text goes here.", esc(d.AboutMe))
	}
	if d.WhoToMeet != "" {
		s = replaceOnce(s, "Who I'd like to meet text goes here.", esc(d.WhoToMeet))
	}
	for _, cat := range profile.InterestCategories {
		if v := d.Interests[cat]; v != "" {
			s = replaceOnce(s, ">"+interestPlaceholders[cat]+"<", ">"+esc(v)+"<")
		}
	}
	if d.SongURL != "" {
		s = replaceOnce(s, `src="about:blank"`, `src="`+esc(d.SongURL)+`"`)
	}

	if len(d.Comments) > 0 {
		s = replaceFirst(s, reViewAll, func([]string) string {
			return "View All (" + esc(d.CommentTotal) + ")"
		})
		s = replaceFirst(s, reLeaveComment, func([]string) string {
			return "Leave a comment for " + name + "..."
		})
		s = replaceFirst(s, reCommentList, func(m []string) string {
			return m[1] + Comments(d.Comments, d.Username) + m[2]
		})
	}

	if opts.InlineCustom {
		s = InlineCustomHTML(s, opts.CustomHTML)
	}
	if len(opts.Images) > 0 {
		s = LocalizeImages(s, opts.Images)
	}
	return s
}

// InlineCustomHTML replaces the contents of the first custom blurb block with
// custom, inserted verbatim.
func InlineCustomHTML(page, custom string) string {
	return replaceFirst(page, reCustomBlurb, func([]string) string {
		return `<div class="blurb-content profile-custom-html">` + custom + `</div>`
	})
}

// LocalizeImages rewrites every occurrence of each remote URL in urlMap to its
// local path. Longer URLs are replaced first so a URL that prefixes another
// cannot split it.
func LocalizeImages(page string, urlMap map[string]string) string {
	urls := make([]string, 0, len(urlMap))
	for u := range urlMap {
		if u != "" {
			urls = append(urls, u)
		}
	}
	sort.Slice(urls, func(i, j int) bool {
		if len(urls[i]) != len(urls[j]) {
			return len(urls[i]) > len(urls[j])
		}
		return urls[i] < urls[j]
	})
	for _, u := range urls {
		page = strings.ReplaceAll(page, u, urlMap[u])
	}
	return page
}

func replaceOnce(s, old, repl string) string {
	return strings.Replace(s, old, repl, 1)
}

// replaceFirst replaces the leftmost match of re with fn(submatches).
func replaceFirst(s string, re *regexp.Regexp, fn func(m []string) string) string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	m := make([]string, len(loc)/2)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return s[:loc[0]] + fn(m) + s[loc[1]:]
}
