package models

import (
	"html"
	"strings"
)

// Post represents a subreddit post. Self posts link to their own comment
// page, so they carry no separate comments url.
type Post struct {
	Title    string
	URL      string
	IsSelf   bool
	Comments string
}

// NewPost creates a subreddit post. For link posts, comments is the url of
// the comment page; when empty it defaults to the post url itself. Self
// posts always have an empty Comments.
func NewPost(title, url string, isSelf bool, comments string) Post {
	p := Post{
		Title:  title,
		URL:    url,
		IsSelf: isSelf,
	}
	if !isSelf {
		if comments == "" {
			comments = url
		}
		p.Comments = comments
	}
	return p
}

func (p Post) html() string {
	var b strings.Builder
	b.WriteString("<a href=\"")
	b.WriteString(p.URL)
	b.WriteString("\">")
	b.WriteString(html.EscapeString(p.Title))
	b.WriteString("</a>")
	if p.Comments != "" {
		b.WriteString(" (<a href=\"")
		b.WriteString(p.Comments)
		b.WriteString("\">comments</a>)")
	}
	return b.String()
}

// Subreddit is an ordered list of posts from a single subreddit. Appends are
// unconditional; feeds the posts come from do not repeat entries within one
// poll cycle.
type Subreddit struct {
	Name   string
	posts  []Post
	glyphs GlyphResolver
}

// NewSubreddit creates an empty subreddit. glyphs may be nil.
func NewSubreddit(name string, glyphs GlyphResolver) *Subreddit {
	return &Subreddit{
		Name:   name,
		glyphs: glyphs,
	}
}

// Append adds a post to the subreddit.
func (s *Subreddit) Append(post Post) {
	s.posts = append(s.posts, post)
}

// Count returns the number of posts.
func (s *Subreddit) Count() int {
	return len(s.posts)
}

// HTML renders the posts most recently appended first, one line per post:
// marker, title anchor and, for link posts, a parenthesized comments anchor.
func (s *Subreddit) HTML() string {
	dash := marker(s.glyphs)

	lines := make([]string, 0, len(s.posts))
	for i := len(s.posts) - 1; i >= 0; i-- {
		lines = append(lines, dash+" "+s.posts[i].html())
	}
	return strings.Join(lines, "\n")
}
