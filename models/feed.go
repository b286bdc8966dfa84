package models

import (
	"html"
	"strings"
	"time"
)

// articleTimeLayout is day/month/year, 24-hour, in whatever timezone the
// source reported. No conversion is performed.
const articleTimeLayout = "02/01/06 15:04"

const clockGlyph = "⌚"

// Article represents an article from an RSS feed.
type Article struct {
	Title       string
	Description string
	URL         string
	Date        time.Time
}

// NewArticle creates an RSS feed article.
func NewArticle(title, description, url string, date time.Time) Article {
	return Article{
		Title:       title,
		Description: description,
		URL:         url,
		Date:        date,
	}
}

func (a Article) html() string {
	var b strings.Builder
	b.WriteString("<a href=\"")
	b.WriteString(a.URL)
	b.WriteString("\">")
	b.WriteString(html.EscapeString(a.Title))
	b.WriteString("</a>\n    ")
	b.WriteString(clockGlyph)
	b.WriteString(" ")
	b.WriteString(a.Date.Format(articleTimeLayout))
	return b.String()
}

// Feed is an ordered list of articles from a single RSS feed. Appends are
// unconditional; dedup across poll cycles is the caller's concern.
type Feed struct {
	Title    string
	articles []Article
	glyphs   GlyphResolver
}

// NewFeed creates an empty feed. glyphs may be nil.
func NewFeed(title string, glyphs GlyphResolver) *Feed {
	return &Feed{
		Title:  title,
		glyphs: glyphs,
	}
}

// Append adds an article to the feed.
func (f *Feed) Append(article Article) {
	f.articles = append(f.articles, article)
}

// Count returns the number of articles.
func (f *Feed) Count() int {
	return len(f.articles)
}

// HTML renders the articles most recently appended first. Each entry is a
// marker and title anchor followed by a continuation line with the
// publication time.
func (f *Feed) HTML() string {
	dash := marker(f.glyphs)

	lines := make([]string, 0, len(f.articles))
	for i := len(f.articles) - 1; i >= 0; i-- {
		lines = append(lines, dash+" "+f.articles[i].html())
	}
	return strings.Join(lines, "\n")
}
