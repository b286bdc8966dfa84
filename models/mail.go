package models

import (
	"html"
	"strings"
	"unicode/utf8"
)

// Mail represents a single message from the mailing-list archive.
// The archive URL embeds the unique message id, so identity is the URL alone.
type Mail struct {
	Subject string
	Author  string
	URL     string
}

// NewMail creates a mail with its subject sanitized. The url is taken as-is,
// no check that it is a real url.
func NewMail(subject, author, url string) Mail {
	return Mail{
		Subject: SanitizeSubject(subject),
		Author:  author,
		URL:     url,
	}
}

// Equal reports whether both mails reference the same archived message.
func (m Mail) Equal(other Mail) bool {
	return m.URL == other.URL
}

// SanitizeSubject removes the mailman list tag from a subject if present,
// e.g. "[Dev] Build broke" becomes "Build broke". Subjects without a closing
// bracket or with malformed text after it are returned unchanged; a tag at
// the very end of the subject leaves an empty string, which is a valid
// (if degenerate) subject.
func SanitizeSubject(raw string) string {
	idx := strings.IndexByte(raw, ']')
	if idx < 0 {
		return raw
	}

	// skip the bracket plus one separator character, which may be any rune
	rest := raw[idx+1:]
	if rest == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(rest)
	if r == utf8.RuneError && size == 1 {
		return raw
	}
	return rest[size:]
}

// Threads is a set of mails partitioned by sanitized subject. Subjects keep
// their creation order so renderings can walk them newest-first. A mail is
// only added if no mail with the same url already sits under its subject.
type Threads struct {
	subjects  []string
	bySubject map[string][]Mail
	glyphs    GlyphResolver
	mails     int
}

// NewThreads creates a fresh, empty thread container. glyphs may be nil, in
// which case HTML renderings use the plain dash marker.
func NewThreads(glyphs GlyphResolver) *Threads {
	return &Threads{
		bySubject: make(map[string][]Mail),
		glyphs:    glyphs,
	}
}

// Append adds a mail under its subject, creating the subject group if
// needed. It returns false without inserting when a mail with the same url
// is already present under that subject.
func (t *Threads) Append(mail Mail) bool {
	mails, exists := t.bySubject[mail.Subject]
	if exists {
		for _, m := range mails {
			if mail.Equal(m) {
				return false
			}
		}
	} else {
		t.subjects = append(t.subjects, mail.Subject)
	}

	t.bySubject[mail.Subject] = append(mails, mail)
	t.mails++
	return true
}

// CountThreads returns the number of distinct subjects.
func (t *Threads) CountThreads() int {
	return len(t.subjects)
}

// CountMails returns the total number of mails across all subjects.
func (t *Threads) CountMails() int {
	return t.mails
}

// String renders the threads as plain text, most recently created subject
// first and most recently appended mail first within each subject.
func (t *Threads) String() string {
	var b strings.Builder
	for i := len(t.subjects) - 1; i >= 0; i-- {
		subject := t.subjects[i]
		b.WriteString(capitalizeNoSym(subject))
		b.WriteString(":\n")

		mails := t.bySubject[subject]
		for j := len(mails) - 1; j >= 0; j-- {
			b.WriteString("\t")
			b.WriteString(mails[j].Author)
			b.WriteString(" - <")
			b.WriteString(mails[j].URL)
			b.WriteString(">\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders the threads like String but with HTML markup, one anchor per
// mail with the author as link text. Traversal order is the same.
func (t *Threads) HTML() string {
	dash := marker(t.glyphs)

	var b strings.Builder
	for i := len(t.subjects) - 1; i >= 0; i-- {
		subject := t.subjects[i]
		b.WriteString(dash)
		b.WriteString(" <b>")
		b.WriteString(html.EscapeString(capitalizeNoSym(subject)))
		b.WriteString("</b>\n")

		mails := t.bySubject[subject]
		for j := len(mails) - 1; j >= 0; j-- {
			b.WriteString("    <a href=\"")
			b.WriteString(mails[j].URL)
			b.WriteString("\">")
			b.WriteString(html.EscapeString(mails[j].Author))
			b.WriteString("</a>\n")
		}
	}
	return b.String()
}
