package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSubject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Tagged subject",
			input:    "[Group] Hello",
			expected: "Hello",
		},
		{
			name:     "Reply keeps the list tag",
			input:    "Re: [Dev] Build broke",
			expected: "Build broke",
		},
		{
			name:     "No bracket returns subject unchanged",
			input:    "Plain subject without tag",
			expected: "Plain subject without tag",
		},
		{
			name:     "Bracket at end of subject",
			input:    "x]",
			expected: "",
		},
		{
			name:     "Tag only",
			input:    "[Dev]",
			expected: "",
		},
		{
			name:     "Tag followed by single separator",
			input:    "[Dev] ",
			expected: "",
		},
		{
			name:     "Empty subject",
			input:    "",
			expected: "",
		},
		{
			name:     "Multibyte separator after tag",
			input:    "[Dev] Hello",
			expected: "Hello",
		},
		{
			name:     "Malformed text after tag returns subject unchanged",
			input:    "[Dev]\xa0Hello",
			expected: "[Dev]\xa0Hello",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeSubject(tc.input))
		})
	}
}

// For any subject without a closing bracket the sanitizer is the identity.
func TestSanitizeSubjectIdentityWithoutBracket(t *testing.T) {
	subjects := []string{
		"Re: Build broke",
		"no tag here [ still open",
		"   ",
		"unicode sübject",
	}

	for _, s := range subjects {
		assert.Equal(t, s, SanitizeSubject(s))
	}
}

func TestThreadsAppendRejectsDuplicateURL(t *testing.T) {
	threads := NewThreads(nil)

	assert.True(t, threads.Append(NewMail("[Dev] Hello", "alice", "http://list/msg/1")))
	assert.False(t, threads.Append(NewMail("[Dev] Hello", "mallory", "http://list/msg/1")))

	assert.Equal(t, 1, threads.CountThreads())
	assert.Equal(t, 1, threads.CountMails())
}

func TestThreadsCountMailsCountsDistinctURLs(t *testing.T) {
	threads := NewThreads(nil)

	mails := []Mail{
		NewMail("[Dev] Hello", "alice", "http://list/msg/1"),
		NewMail("[Dev] Hello", "bob", "http://list/msg/2"),
		NewMail("[Dev] Hello", "carol", "http://list/msg/2"),
		NewMail("[Dev] Hello", "alice", "http://list/msg/3"),
		NewMail("[Dev] Hello", "dave", "http://list/msg/1"),
	}

	for _, m := range mails {
		threads.Append(m)
	}

	// three distinct urls under the one subject
	assert.Equal(t, 3, threads.CountMails())
	assert.Equal(t, 1, threads.CountThreads())
}

func TestThreadsGroupsBySanitizedSubject(t *testing.T) {
	threads := NewThreads(nil)

	// different raw subjects, identical after the tag is stripped
	threads.Append(NewMail("[Dev] Hello", "alice", "http://list/msg/1"))
	threads.Append(NewMail("[Announce] Hello", "bob", "http://list/msg/2"))

	assert.Equal(t, 1, threads.CountThreads())
	assert.Equal(t, 2, threads.CountMails())
}

func TestThreadsRenderReverseOrder(t *testing.T) {
	threads := NewThreads(nil)
	threads.Append(NewMail("[Dev] Topic", "a", "http://list/msg/1"))
	threads.Append(NewMail("[Dev] Topic", "b", "http://list/msg/2"))
	threads.Append(NewMail("[Dev] Topic", "c", "http://list/msg/3"))

	text := threads.String()
	posC := strings.Index(text, "http://list/msg/3")
	posB := strings.Index(text, "http://list/msg/2")
	posA := strings.Index(text, "http://list/msg/1")

	assert.True(t, posC < posB, "most recent mail should render first")
	assert.True(t, posB < posA)
}

func TestThreadsRenderSubjectsNewestFirst(t *testing.T) {
	threads := NewThreads(nil)
	threads.Append(NewMail("[Dev] First topic", "a", "http://list/msg/1"))
	threads.Append(NewMail("[Dev] Second topic", "b", "http://list/msg/2"))

	text := threads.String()
	assert.True(t, strings.Index(text, "Second topic") < strings.Index(text, "First topic"))

	html := threads.HTML()
	assert.True(t, strings.Index(html, "Second topic") < strings.Index(html, "First topic"))
}

func TestThreadsTextFormat(t *testing.T) {
	threads := NewThreads(nil)
	threads.Append(NewMail("[Dev] build broke", "alice", "http://list/msg/1"))
	threads.Append(NewMail("Re: [Dev] build broke", "bob", "http://list/msg/2"))

	expected := "Build broke:\n" +
		"\tbob - <http://list/msg/2>\n" +
		"\talice - <http://list/msg/1>\n" +
		"\n"

	assert.Equal(t, expected, threads.String())
}

func TestThreadsEndToEnd(t *testing.T) {
	threads := NewThreads(nil)

	assert.True(t, threads.Append(NewMail("[Dev] Build broke", "alice", "http://list/msg/1")))
	assert.True(t, threads.Append(NewMail("Re: [Dev] Build broke", "bob", "http://list/msg/2")))

	// same message seen again, different author
	assert.False(t, threads.Append(NewMail("[Dev] Build broke", "eve", "http://list/msg/1")))

	assert.Equal(t, 1, threads.CountThreads())
	assert.Equal(t, 2, threads.CountMails())
}

func TestThreadsHTMLEscapesAuthor(t *testing.T) {
	threads := NewThreads(nil)
	threads.Append(NewMail("[Dev] Hello", "a <clever> & dangerous author", "http://list/msg/1"))

	html := threads.HTML()
	assert.Contains(t, html, "a &lt;clever&gt; &amp; dangerous author")
	assert.NotContains(t, html, "<clever>")

	// plain text keeps the author verbatim
	assert.Contains(t, threads.String(), "a <clever> & dangerous author")
}

func TestThreadsHTMLUsesGlyphResolver(t *testing.T) {
	pointRight := func(name string) (string, bool) {
		if name == ":point_right:" {
			return "\U0001f449", true
		}
		return "", false
	}

	threads := NewThreads(pointRight)
	threads.Append(NewMail("[Dev] Hello", "alice", "http://list/msg/1"))

	assert.Contains(t, threads.HTML(), "\U0001f449 <b>Hello</b>")
}

func TestThreadsHTMLFallsBackToDash(t *testing.T) {
	miss := func(string) (string, bool) { return "", false }

	for _, resolver := range []GlyphResolver{nil, miss} {
		threads := NewThreads(resolver)
		threads.Append(NewMail("[Dev] Hello", "alice", "http://list/msg/1"))

		assert.True(t, strings.HasPrefix(threads.HTML(), "- <b>Hello</b>"))
	}
}

func TestMailEqual(t *testing.T) {
	a := NewMail("[Dev] Hello", "alice", "http://list/msg/1")
	b := NewMail("[Dev] Something else", "bob", "http://list/msg/1")
	c := NewMail("[Dev] Hello", "alice", "http://list/msg/2")

	assert.True(t, a.Equal(b), "equality is defined by url alone")
	assert.False(t, a.Equal(c))
}

func TestCapitalizeNoSym(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"build broke", "Build broke"},
		{"re: build broke", "Re build broke"},
		{"*important*", "Important"},
		{"", ""},
		{"!!!", ""},
		{"42 things", "42 things"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, capitalizeNoSym(tc.input))
	}
}
