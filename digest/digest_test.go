package digest

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listgram/api"
	"listgram/models"
)

type fakeMailSource struct {
	mails []api.RawMail
	err   error
}

func (f *fakeMailSource) FetchMails(ctx context.Context, archiveURL string) ([]api.RawMail, error) {
	return f.mails, f.err
}

type fakePostSource struct {
	posts []models.Post
	err   error
}

func (f *fakePostSource) FetchPosts(ctx context.Context, subreddit string, limit int) ([]models.Post, error) {
	return f.posts, f.err
}

type fakeArticleSource struct {
	title    string
	articles []models.Article
	err      error
}

func (f *fakeArticleSource) FetchArticles(ctx context.Context, feedURL string) (string, []models.Article, error) {
	return f.title, f.articles, f.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig() Config {
	return Config{
		ArchiveURL: "http://list/pipermail/dev/date.html",
		Subreddit:  "golang",
		PostLimit:  25,
		FeedURL:    "https://example.com/feed.xml",
	}
}

func TestBuildAssemblesAllSections(t *testing.T) {
	mails := &fakeMailSource{mails: []api.RawMail{
		{Subject: "[Dev] Build broke", Author: "alice", URL: "http://list/msg/1"},
		{Subject: "Re: [Dev] Build broke", Author: "bob", URL: "http://list/msg/2"},
		{Subject: "[Dev] Build broke", Author: "alice", URL: "http://list/msg/1"},
	}}
	posts := &fakePostSource{posts: []models.Post{
		models.NewPost("a post", "https://example.com/p", false, ""),
	}}
	articles := &fakeArticleSource{title: "Example News", articles: []models.Article{
		models.NewArticle("an article", "", "https://example.com/a", time.Now()),
	}}

	builder := NewBuilder(mails, posts, articles, nil, testConfig(), testLogger())
	d := builder.Build(context.Background())

	summary := d.Summary()
	assert.Equal(t, 1, summary.Threads)
	assert.Equal(t, 2, summary.Mails)
	assert.Equal(t, 1, summary.Posts)
	assert.Equal(t, 1, summary.Articles)
	assert.Equal(t, 1, summary.Duplicates)

	sections := d.Sections()
	require.Len(t, sections, 3)
	assert.Equal(t, "Mailing list", sections[0].Title)
	assert.Equal(t, "r/golang", sections[1].Title)
	assert.Equal(t, "Example News", sections[2].Title)
	assert.False(t, d.Empty())
}

func TestBuildFailingSourceLeavesSectionEmpty(t *testing.T) {
	mails := &fakeMailSource{err: errors.New("archive unreachable")}
	posts := &fakePostSource{posts: []models.Post{
		models.NewPost("still here", "https://example.com/p", true, ""),
	}}
	articles := &fakeArticleSource{err: errors.New("feed unreachable")}

	builder := NewBuilder(mails, posts, articles, nil, testConfig(), testLogger())
	d := builder.Build(context.Background())

	assert.Equal(t, 0, d.Threads.CountMails())
	assert.Equal(t, 1, d.Subreddit.Count())
	assert.Equal(t, 0, d.Feed.Count())

	sections := d.Sections()
	require.Len(t, sections, 1)
	assert.Equal(t, "r/golang", sections[0].Title)
}

func TestBuildAllSourcesFailing(t *testing.T) {
	builder := NewBuilder(
		&fakeMailSource{err: errors.New("down")},
		&fakePostSource{err: errors.New("down")},
		&fakeArticleSource{err: errors.New("down")},
		nil,
		testConfig(),
		testLogger(),
	)

	d := builder.Build(context.Background())
	assert.True(t, d.Empty())
	assert.Empty(t, d.Sections())
}

func TestBuildCollectionsAreFreshPerCycle(t *testing.T) {
	mails := &fakeMailSource{mails: []api.RawMail{
		{Subject: "[Dev] Hello", Author: "alice", URL: "http://list/msg/1"},
	}}
	builder := NewBuilder(mails, &fakePostSource{}, &fakeArticleSource{}, nil, testConfig(), testLogger())

	first := builder.Build(context.Background())
	second := builder.Build(context.Background())

	// the same mail is not a duplicate across cycles; dedup is per digest
	assert.Equal(t, 1, first.Threads.CountMails())
	assert.Equal(t, 1, second.Threads.CountMails())
	assert.Equal(t, 0, second.Duplicates)
}

func TestSectionsUntitledFeedFallback(t *testing.T) {
	articles := &fakeArticleSource{articles: []models.Article{
		models.NewArticle("an article", "", "https://example.com/a", time.Now()),
	}}
	builder := NewBuilder(&fakeMailSource{}, &fakePostSource{}, articles, nil, testConfig(), testLogger())

	sections := builder.Build(context.Background()).Sections()
	require.Len(t, sections, 1)
	assert.Equal(t, "Feed", sections[0].Title)
}
