package digest

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"listgram/api"
	"listgram/models"
)

// MailSource supplies raw message triples from a mailing-list archive page.
type MailSource interface {
	FetchMails(ctx context.Context, archiveURL string) ([]api.RawMail, error)
}

// PostSource supplies subreddit posts, oldest-to-newest as ranked by the
// source.
type PostSource interface {
	FetchPosts(ctx context.Context, subreddit string, limit int) ([]models.Post, error)
}

// ArticleSource supplies feed entries in feed order, plus the feed title.
type ArticleSource interface {
	FetchArticles(ctx context.Context, feedURL string) (string, []models.Article, error)
}

// Config holds the source coordinates for one digest.
type Config struct {
	ArchiveURL string
	Subreddit  string
	PostLimit  int
	FeedURL    string
}

// Digest is one cycle's worth of collected activity, ready to render.
type Digest struct {
	Threads    *models.Threads
	Subreddit  *models.Subreddit
	Feed       *models.Feed
	BuiltAt    time.Time
	Duplicates int
}

// Section is a titled HTML rendering of one digest collection.
type Section struct {
	Title string
	HTML  string
}

// Summary carries digest counts for logging and the preview endpoint.
type Summary struct {
	Threads    int       `json:"threads"`
	Mails      int       `json:"mails"`
	Posts      int       `json:"posts"`
	Articles   int       `json:"articles"`
	Duplicates int       `json:"duplicates"`
	BuiltAt    time.Time `json:"built_at"`
}

// Sections returns the non-empty HTML sections of the digest, mailing list
// first.
func (d *Digest) Sections() []Section {
	var sections []Section
	if d.Threads.CountMails() > 0 {
		sections = append(sections, Section{Title: "Mailing list", HTML: d.Threads.HTML()})
	}
	if d.Subreddit.Count() > 0 {
		sections = append(sections, Section{Title: "r/" + d.Subreddit.Name, HTML: d.Subreddit.HTML()})
	}
	if d.Feed.Count() > 0 {
		title := d.Feed.Title
		if title == "" {
			title = "Feed"
		}
		sections = append(sections, Section{Title: title, HTML: d.Feed.HTML()})
	}
	return sections
}

// Empty reports whether no source contributed any item.
func (d *Digest) Empty() bool {
	return d.Threads.CountMails() == 0 && d.Subreddit.Count() == 0 && d.Feed.Count() == 0
}

// Summary returns the digest counts.
func (d *Digest) Summary() Summary {
	return Summary{
		Threads:    d.Threads.CountThreads(),
		Mails:      d.Threads.CountMails(),
		Posts:      d.Subreddit.Count(),
		Articles:   d.Feed.Count(),
		Duplicates: d.Duplicates,
		BuiltAt:    d.BuiltAt,
	}
}

// Builder assembles digests from the three sources. Collections are created
// fresh for every build and never reused, so no state carries across cycles.
type Builder struct {
	mails    MailSource
	posts    PostSource
	articles ArticleSource
	glyphs   models.GlyphResolver
	cfg      Config
	log      *logrus.Logger
}

// NewBuilder creates a digest builder. glyphs may be nil to render plain
// dash markers.
func NewBuilder(
	mails MailSource,
	posts PostSource,
	articles ArticleSource,
	glyphs models.GlyphResolver,
	cfg Config,
	log *logrus.Logger,
) *Builder {
	return &Builder{
		mails:    mails,
		posts:    posts,
		articles: articles,
		glyphs:   glyphs,
		cfg:      cfg,
		log:      log,
	}
}

// Build fetches all three sources concurrently and assembles a digest. A
// failing source is logged and leaves its section empty; the digest itself
// is always produced.
func (b *Builder) Build(ctx context.Context) *Digest {
	d := &Digest{
		Threads:   models.NewThreads(b.glyphs),
		Subreddit: models.NewSubreddit(b.cfg.Subreddit, b.glyphs),
		Feed:      models.NewFeed("", b.glyphs),
		BuiltAt:   time.Now(),
	}

	var wg sync.WaitGroup
	errorsCh := make(chan error, 3)

	wg.Add(3)

	go func() {
		defer wg.Done()
		raw, err := b.mails.FetchMails(ctx, b.cfg.ArchiveURL)
		if err != nil {
			errorsCh <- err
			return
		}
		for _, r := range raw {
			mail := models.NewMail(r.Subject, r.Author, r.URL)
			if !d.Threads.Append(mail) {
				d.Duplicates++
				b.log.WithField("url", mail.URL).Debug("Skipped duplicate mail")
			}
		}
	}()

	go func() {
		defer wg.Done()
		posts, err := b.posts.FetchPosts(ctx, b.cfg.Subreddit, b.cfg.PostLimit)
		if err != nil {
			errorsCh <- err
			return
		}
		for _, p := range posts {
			d.Subreddit.Append(p)
		}
	}()

	go func() {
		defer wg.Done()
		title, articles, err := b.articles.FetchArticles(ctx, b.cfg.FeedURL)
		if err != nil {
			errorsCh <- err
			return
		}
		d.Feed.Title = title
		for _, a := range articles {
			d.Feed.Append(a)
		}
	}()

	wg.Wait()
	close(errorsCh)

	for err := range errorsCh {
		b.log.WithError(err).Error("Source failed, section left empty")
	}

	summary := d.Summary()
	b.log.WithFields(logrus.Fields{
		"threads":    summary.Threads,
		"mails":      summary.Mails,
		"posts":      summary.Posts,
		"articles":   summary.Articles,
		"duplicates": summary.Duplicates,
	}).Info("Digest built")

	return d
}
