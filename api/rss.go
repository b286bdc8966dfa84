package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"listgram/models"
)

// FeedClient fetches and parses RSS/Atom feeds.
type FeedClient struct {
	parser *gofeed.Parser
	log    *logrus.Logger
}

// NewFeedClient creates an RSS feed client.
func NewFeedClient(userAgent string, log *logrus.Logger) *FeedClient {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: 30 * time.Second}

	return &FeedClient{
		parser: parser,
		log:    log,
	}
}

// FetchArticles downloads a feed and returns its title and entries in feed
// order. Entries without a parseable publication date keep the zero time;
// dates are never converted out of the source's reported timezone.
func (c *FeedClient) FetchArticles(ctx context.Context, feedURL string) (string, []models.Article, error) {
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse feed %q: %w", feedURL, err)
	}

	articles := make([]models.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}
		articles = append(articles, models.NewArticle(item.Title, item.Description, item.Link, published))
	}

	c.log.WithFields(logrus.Fields{
		"feed":          feed.Title,
		"article_count": len(articles),
	}).Info("Fetched articles from feed")

	return feed.Title, articles, nil
}
