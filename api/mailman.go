package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// RawMail is a message triple as it appears on a Pipermail index page,
// before any subject sanitization.
type RawMail struct {
	Subject string
	Author  string
	URL     string
}

// MailmanScraper extracts message listings from Pipermail archive pages.
// It does not interpret subjects; that is the digest layer's job.
type MailmanScraper struct {
	httpClient *http.Client
	log        *logrus.Logger
}

// NewMailmanScraper creates a scraper for Pipermail date-index pages.
func NewMailmanScraper(log *logrus.Logger) *MailmanScraper {
	return &MailmanScraper{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// FetchMails downloads a Pipermail index page and returns its message
// triples in page order. Message urls are resolved against the page url so
// they keep the archive's unique message ids.
func (s *MailmanScraper) FetchMails(ctx context.Context, archiveURL string) ([]RawMail, error) {
	base, err := url.Parse(archiveURL)
	if err != nil {
		return nil, fmt.Errorf("invalid archive url %q: %w", archiveURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archive page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archive request failed with status %d", resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive page: %w", err)
	}

	mails := parseArchive(root, base)

	s.log.WithFields(logrus.Fields{
		"url":        archiveURL,
		"mail_count": len(mails),
	}).Info("Fetched mails from archive")

	return mails, nil
}

// parseArchive collects one RawMail per list item. Pipermail lays out every
// message as <li><a href="NNNN.html">subject</a> ... <i>author</i></li>.
func parseArchive(root *html.Node, base *url.URL) []RawMail {
	var mails []RawMail

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" {
			if mail, ok := mailFromItem(n, base); ok {
				mails = append(mails, mail)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return mails
}

func mailFromItem(item *html.Node, base *url.URL) (RawMail, bool) {
	var mail RawMail

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				href := attrValue(n, "href")
				if mail.URL == "" && strings.HasSuffix(href, ".html") {
					if ref, err := url.Parse(href); err == nil {
						mail.URL = base.ResolveReference(ref).String()
						mail.Subject = collapseWhitespace(nodeText(n))
					}
				}
			case "i":
				if mail.Author == "" {
					mail.Author = collapseWhitespace(nodeText(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(item)

	return mail, mail.URL != "" && mail.Subject != ""
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// collapseWhitespace normalizes the line wrapping Pipermail applies to long
// subjects into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
