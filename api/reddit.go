package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"listgram/models"
)

const (
	redditBaseURL = "https://oauth.reddit.com"
	redditAuthURL = "https://www.reddit.com/api/v1/access_token"
	redditSiteURL = "https://www.reddit.com"

	defaultPostLimit = 25 // posts per listing request
)

// RedditAPI is a Reddit API client that lists new posts from a subreddit.
type RedditAPI struct {
	clientID     string
	clientSecret string
	userAgent    string
	httpClient   *http.Client
	limiter      *rate.Limiter
	log          *logrus.Logger

	baseURL string
	authURL string
	siteURL string

	mutex       sync.RWMutex
	accessToken string
	tokenExpiry time.Time
}

// redditListing is the Reddit API response structure for a listing page.
type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string `json:"title"`
				URL       string `json:"url"`
				IsSelf    bool   `json:"is_self"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewRedditAPI creates a Reddit API client. Requests are throttled to
// maxRequestsPerMinute with no burst allowance.
func NewRedditAPI(clientID, clientSecret, userAgent string, maxRequestsPerMinute int, log *logrus.Logger) *RedditAPI {
	if maxRequestsPerMinute <= 0 {
		maxRequestsPerMinute = 100
	}

	// 95% of the allowed rate for a safety buffer
	perSecond := float64(maxRequestsPerMinute) / 60.0 * 0.95

	return &RedditAPI{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(perSecond), 1),
		log:          log,
		baseURL:      redditBaseURL,
		authURL:      redditAuthURL,
		siteURL:      redditSiteURL,
	}
}

// authenticate obtains an application-only OAuth token if the cached one is
// missing or expired.
func (r *RedditAPI) authenticate(ctx context.Context) error {
	r.mutex.RLock()
	token := r.accessToken
	expiry := r.tokenExpiry
	r.mutex.RUnlock()

	if token != "" && time.Now().Before(expiry) {
		return nil
	}

	r.log.Info("Authenticating with Reddit API")

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted during authentication: %w", err)
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}

	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("auth request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var authResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	r.mutex.Lock()
	r.accessToken = authResp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(authResp.ExpiresIn) * time.Second)
	r.mutex.Unlock()

	r.log.Info("Successfully authenticated with Reddit API")
	return nil
}

// FetchPosts lists the newest posts of a subreddit, in the order the listing
// returns them. Link posts carry their comment page as a separate comments
// url; self posts link only to themselves.
func (r *RedditAPI) FetchPosts(ctx context.Context, subreddit string, limit int) ([]models.Post, error) {
	if err := r.authenticate(ctx); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = defaultPostLimit
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	endpoint := fmt.Sprintf("%s/r/%s/new.json?limit=%d&raw_json=1", r.baseURL, subreddit, limit)

	r.log.WithFields(logrus.Fields{
		"subreddit": subreddit,
		"limit":     limit,
	}).Info("Fetching posts from Reddit API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	r.mutex.RLock()
	token := r.accessToken
	r.mutex.RUnlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.log.WithFields(logrus.Fields{
			"subreddit":     subreddit,
			"status_code":   resp.StatusCode,
			"response_body": string(body),
		}).Error("Reddit API error response")
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	posts := make([]models.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		comments := ""
		if !child.Data.IsSelf {
			comments = r.siteURL + child.Data.Permalink
		}
		posts = append(posts, models.NewPost(child.Data.Title, child.Data.URL, child.Data.IsSelf, comments))
	}

	r.log.WithFields(logrus.Fields{
		"subreddit":  subreddit,
		"post_count": len(posts),
	}).Info("Fetched posts from Reddit")

	return posts, nil
}
