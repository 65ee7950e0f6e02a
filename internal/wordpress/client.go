// Package wordpress fetches workout posts from the blog's WordPress REST API.
package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonesrussell/wod-ingestor/internal/logger"
	"github.com/jonesrussell/wod-ingestor/internal/models"
)

// totalHeader is the WordPress REST header carrying the total result count.
const totalHeader = "X-WP-Total"

// browserHeaders mimic a desktop browser; the origin runs Mod_Security rules
// that reject bare API clients.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/html, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Connection":      "keep-alive",
}

// Options configures a Client.
type Options struct {
	URL      string // full posts endpoint, may already carry query params
	Username string // optional basic-auth credentials
	Password string
	Timeout  time.Duration
}

// Client is the WordPress REST API client.
type Client struct {
	apiURL   string
	username string
	password string
	client   *http.Client
	logger   logger.Logger
}

// NewClient creates a WordPress client.
func NewClient(opts Options, log logger.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiURL:   opts.URL,
		username: opts.Username,
		password: opts.Password,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

// GetPosts fetches one page of posts.
func (c *Client) GetPosts(ctx context.Context, perPage, page int) ([]models.RawPost, error) {
	reqURL, err := c.pageURL(perPage, page)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.decorate(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wordpress api returned status %d", resp.StatusCode)
	}

	var posts []models.RawPost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	c.logger.Info("fetched posts from wordpress api",
		logger.Int("count", len(posts)),
		logger.Int("page", page),
		logger.Duration("duration", time.Since(start)),
	)
	return posts, nil
}

// TotalPages issues a HEAD request and derives the page count from the
// X-WP-Total header.
func (c *Client) TotalPages(ctx context.Context, perPage int) (int, error) {
	if perPage <= 0 {
		perPage = 1
	}

	reqURL, err := c.pageURL(perPage, 1)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, reqURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("head posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("wordpress api returned status %d", resp.StatusCode)
	}

	total, err := strconv.Atoi(resp.Header.Get(totalHeader))
	if err != nil {
		return 0, fmt.Errorf("parse %s header: %w", totalHeader, err)
	}

	pages := (total + perPage - 1) / perPage
	return pages, nil
}

// pageURL merges pagination params into the configured endpoint, which may
// already carry a query string (category filters and the like).
func (c *Client) pageURL(perPage, page int) (string, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}

	q := u.Query()
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) decorate(req *http.Request) {
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}
