package request

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36"

// Client wraps http.Client with the platform request headers and a shared
// rate limiter so resolver, locator and downloader cannot burst the
// upstream together.
type Client struct {
	http    *http.Client
	cookie  string
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithCookie attaches the platform cookie to every request.
func WithCookie(cookie string) Option {
	return func(c *Client) { c.cookie = cookie }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit overrides the request pacing.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// New returns a Client that never follows redirects automatically; the
// resolver and locator handle Location headers themselves.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes req after waiting on the rate limiter and decorating it with
// the platform headers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	c.decorate(req)
	return c.http.Do(req)
}

// Head issues a HEAD request without following redirects.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Get issues a GET request without following redirects.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Cookie returns the configured platform cookie.
func (c *Client) Cookie() string {
	return c.cookie
}

func (c *Client) decorate(req *http.Request) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if req.Header.Get("Referer") == "" {
		req.Header.Set("Referer", "https://www.douyin.com/")
	}
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
}

// DrainAndClose discards the remainder of a response body so the underlying
// connection can be reused.
func DrainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
