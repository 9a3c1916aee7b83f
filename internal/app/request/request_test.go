package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestDoDecoratesRequests(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c := New(
		WithCookie("sessionid=abc"),
		WithTimeout(5*time.Second),
		WithRateLimit(rate.Inf, 1),
	)

	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	DrainAndClose(resp.Body)

	assert.Contains(t, got.Get("User-Agent"), "Chrome")
	assert.Equal(t, "https://www.douyin.com/", got.Get("Referer"))
	assert.Equal(t, "sessionid=abc", got.Get("Cookie"))
	assert.Equal(t, "sessionid=abc", c.Cookie())
}

func TestClientDoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	c := New(WithRateLimit(rate.Inf, 1))
	resp, err := c.Head(context.Background(), srv.URL)
	require.NoError(t, err)
	defer DrainAndClose(resp.Body)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/elsewhere", resp.Header.Get("Location"))
}
