package resolver

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"douyin-scribe/internal/app/request"

	"go.uber.org/zap"
)

var (
	canonicalRe = regexp.MustCompile(`/video/(\d+)`)
	shortLinkRe = regexp.MustCompile(`https?://v\.douyin\.com/[\w\-]+`)

	// Applied against the raw share text when neither the canonical URL
	// nor the short link yields an identifier.
	fallbackRes = []*regexp.Regexp{
		regexp.MustCompile(`note/(\d+)`),
		regexp.MustCompile(`[?&]item_id=(\d+)`),
		regexp.MustCompile(`[?&]id=(\d+)`),
		regexp.MustCompile(`\b(\d{19})\b`),
	}

	digitsOnlyRe = regexp.MustCompile(`^\d+$`)
)

// UnresolvedPrefix marks identifiers synthesized when no stable identifier
// could be derived. Callers must treat such identifiers as lowest-confidence.
const UnresolvedPrefix = "unknown_"

// LocalPrefix marks identifiers synthesized for imported local files.
const LocalPrefix = "local_"

// Resolver normalizes raw share text into a canonical video identifier.
type Resolver struct {
	client *request.Client
	log    *zap.SugaredLogger
	now    func() time.Time
}

func New(client *request.Client, log *zap.SugaredLogger) *Resolver {
	return &Resolver{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Resolve derives the video identifier from share text. The second return
// value is false when the identifier was synthesized and is not stable
// across runs.
func (r *Resolver) Resolve(ctx context.Context, shareText string) (string, bool) {
	if id := extractCanonical(shareText); id != "" {
		return id, true
	}

	if short := shortLinkRe.FindString(shareText); short != "" {
		if location, err := r.followShortLink(ctx, short); err != nil {
			r.log.Warnw("short link resolution failed, falling back to pattern matching",
				"link", short, "error", err)
		} else if id := extractCanonical(location); id != "" {
			return id, true
		}
	}

	for _, re := range fallbackRes {
		if m := re.FindStringSubmatch(shareText); m != nil {
			return m[1], true
		}
	}

	id := fmt.Sprintf("%s%d", UnresolvedPrefix, r.now().Unix())
	r.log.Warnw("no identifier found in share text, synthesizing one",
		"id", id)
	return id, false
}

// IsUnresolved reports whether id was synthesized by Resolve.
func IsUnresolved(id string) bool {
	return strings.HasPrefix(id, UnresolvedPrefix)
}

// LocalID synthesizes a deterministic identifier for an imported local
// file. File names that already look like platform identifiers are used
// verbatim; anything else is hashed so re-importing the same file always
// maps to the same artifacts.
func LocalID(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if digitsOnlyRe.MatchString(name) && len(name) > 5 {
		return name
	}

	sum := md5.Sum([]byte(base))
	return LocalPrefix + hex.EncodeToString(sum[:])[:16]
}

// ShortLink returns the first short link embedded in the share text.
func ShortLink(shareText string) string {
	return shortLinkRe.FindString(shareText)
}

// CanonicalURL builds the canonical watch page URL for an identifier.
func CanonicalURL(id string) string {
	return fmt.Sprintf("https://www.douyin.com/video/%s", id)
}

func (r *Resolver) followShortLink(ctx context.Context, short string) (string, error) {
	resp, err := r.client.Head(ctx, short)
	if err != nil {
		return "", err
	}
	defer request.DrainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		location := resp.Header.Get("Location")
		if location == "" {
			return "", fmt.Errorf("redirect response without Location header")
		}
		return location, nil
	default:
		return "", fmt.Errorf("unexpected status %d following short link", resp.StatusCode)
	}
}

func extractCanonical(text string) string {
	if m := canonicalRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
