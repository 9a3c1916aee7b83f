package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"douyin-scribe/internal/app/model"
	"douyin-scribe/internal/app/request"
	"douyin-scribe/internal/app/resolver"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// detailEndpoint is the direct platform detail API used once the redirect
// chase has confirmed the identifier.
const detailEndpoint = "https://www.douyin.com/aweme/v1/web/aweme/detail/?aweme_id=%s"

var (
	metaRefreshURLRe = regexp.MustCompile(`url=([^'"\s>]+)`)
	embeddedVideoRe  = regexp.MustCompile(`/video/(\d+)`)
)

// RedirectStrategy chases the short link by hand: a HEAD without following
// redirects, then a GET whose body is scanned for a meta-refresh tag or an
// embedded video path. The confirmed identifier is fed to the direct
// platform detail endpoint.
type RedirectStrategy struct {
	client *request.Client
	log    *zap.SugaredLogger
}

func NewRedirectStrategy(client *request.Client, log *zap.SugaredLogger) *RedirectStrategy {
	return &RedirectStrategy{client: client, log: log}
}

func (s *RedirectStrategy) name() string { return "redirect" }

func (s *RedirectStrategy) locate(ctx context.Context, q Query) (*model.VideoRecord, error) {
	id := q.ID
	if short := resolver.ShortLink(q.ShareText); short != "" {
		if chased, err := s.chase(ctx, short); err != nil {
			s.log.Debugw("redirect chase failed, using resolved identifier",
				"link", short, "error", err)
		} else if chased != "" {
			id = chased
		}
	}

	return s.fetchDetail(ctx, id)
}

// chase returns the identifier confirmed by the redirect target, or empty
// when the target did not contain one.
func (s *RedirectStrategy) chase(ctx context.Context, short string) (string, error) {
	resp, err := s.client.Head(ctx, short)
	if err != nil {
		return "", err
	}
	location := resp.Header.Get("Location")
	request.DrainAndClose(resp.Body)

	if location != "" {
		if m := embeddedVideoRe.FindStringSubmatch(location); m != nil {
			return m[1], nil
		}
		return "", nil
	}

	// No Location header: fetch the body and look for a meta refresh or
	// an embedded video path.
	getResp, err := s.client.Get(ctx, short)
	if err != nil {
		return "", err
	}
	defer getResp.Body.Close()

	if getResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("short link GET returned %d", getResp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(getResp.Body, 4<<20))
	if err != nil {
		return "", err
	}

	if target := metaRefreshTarget(body); target != "" {
		if m := embeddedVideoRe.FindStringSubmatch(target); m != nil {
			return m[1], nil
		}
	}
	if m := embeddedVideoRe.FindSubmatch(body); m != nil {
		return string(m[1]), nil
	}
	return "", nil
}

func (s *RedirectStrategy) fetchDetail(ctx context.Context, id string) (*model.VideoRecord, error) {
	resp, err := s.client.Get(ctx, fmt.Sprintf(detailEndpoint, id))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detail endpoint returned %d", resp.StatusCode)
	}

	var detail model.DetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("decode detail response: %w", err)
	}
	if detail.StatusCode != 0 || detail.AwemeDetail == nil {
		return nil, fmt.Errorf("detail endpoint returned status_code=%d", detail.StatusCode)
	}
	return recordFromDetail(detail.AwemeDetail), nil
}

// metaRefreshTarget extracts the redirect URL from a meta refresh tag.
func metaRefreshTarget(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	var target string
	doc.Find(`meta[http-equiv]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if equiv, _ := sel.Attr("http-equiv"); !strings.EqualFold(equiv, "refresh") {
			return true
		}
		content, _ := sel.Attr("content")
		if m := metaRefreshURLRe.FindStringSubmatch(content); m != nil {
			target = m[1]
			return false
		}
		return true
	})
	return target
}
