package locator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"douyin-scribe/internal/app/model"
	"douyin-scribe/internal/app/resolver"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	browserWaitBudget = 20 * time.Second
	playButtonPause   = 2 * time.Second
	playSelector      = `.xgplayer-play, .xgplayer-start`
)

var (
	cdnDomains      = []string{"douyinvod.com", ".amemv.com", "douyin"}
	mediaExtensions = []string{".mp4", ".flv", ".webm"}
)

// BrowserStrategy loads the watch page in a headless browser and watches
// the network stream for either the internal detail API response or an
// in-flight media request. It is the most expensive strategy and runs last.
type BrowserStrategy struct {
	cookie   string
	headless bool
	budget   time.Duration
	log      *zap.SugaredLogger
}

func NewBrowserStrategy(cookie string, log *zap.SugaredLogger) *BrowserStrategy {
	return &BrowserStrategy{
		cookie:   cookie,
		headless: true,
		budget:   browserWaitBudget,
		log:      log,
	}
}

func (s *BrowserStrategy) name() string { return "browser" }

func (s *BrowserStrategy) locate(ctx context.Context, q Query) (*model.VideoRecord, error) {
	pageURL := resolver.CanonicalURL(q.ID)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// The listener lives and dies with the tab context; cancelling it
	// tears everything down, nothing can outlive the page.
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	detailCh := make(chan *model.AwemeDetail, 1)
	mediaCh := make(chan string, 8)

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}

		url := resp.Response.URL
		switch {
		case strings.Contains(url, "aweme/detail"):
			// Response bodies can only be pulled once loading settles,
			// and never from inside the event handler itself.
			go s.captureDetail(tabCtx, resp.RequestID, detailCh)
		case isMediaURL(url) && strings.Contains(strings.ToLower(resp.Response.MimeType), "video"):
			select {
			case mediaCh <- url:
			default:
			}
		}
	})

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		s.cookieAction(),
		chromedp.Navigate(pageURL),
	); err != nil {
		return nil, err
	}

	record := &model.VideoRecord{ID: q.ID}
	deadline := time.After(s.budget)
	playClicked := false

	for {
		select {
		case detail := <-detailCh:
			merged := recordFromDetail(detail)
			merged.URLs = append(merged.URLs, record.URLs...)
			s.scrapePageText(tabCtx, merged)
			return merged, nil

		case url := <-mediaCh:
			record.URLs = append(record.URLs, url)

		case <-time.After(playButtonPause):
			if len(record.URLs) > 0 {
				// Media started flowing; drain a little longer, then
				// settle for what we have.
				s.scrapePageText(tabCtx, record)
				return record, nil
			}
			if !playClicked {
				playClicked = true
				s.clickPlay(tabCtx)
			}

		case <-deadline:
			if len(record.URLs) == 0 {
				if src := s.videoElementSrc(tabCtx); src != "" {
					record.URLs = append(record.URLs, src)
				}
			}
			s.scrapePageText(tabCtx, record)
			return record, nil

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *BrowserStrategy) captureDetail(tabCtx context.Context, id network.RequestID, out chan<- *model.AwemeDetail) {
	c := chromedp.FromContext(tabCtx)
	body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(tabCtx, c.Target))
	if err != nil {
		return
	}

	var detail model.DetailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		return
	}
	if detail.StatusCode != 0 || detail.AwemeDetail == nil {
		return
	}

	select {
	case out <- detail.AwemeDetail:
		s.log.Debugw("intercepted detail payload", "id", detail.AwemeDetail.AwemeID)
	default:
	}
}

func (s *BrowserStrategy) cookieAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if s.cookie == "" {
			return nil
		}
		for _, pair := range strings.Split(s.cookie, ";") {
			name, value, found := strings.Cut(strings.TrimSpace(pair), "=")
			if !found || name == "" {
				continue
			}
			err := network.SetCookie(name, value).
				WithDomain(".douyin.com").
				WithPath("/").
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// clickPlay pokes the player to trigger lazy-loaded media. A missing play
// button is not an error.
func (s *BrowserStrategy) clickPlay(tabCtx context.Context) {
	clickCtx, cancel := context.WithTimeout(tabCtx, 3*time.Second)
	defer cancel()

	if err := chromedp.Run(clickCtx,
		chromedp.Click(playSelector, chromedp.ByQuery, chromedp.NodeVisible),
	); err == nil {
		s.log.Debug("clicked play button to trigger media load")
	}
}

func (s *BrowserStrategy) videoElementSrc(tabCtx context.Context) string {
	srcCtx, cancel := context.WithTimeout(tabCtx, 3*time.Second)
	defer cancel()

	var src string
	var ok bool
	if err := chromedp.Run(srcCtx,
		chromedp.AttributeValue("video", "src", &src, &ok, chromedp.ByQuery),
	); err != nil || !ok || !strings.HasPrefix(src, "http") {
		return ""
	}
	return src
}

// scrapePageText backfills title and author from the page DOM when the
// intercepted payloads did not carry them.
func (s *BrowserStrategy) scrapePageText(tabCtx context.Context, record *model.VideoRecord) {
	textCtx, cancel := context.WithTimeout(tabCtx, 3*time.Second)
	defer cancel()

	if record.Title == "" {
		var title string
		if err := chromedp.Run(textCtx,
			chromedp.Text(`.video-info-detail .title, .title-wrap .title`, &title, chromedp.ByQuery, chromedp.AtLeast(0)),
		); err == nil {
			record.Title = strings.TrimSpace(title)
		}
	}
	if record.Author == "" {
		var author string
		if err := chromedp.Run(textCtx,
			chromedp.Text(`.author-name, .info-wrap .nickname`, &author, chromedp.ByQuery, chromedp.AtLeast(0)),
		); err == nil {
			record.Author = strings.TrimSpace(author)
		}
	}
}

// isMediaURL matches known CDN hosts or bare media extensions; CDN URLs
// often carry no extension, so either signal is enough alongside the
// MIME type check.
func isMediaURL(url string) bool {
	for _, domain := range cdnDomains {
		if strings.Contains(url, domain) {
			return true
		}
	}
	for _, ext := range mediaExtensions {
		if strings.Contains(url, ext) {
			return true
		}
	}
	return false
}
