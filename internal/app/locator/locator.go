package locator

import (
	"context"
	"strings"

	"douyin-scribe/internal/app/model"
	"douyin-scribe/internal/app/resolver"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// preferredCDN hosts the un-watermarked renditions; URLs on it are tried
// before anything else.
const preferredCDN = "douyinvod.com"

// Query carries everything a strategy may need: the resolved identifier
// and the raw share text it came from.
type Query struct {
	ID        string
	ShareText string
}

// strategy is one independent technique for discovering a playable media
// URL. Strategies may return a record without URLs when they could still
// scrape title or author.
type strategy interface {
	name() string
	locate(ctx context.Context, q Query) (*model.VideoRecord, error)
}

// Locator discovers candidate media URLs for a resolved identifier, trying
// strategies in a fixed priority order and short-circuiting at the first
// one that yields a usable URL.
type Locator struct {
	resolver   *resolver.Resolver
	strategies []strategy
	log        *zap.SugaredLogger
}

func New(res *resolver.Resolver, log *zap.SugaredLogger, strategies ...strategy) *Locator {
	return &Locator{
		resolver:   res,
		strategies: strategies,
		log:        log,
	}
}

// Locate resolves the share text and walks the strategy chain. It never
// returns an error: exhausted strategies yield a record with an empty URL
// list and whatever metadata was scraped along the way.
func (l *Locator) Locate(ctx context.Context, shareText string) model.VideoRecord {
	id, resolved := l.resolver.Resolve(ctx, shareText)

	record := model.VideoRecord{ID: id}
	if !resolved {
		// Unresolved identifiers cannot be looked up anywhere; return
		// the best-effort record so callers can tally the failure.
		record.Title = extractShareTitle(shareText)
		return record
	}

	query := Query{ID: id, ShareText: shareText}
	for _, s := range l.strategies {
		found, err := s.locate(ctx, query)
		if err != nil {
			l.log.Warnw("locator strategy failed",
				"strategy", s.name(), "id", id, "error", err)
			continue
		}
		if found == nil {
			continue
		}

		mergeMetadata(&record, found)
		if found.HasMedia() {
			record.URLs = orderCandidates(found.URLs)
			l.log.Infow("media located",
				"strategy", s.name(), "id", id, "candidates", len(record.URLs))
			return record
		}
	}

	if record.Title == "" {
		record.Title = extractShareTitle(shareText)
	}
	l.log.Warnw("all locator strategies exhausted", "id", id)
	return record
}

// orderCandidates drops empty and non-http entries, moves preferred-CDN
// URLs to the front and removes duplicates preserving first-seen order.
func orderCandidates(urls []string) []string {
	urls = lo.Filter(urls, func(u string, _ int) bool {
		return strings.HasPrefix(u, "http")
	})
	urls = lo.Uniq(urls)

	preferred := lo.Filter(urls, func(u string, _ int) bool {
		return strings.Contains(u, preferredCDN)
	})
	others := lo.Filter(urls, func(u string, _ int) bool {
		return !strings.Contains(u, preferredCDN)
	})
	return append(preferred, others...)
}

func mergeMetadata(dst *model.VideoRecord, src *model.VideoRecord) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Author == "" {
		dst.Author = src.Author
	}
	if dst.CoverURL == "" {
		dst.CoverURL = src.CoverURL
	}
	if src.IsGallery {
		dst.IsGallery = true
	}
}

// extractShareTitle pulls the 【title】 fragment share texts usually carry.
func extractShareTitle(shareText string) string {
	start := strings.Index(shareText, "【")
	end := strings.Index(shareText, "】")
	if start >= 0 && end > start {
		return shareText[start+len("【") : end]
	}
	return ""
}

func recordFromDetail(detail *model.AwemeDetail) *model.VideoRecord {
	return &model.VideoRecord{
		ID:        detail.AwemeID,
		Title:     detail.Desc,
		Author:    detail.Author.Nickname,
		URLs:      detail.CandidateURLs(),
		CoverURL:  detail.CoverURL(),
		IsGallery: len(detail.Images) > 0,
	}
}
