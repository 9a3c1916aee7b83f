package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"douyin-scribe/internal/app/model"
	"douyin-scribe/internal/app/request"
	"douyin-scribe/internal/app/resolver"

	"go.uber.org/zap"
)

// DefaultAPIEndpoint is the third-party aggregation service that resolves
// share URLs into detail payloads.
const DefaultAPIEndpoint = "https://api.douyin.wtf/api/hybrid/video_data"

const (
	apiSuccessCode = 200
	apiAttempts    = 3
	apiRetryPause  = time.Second
)

// apiEnvelope is the aggregation endpoint response wrapper.
type apiEnvelope struct {
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Data    *model.AwemeDetail `json:"data"`
}

// APIStrategy queries the third-party aggregation endpoint with the
// canonical share URL. It is the cheapest and most reliable path when the
// service is up, so it runs first.
type APIStrategy struct {
	endpoint string
	client   *request.Client
	log      *zap.SugaredLogger
	sleep    func(time.Duration)
}

func NewAPIStrategy(endpoint string, client *request.Client, log *zap.SugaredLogger) *APIStrategy {
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}
	return &APIStrategy{
		endpoint: endpoint,
		client:   client,
		log:      log,
		sleep:    time.Sleep,
	}
}

func (s *APIStrategy) name() string { return "api" }

func (s *APIStrategy) locate(ctx context.Context, q Query) (*model.VideoRecord, error) {
	target := fmt.Sprintf("%s?url=%s&minimal=false",
		s.endpoint, url.QueryEscape(resolver.CanonicalURL(q.ID)))

	var lastErr error
	for attempt := 1; attempt <= apiAttempts; attempt++ {
		if attempt > 1 {
			s.sleep(apiRetryPause)
		}

		detail, err := s.fetch(ctx, target)
		if err != nil {
			lastErr = err
			s.log.Debugw("aggregation API attempt failed",
				"attempt", attempt, "id", q.ID, "error", err)
			continue
		}
		return recordFromDetail(detail), nil
	}
	return nil, fmt.Errorf("aggregation API failed after %d attempts: %w", apiAttempts, lastErr)
}

func (s *APIStrategy) fetch(ctx context.Context, target string) (*model.AwemeDetail, error) {
	resp, err := s.client.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Code != apiSuccessCode || envelope.Data == nil {
		return nil, fmt.Errorf("aggregation API returned code=%d message=%q",
			envelope.Code, envelope.Message)
	}
	return envelope.Data, nil
}
