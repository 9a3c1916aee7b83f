package openai

import (
	"context"
	"fmt"

	"douyin-scribe/internal/config"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Transcriber calls the hosted transcription API.
type Transcriber struct {
	model string
	log   *zap.SugaredLogger

	client *openai.Client
}

func New(model string, log *zap.SugaredLogger) *Transcriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{model: model, log: log}
}

func (t *Transcriber) Recognize(ctx context.Context, audioPath string) (string, error) {
	if t.client == nil {
		key := config.OpenAIAPIKey()
		if key == "" {
			return "", fmt.Errorf("OPENAI_API_KEY not set")
		}
		t.client = openai.NewClient(key)
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("createTranscription failed: %w", err)
	}
	return resp.Text, nil
}
