package paddlespeech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"douyin-scribe/internal/app/audio"

	"go.uber.org/zap"
)

const (
	pollInterval = 3 * time.Second
	maxPolls     = 30
)

// Transcriber submits audio to a paddlespeech server and polls for the
// result. The server processes asynchronously; a submission returns a task
// id and the transcript arrives on a later poll.
type Transcriber struct {
	serverURL string
	model     string
	http      *http.Client
	proc      *audio.Processor
	log       *zap.SugaredLogger
	sleep     func(time.Duration)
}

func New(serverURL, model string, proc *audio.Processor, log *zap.SugaredLogger) *Transcriber {
	return &Transcriber{
		serverURL: strings.TrimRight(serverURL, "/"),
		model:     model,
		http:      &http.Client{Timeout: 30 * time.Second},
		proc:      proc,
		log:       log,
		sleep:     time.Sleep,
	}
}

type submitRequest struct {
	Audio  string `json:"audio"`
	Format string `json:"audio_format"`
	Model  string `json:"model"`
	Lang   string `json:"lang"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

type queryResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
	Error  string `json:"error"`
}

func (t *Transcriber) Recognize(ctx context.Context, audioPath string) (string, error) {
	if t.serverURL == "" {
		return "", fmt.Errorf("paddlespeech server_url not configured")
	}

	wavPath, err := t.proc.ConvertTo16kHzWav(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("prepare audio for recognition: %w", err)
	}

	taskID, err := t.submit(ctx, wavPath)
	if err != nil {
		return "", err
	}
	t.log.Infow("recognition task submitted", "task_id", taskID)

	for poll := 0; poll < maxPolls; poll++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		t.sleep(pollInterval)

		result, done, err := t.query(ctx, taskID)
		if err != nil {
			return "", err
		}
		if done {
			return result, nil
		}
	}
	return "", fmt.Errorf("recognition task %s did not finish within %d polls", taskID, maxPolls)
}

func (t *Transcriber) submit(ctx context.Context, wavPath string) (string, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	body, err := json.Marshal(submitRequest{
		Audio:  base64.StdEncoding.EncodeToString(data),
		Format: "wav",
		Model:  t.model,
		Lang:   "zh_cn",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.serverURL+"/asr/submit", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit recognition task: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit recognition task: status %d", resp.StatusCode)
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if submitted.TaskID == "" {
		return "", fmt.Errorf("server returned no task id")
	}
	return submitted.TaskID, nil
}

func (t *Transcriber) query(ctx context.Context, taskID string) (result string, done bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/asr/query?task_id=%s", t.serverURL, taskID), nil)
	if err != nil {
		return "", false, err
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("poll recognition task: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("poll recognition task: status %d", resp.StatusCode)
	}

	var state queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return "", false, fmt.Errorf("decode poll response: %w", err)
	}

	switch state.Status {
	case "success":
		return strings.TrimSpace(state.Result), true, nil
	case "failed":
		return "", false, fmt.Errorf("recognition task failed: %s", state.Error)
	default:
		return "", false, nil
	}
}
