package paddlespeech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"douyin-scribe/internal/app/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testWav returns an mp3 path whose 16kHz rendition already exists so the
// conversion step short-circuits without running ffmpeg.
func testWav(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "talk.mp3")
	require.NoError(t, os.WriteFile(path, []byte("mp3data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "talk_16khz.wav"), []byte("RIFFdata"), 0o644))
	return path
}

func newTestTranscriber(t *testing.T, serverURL string) *Transcriber {
	t.Helper()
	tr := New(serverURL, "conformer_wenetspeech", audio.NewProcessor("ffmpeg", zap.NewNop().Sugar()), zap.NewNop().Sugar())
	tr.sleep = func(time.Duration) {}
	return tr
}

func TestRecognizePollsUntilSuccess(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/asr/submit":
			var req submitRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.NotEmpty(t, req.Audio)
			assert.Equal(t, "wav", req.Format)
			assert.Equal(t, "conformer_wenetspeech", req.Model)
			json.NewEncoder(w).Encode(submitResponse{TaskID: "task-1"})
		case "/asr/query":
			assert.Equal(t, "task-1", r.URL.Query().Get("task_id"))
			if atomic.AddInt32(&polls, 1) < 3 {
				json.NewEncoder(w).Encode(queryResponse{Status: "running"})
				return
			}
			json.NewEncoder(w).Encode(queryResponse{Status: "success", Result: " 你好世界 "})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	tr := newTestTranscriber(t, srv.URL)
	text, err := tr.Recognize(context.Background(), testWav(t))
	require.NoError(t, err)
	assert.Equal(t, "你好世界", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))
}

func TestRecognizeReportsTaskFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/asr/submit":
			json.NewEncoder(w).Encode(submitResponse{TaskID: "task-2"})
		case "/asr/query":
			json.NewEncoder(w).Encode(queryResponse{Status: "failed", Error: "decode error"})
		}
	}))
	defer srv.Close()

	tr := newTestTranscriber(t, srv.URL)
	_, err := tr.Recognize(context.Background(), testWav(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode error")
}

func TestRecognizeGivesUpAfterPollBudget(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/asr/submit":
			json.NewEncoder(w).Encode(submitResponse{TaskID: "task-3"})
		case "/asr/query":
			atomic.AddInt32(&polls, 1)
			json.NewEncoder(w).Encode(queryResponse{Status: "running"})
		}
	}))
	defer srv.Close()

	tr := newTestTranscriber(t, srv.URL)
	_, err := tr.Recognize(context.Background(), testWav(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not finish")
	assert.Equal(t, int32(maxPolls), atomic.LoadInt32(&polls))
}

func TestRecognizeRequiresServerURL(t *testing.T) {
	tr := newTestTranscriber(t, "")
	_, err := tr.Recognize(context.Background(), testWav(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_url")
}
