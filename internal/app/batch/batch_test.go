package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"douyin-scribe/internal/app/downloader"
	"douyin-scribe/internal/app/model"
	"douyin-scribe/internal/app/resolver"
	"douyin-scribe/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLocator struct {
	records map[string]model.VideoRecord
	panicOn string
}

func (f *fakeLocator) Locate(ctx context.Context, shareText string) model.VideoRecord {
	if shareText == f.panicOn {
		panic("locator blew up")
	}
	if rec, ok := f.records[shareText]; ok {
		return rec
	}
	return model.VideoRecord{ID: "unknown_0"}
}

type fakeFetcher struct {
	fetches   []string
	transfers []string
	failURLs  map[string]bool
	skip      bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, id, url, dest string, progress downloader.ProgressFunc) (bool, error) {
	f.fetches = append(f.fetches, url)
	if f.failURLs[url] {
		return false, fmt.Errorf("fetch %s: refused", url)
	}
	if err := os.WriteFile(dest, []byte("video"), 0o644); err != nil {
		return false, err
	}
	return f.skip, nil
}

func (f *fakeFetcher) Transfer(ctx context.Context, url, dest string, progress downloader.ProgressFunc) error {
	f.transfers = append(f.transfers, url)
	return os.WriteFile(dest, []byte("cover"), 0o644)
}

type fakeExtractor struct {
	skip bool
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) (bool, error) {
	return f.skip, os.WriteFile(audioPath, []byte("audio"), 0o644)
}

func (f *fakeExtractor) ConvertToMp3(ctx context.Context, inputPath, mp3Path string) error {
	return os.WriteFile(mp3Path, []byte("audio"), 0o644)
}

func (f *fakeExtractor) GetAudioDuration(ctx context.Context, path string) (int, error) {
	return 42, nil
}

type fakeRecognizer struct {
	calls int
	err   error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, audioPath string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "转写结果", nil
}

type fakeHistory struct {
	records   []model.HistoryRecord
	processed map[string]bool
}

func (f *fakeHistory) Close() error { return nil }

func (f *fakeHistory) CheckIfProcessed(videoID string) (bool, error) {
	return f.processed[videoID], nil
}
func (f *fakeHistory) Record(rec model.HistoryRecord) error {
	f.records = append(f.records, rec)
	return nil
}
func (f *fakeHistory) GetAll() ([]model.HistoryRecord, error) { return f.records, nil }

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DownloadPath = filepath.Join(dir, "video")
	cfg.AudioPath = filepath.Join(dir, "audio")
	cfg.TextPath = filepath.Join(dir, "text")
	require.NoError(t, cfg.EnsureDirs())
	return cfg
}

func newTestOrchestrator(t *testing.T, loc *fakeLocator, fetcher *fakeFetcher,
	rec *fakeRecognizer, history *fakeHistory) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(testSettings(t), loc, fetcher, &fakeExtractor{}, rec, history, zap.NewNop().Sugar())
	o.sleep = func(time.Duration) {}
	return o
}

func TestRunCountsOutcomes(t *testing.T) {
	loc := &fakeLocator{records: map[string]model.VideoRecord{
		"good": {ID: "7001", Title: "一", URLs: []string{"http://cdn/a.mp4"}},
		"bad":  {ID: "7002", Title: "二"}, // no media
	}}
	history := &fakeHistory{}
	o := newTestOrchestrator(t, loc, &fakeFetcher{}, &fakeRecognizer{}, history)

	summary := o.Run(context.Background(), []string{"good", "bad"})
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Skipped)

	require.Len(t, history.records, 2)
	assert.Equal(t, StageDone, history.records[0].Stage)
	assert.Equal(t, "转写结果", history.records[0].Transcript)
	assert.Equal(t, 1, history.records[1].HasError)
}

func TestRunIsolatesPanics(t *testing.T) {
	loc := &fakeLocator{
		panicOn: "boom",
		records: map[string]model.VideoRecord{
			"good": {ID: "7001", URLs: []string{"http://cdn/a.mp4"}},
		},
	}
	o := newTestOrchestrator(t, loc, &fakeFetcher{}, &fakeRecognizer{}, &fakeHistory{})

	summary := o.Run(context.Background(), []string{"boom", "good"})
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Success, "a panic in one item must not abort the batch")
}

func TestRunPacesBetweenItemsOnly(t *testing.T) {
	loc := &fakeLocator{records: map[string]model.VideoRecord{
		"a": {ID: "1001", URLs: []string{"http://cdn/a"}},
		"b": {ID: "1002", URLs: []string{"http://cdn/b"}},
		"c": {ID: "1003", URLs: []string{"http://cdn/c"}},
	}}
	o := newTestOrchestrator(t, loc, &fakeFetcher{}, &fakeRecognizer{}, &fakeHistory{})

	var pauses []time.Duration
	o.sleep = func(d time.Duration) { pauses = append(pauses, d) }

	o.Run(context.Background(), []string{"a", "b", "c"})
	require.Len(t, pauses, 2, "no pause before the first item")
	for _, d := range pauses {
		assert.GreaterOrEqual(t, d, paceFloor)
		assert.Less(t, d, paceFloor+paceJitter)
	}
}

func TestProcessTriesCandidateURLsInOrder(t *testing.T) {
	loc := &fakeLocator{records: map[string]model.VideoRecord{
		"v": {ID: "7001", URLs: []string{"http://cdn/dead.mp4", "http://cdn/live.mp4"}},
	}}
	fetcher := &fakeFetcher{failURLs: map[string]bool{"http://cdn/dead.mp4": true}}
	o := newTestOrchestrator(t, loc, fetcher, &fakeRecognizer{}, &fakeHistory{})

	summary := o.Run(context.Background(), []string{"v"})
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, []string{"http://cdn/dead.mp4", "http://cdn/live.mp4"}, fetcher.fetches)
}

func TestProcessSkipsEngineWhenTranscriptExists(t *testing.T) {
	loc := &fakeLocator{records: map[string]model.VideoRecord{
		"v": {ID: "7001", URLs: []string{"http://cdn/a.mp4"}},
	}}
	rec := &fakeRecognizer{}
	history := &fakeHistory{}
	o := newTestOrchestrator(t, loc, &fakeFetcher{skip: true}, rec, history)
	o.audio = &fakeExtractor{skip: true}

	require.NoError(t, os.WriteFile(o.cfg.TranscriptFile("7001"), []byte("旧文本"), 0o644))

	summary := o.Run(context.Background(), []string{"v"})
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, rec.calls, "an existing transcript must not trigger recognition")
	require.Len(t, history.records, 1)
	assert.Equal(t, StageSkipped, history.records[0].Stage)
	assert.Equal(t, "旧文本", history.records[0].Transcript)
}

func TestProcessDownloadsCover(t *testing.T) {
	loc := &fakeLocator{records: map[string]model.VideoRecord{
		"v": {ID: "7001", URLs: []string{"http://cdn/a.mp4"}, CoverURL: "http://cdn/cover.jpg"},
	}}
	fetcher := &fakeFetcher{}
	o := newTestOrchestrator(t, loc, fetcher, &fakeRecognizer{}, &fakeHistory{})

	o.Run(context.Background(), []string{"v"})
	assert.Equal(t, []string{"http://cdn/cover.jpg"}, fetcher.transfers)
}

func TestProcessRejectsGalleryPosts(t *testing.T) {
	loc := &fakeLocator{records: map[string]model.VideoRecord{
		"g": {ID: "7002", IsGallery: true, URLs: []string{"http://cdn/img.jpeg"}},
	}}
	history := &fakeHistory{}
	o := newTestOrchestrator(t, loc, &fakeFetcher{}, &fakeRecognizer{}, history)

	summary := o.Run(context.Background(), []string{"g"})
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, history.records, 1)
	assert.Contains(t, history.records[0].ErrorMessage, "gallery")
}

func TestRunLocalImportsAudioFile(t *testing.T) {
	history := &fakeHistory{}
	rec := &fakeRecognizer{}
	o := newTestOrchestrator(t, &fakeLocator{}, &fakeFetcher{}, rec, history)

	src := filepath.Join(t.TempDir(), "talk.mp3")
	require.NoError(t, os.WriteFile(src, []byte("mp3data"), 0o644))

	summary := o.RunLocal(context.Background(), []string{src}, true)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, rec.calls)
	require.Len(t, history.records, 1)
	assert.Equal(t, StageDone, history.records[0].Stage)
	assert.Equal(t, "talk.mp3", history.records[0].Title)
}

func TestRunLocalSkipsProcessedImports(t *testing.T) {
	dir := t.TempDir()
	done := filepath.Join(dir, "done.mp3")
	fresh := filepath.Join(dir, "fresh.mp3")
	require.NoError(t, os.WriteFile(done, []byte("mp3data"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("mp3data"), 0o644))

	history := &fakeHistory{processed: map[string]bool{
		resolver.LocalID(done): true,
	}}
	rec := &fakeRecognizer{}
	o := newTestOrchestrator(t, &fakeLocator{}, &fakeFetcher{}, rec, history)

	summary := o.RunLocal(context.Background(), []string{done, fresh}, true)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, rec.calls, "processed import must not reach the recognizer")
	require.Len(t, history.records, 1, "skipped import is not recorded again")
	assert.Equal(t, "fresh.mp3", history.records[0].Title)
}
