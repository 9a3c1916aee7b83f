package batch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"douyin-scribe/internal/app/downloader"
	"douyin-scribe/internal/app/model"
	"douyin-scribe/internal/app/recognizer"
	"douyin-scribe/internal/app/repository"
	"douyin-scribe/internal/app/resolver"
	"douyin-scribe/internal/config"

	"go.uber.org/zap"
)

// Pipeline stages recorded in the history table.
const (
	StageLocating    = "LOCATING"
	StageDownloading = "DOWNLOADING"
	StageExtracting  = "EXTRACTING"
	StageRecognizing = "RECOGNIZING"
	StageDone        = "DONE"
	StageSkipped     = "SKIPPED"
	StageFailed      = "FAILED"
)

// Pacing between consecutive items, so a batch does not hammer the
// upstream at machine speed.
const (
	paceFloor  = 1 * time.Second
	paceJitter = 2 * time.Second
)

// VideoLocator resolves a share text into video metadata and media URLs.
type VideoLocator interface {
	Locate(ctx context.Context, shareText string) model.VideoRecord
}

// Fetcher is the download surface the orchestrator needs.
type Fetcher interface {
	Fetch(ctx context.Context, id, url, dest string, progress downloader.ProgressFunc) (bool, error)
	Transfer(ctx context.Context, url, dest string, progress downloader.ProgressFunc) error
}

// AudioExtractor is the ffmpeg surface the orchestrator needs.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) (bool, error)
	ConvertToMp3(ctx context.Context, inputPath, mp3Path string) error
	GetAudioDuration(ctx context.Context, path string) (int, error)
}

// Summary is the per-batch accounting returned by Run.
type Summary struct {
	Total   int
	Success int
	Skipped int
	Failed  int
	Elapsed time.Duration
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Orchestrator drives each share text through locate, download, extract
// and recognize. Items are isolated: one failure never aborts the batch.
type Orchestrator struct {
	cfg     *config.Settings
	locator VideoLocator
	fetcher Fetcher
	audio   AudioExtractor
	rec     recognizer.Recognizer
	history repository.HistoryDAO
	log     *zap.SugaredLogger

	progress *ProgressManager
	sleep    func(time.Duration)
	pace     func() time.Duration
}

func NewOrchestrator(cfg *config.Settings, loc VideoLocator, fetcher Fetcher, audio AudioExtractor,
	rec recognizer.Recognizer, history repository.HistoryDAO, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		locator:  loc,
		fetcher:  fetcher,
		audio:    audio,
		rec:      rec,
		history:  history,
		log:      log,
		progress: NewProgressManager(IsTTY(os.Stderr), nil),
		sleep:    time.Sleep,
		pace: func() time.Duration {
			return paceFloor + time.Duration(rand.Int63n(int64(paceJitter)))
		},
	}
}

// Run processes every share text and returns the batch accounting.
func (o *Orchestrator) Run(ctx context.Context, shareTexts []string) Summary {
	start := time.Now()
	summary := Summary{Total: len(shareTexts)}

	bar := o.progress.CreateBar(len(shareTexts), "Processing videos")
	for i, text := range shareTexts {
		if i > 0 {
			o.sleep(o.pace())
		}
		if ctx.Err() != nil {
			summary.Failed += len(shareTexts) - i
			break
		}

		switch o.safeProcess(ctx, text) {
		case outcomeSuccess:
			summary.Success++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
		bar.Increment()
	}
	o.progress.Wait()

	summary.Elapsed = time.Since(start).Round(time.Millisecond)
	o.log.Infow("batch finished",
		"total", summary.Total, "success", summary.Success,
		"skipped", summary.Skipped, "failed", summary.Failed,
		"elapsed", summary.Elapsed)
	return summary
}

// safeProcess contains one item's panic blast radius.
func (o *Orchestrator) safeProcess(ctx context.Context, shareText string) (result outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorw("panic while processing item", "input", shareText, "panic", r)
			result = outcomeFailed
		}
	}()
	return o.processOne(ctx, shareText)
}

func (o *Orchestrator) processOne(ctx context.Context, shareText string) outcome {
	record := o.locator.Locate(ctx, shareText)
	log := o.log.With("id", record.ID)

	if record.IsGallery {
		o.fail(record, StageLocating, "gallery post has no video track")
		return outcomeFailed
	}
	if !record.HasMedia() {
		o.fail(record, StageLocating, "no playable media found")
		return outcomeFailed
	}

	videoPath := o.cfg.VideoFile(record.ID)
	downloadSkipped, err := o.download(ctx, record, videoPath)
	if err != nil {
		log.Errorw("download failed", "error", err)
		o.fail(record, StageDownloading, err.Error())
		return outcomeFailed
	}

	o.downloadCover(ctx, record, log)

	allSkipped := downloadSkipped

	var duration int
	if o.cfg.DownloadAudio || o.cfg.ExtractText {
		audioPath := o.cfg.AudioFile(record.ID)
		audioSkipped, err := o.audio.ExtractAudio(ctx, videoPath, audioPath)
		if err != nil {
			log.Errorw("audio extraction failed", "error", err)
			o.fail(record, StageExtracting, err.Error())
			return outcomeFailed
		}
		allSkipped = allSkipped && audioSkipped

		if duration, err = o.audio.GetAudioDuration(ctx, audioPath); err != nil {
			log.Warnw("could not determine audio duration", "error", err)
		}
	}

	var transcript string
	if o.cfg.ExtractText {
		text, skipped, err := o.transcribe(ctx, record.ID, log)
		if err != nil {
			o.fail(record, StageRecognizing, err.Error())
			return outcomeFailed
		}
		transcript = text
		allSkipped = allSkipped && skipped
	}

	stage := StageDone
	result := outcomeSuccess
	if allSkipped {
		stage = StageSkipped
		result = outcomeSkipped
	}

	o.record(model.HistoryRecord{
		VideoID:       record.ID,
		Title:         record.Title,
		Author:        record.Author,
		Stage:         stage,
		AudioDuration: duration,
		Transcript:    transcript,
		ProcessedAt:   time.Now(),
	})
	log.Infow("item finished", "stage", stage)
	return result
}

// download walks the candidate URLs until one transfers.
func (o *Orchestrator) download(ctx context.Context, record model.VideoRecord, videoPath string) (skipped bool, err error) {
	for _, url := range record.URLs {
		skipped, err = o.fetcher.Fetch(ctx, record.ID, url, videoPath, nil)
		if err == nil {
			return skipped, nil
		}
		o.log.Warnw("candidate URL failed", "id", record.ID, "url", url, "error", err)
	}
	return false, fmt.Errorf("all %d candidate URLs failed: %w", len(record.URLs), err)
}

// downloadCover is best-effort: a missing cover never fails the item.
func (o *Orchestrator) downloadCover(ctx context.Context, record model.VideoRecord, log *zap.SugaredLogger) {
	if !o.cfg.DownloadCover || record.CoverURL == "" {
		return
	}
	coverPath := o.cfg.CoverFile(record.ID)
	if _, err := os.Stat(coverPath); err == nil {
		return
	}
	if err := o.fetcher.Transfer(ctx, record.CoverURL, coverPath, nil); err != nil {
		log.Warnw("cover download failed", "error", err)
	}
}

// transcribe reuses an existing transcript file; the engine only runs when
// no prior text exists.
func (o *Orchestrator) transcribe(ctx context.Context, id string, log *zap.SugaredLogger) (text string, skipped bool, err error) {
	transcriptPath := o.cfg.TranscriptFile(id)
	if data, err := os.ReadFile(transcriptPath); err == nil && len(data) > 0 {
		log.Infow("transcript already exists", "path", transcriptPath)
		return string(data), true, nil
	}

	text, err = o.rec.Recognize(ctx, o.cfg.AudioFile(id))
	if err != nil {
		log.Errorw("recognition failed", "error", err)
		return "", false, err
	}

	if err := os.WriteFile(transcriptPath, []byte(text), 0o644); err != nil {
		return "", false, fmt.Errorf("write transcript: %w", err)
	}
	return text, false, nil
}

// RunLocal imports files that were never downloaded: videos are transcoded
// to mp3 first, audio files go straight to recognition.
func (o *Orchestrator) RunLocal(ctx context.Context, paths []string, isAudio bool) Summary {
	start := time.Now()
	summary := Summary{Total: len(paths)}

	bar := o.progress.CreateBar(len(paths), "Importing files")
	for _, path := range paths {
		skipped, err := o.importOne(ctx, path, isAudio)
		switch {
		case err != nil:
			o.log.Errorw("import failed", "path", path, "error", err)
			summary.Failed++
		case skipped:
			summary.Skipped++
		default:
			summary.Success++
		}
		bar.Increment()
	}
	o.progress.Wait()

	summary.Elapsed = time.Since(start).Round(time.Millisecond)
	o.log.Infow("import finished",
		"total", summary.Total, "success", summary.Success,
		"skipped", summary.Skipped, "failed", summary.Failed,
		"elapsed", summary.Elapsed)
	return summary
}

func (o *Orchestrator) importOne(ctx context.Context, path string, isAudio bool) (skipped bool, err error) {
	id := resolver.LocalID(path)
	if o.history != nil {
		done, err := o.history.CheckIfProcessed(id)
		if err != nil {
			o.log.Warnw("could not check history", "id", id, "error", err)
		} else if done {
			o.log.Infow("already processed, skipping", "id", id, "path", path)
			return true, nil
		}
	}
	audioPath := o.cfg.AudioFile(id)

	if isAudio && strings.EqualFold(filepath.Ext(path), ".mp3") {
		if err := copyFile(path, audioPath); err != nil {
			return false, err
		}
	} else if err := o.audio.ConvertToMp3(ctx, path, audioPath); err != nil {
		o.fail(model.VideoRecord{ID: id, Title: filepath.Base(path)}, StageExtracting, err.Error())
		return false, err
	}

	duration, err := o.audio.GetAudioDuration(ctx, audioPath)
	if err != nil {
		o.log.Warnw("could not determine audio duration", "id", id, "error", err)
	}

	log := o.log.With("id", id)
	transcript, _, err := o.transcribe(ctx, id, log)
	if err != nil {
		o.fail(model.VideoRecord{ID: id, Title: filepath.Base(path)}, StageRecognizing, err.Error())
		return false, err
	}

	o.record(model.HistoryRecord{
		VideoID:       id,
		Title:         filepath.Base(path),
		Stage:         StageDone,
		AudioDuration: duration,
		Transcript:    transcript,
		ProcessedAt:   time.Now(),
	})
	return false, nil
}

func (o *Orchestrator) fail(record model.VideoRecord, stage, message string) {
	o.record(model.HistoryRecord{
		VideoID:      record.ID,
		Title:        record.Title,
		Author:       record.Author,
		Stage:        stage,
		ProcessedAt:  time.Now(),
		HasError:     1,
		ErrorMessage: message,
	})
}

// record is best-effort; history is bookkeeping, not pipeline state.
func (o *Orchestrator) record(rec model.HistoryRecord) {
	if o.history == nil {
		return
	}
	if err := o.history.Record(rec); err != nil {
		o.log.Warnw("could not record history", "id", rec.VideoID, "error", err)
	}
}

func copyFile(src, dst string) error {
	if src == dst {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
