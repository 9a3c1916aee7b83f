package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// minAudioSize is the size below which an existing audio file is treated
// as a broken leftover and re-extracted.
const minAudioSize = 10 * 1024

// Processor runs the ffmpeg/ffprobe pair configured in the settings.
type Processor struct {
	ffmpegPath string
	log        *zap.SugaredLogger
}

func NewProcessor(ffmpegPath string, log *zap.SugaredLogger) *Processor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Processor{ffmpegPath: ffmpegPath, log: log}
}

// ffprobePath derives the probe binary from the configured ffmpeg location
// so both tools come from the same installation.
func (p *Processor) ffprobePath() string {
	dir := filepath.Dir(p.ffmpegPath)
	if dir == "." {
		return "ffprobe"
	}
	return filepath.Join(dir, "ffprobe")
}

// ExtractAudio pulls the audio track out of videoPath as 44.1kHz stereo
// 128k mp3. An existing non-trivial output short-circuits the extraction.
func (p *Processor) ExtractAudio(ctx context.Context, videoPath, audioPath string) (skipped bool, err error) {
	if info, err := os.Stat(audioPath); err == nil && info.Size() > minAudioSize {
		p.log.Infow("audio already extracted", "path", audioPath)
		return true, nil
	}

	p.log.Infow("extracting audio", "video", videoPath, "audio", audioPath)
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ar", "44100",
		"-ac", "2",
		"-b:a", "128k",
		"-y",
		audioPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(audioPath)
		return false, fmt.Errorf("ffmpeg error: %v, stderr: %s", err, stderr.String())
	}
	return false, nil
}

// ConvertToMp3 transcodes an arbitrary local media file to mp3, used when
// importing files that did not come from a download.
func (p *Processor) ConvertToMp3(ctx context.Context, inputPath, mp3Path string) error {
	if _, err := os.Stat(mp3Path); err == nil {
		p.log.Infow("mp3 already exists, skipping conversion", "path", mp3Path)
		return nil
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "4",
		"-y",
		mp3Path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(mp3Path)
		return fmt.Errorf("ffmpeg error: %v, stderr: %s", err, stderr.String())
	}
	return nil
}

// ConvertTo16kHzWav produces the 16kHz pcm_s16le rendition local
// recognition models expect, next to the input file.
func (p *Processor) ConvertTo16kHzWav(ctx context.Context, inputPath string) (string, error) {
	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_16khz.wav"
	if _, err := os.Stat(outputPath); err == nil {
		return outputPath, nil
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	if ext != ".mp3" && ext != ".m4a" && ext != ".wav" {
		return "", fmt.Errorf("unsupported audio format not in [mp3,m4a,wav]: %s", ext)
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg error: %v, stderr: %s", err, stderr.String())
	}
	return outputPath, nil
}

// GetAudioDuration returns the duration of a media file in whole seconds.
func (p *Processor) GetAudioDuration(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	durationFloat, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, err
	}
	return int(math.Round(durationFloat)), nil
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// Is16kHzWav reports whether the file is already in the rendition
// ConvertTo16kHzWav would produce.
func (p *Processor) Is16kHzWav(ctx context.Context, path string) (bool, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath(),
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return false, err
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return false, err
	}
	for _, stream := range probe.Streams {
		if stream.CodecType == "audio" && stream.CodecName == "pcm_s16le" && stream.SampleRate == "16000" {
			return true, nil
		}
	}
	return false, nil
}
