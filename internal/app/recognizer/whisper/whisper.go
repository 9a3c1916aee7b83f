package whisper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"douyin-scribe/internal/app/audio"

	"go.uber.org/zap"
)

// modelTags are the whisper.cpp model sizes we know how to locate on disk.
var modelTags = map[string]bool{
	"tiny":   true,
	"base":   true,
	"small":  true,
	"medium": true,
	"large":  true,
}

const chinesePrompt = "以下是简体中文普通话:"

// Transcriber runs a local whisper.cpp binary. The model file is resolved
// once, lazily, so construction stays cheap and misconfiguration surfaces
// as a recognition error rather than a startup crash.
type Transcriber struct {
	binaryPath string
	modelDir   string
	modelTag   string
	language   string
	proc       *audio.Processor
	log        *zap.SugaredLogger

	resolveOnce sync.Once
	modelPath   string
	resolveErr  error
}

func New(binaryPath, modelDir, modelTag, language string, proc *audio.Processor, log *zap.SugaredLogger) *Transcriber {
	if modelTag == "" {
		modelTag = "base"
	}
	if language == "" {
		language = "zh"
	}
	return &Transcriber{
		binaryPath: binaryPath,
		modelDir:   modelDir,
		modelTag:   modelTag,
		language:   language,
		proc:       proc,
		log:        log,
	}
}

// Warmup resolves the model in the background so the first recognition
// does not pay for it. Safe to skip; Recognize resolves on demand.
func (t *Transcriber) Warmup() {
	go t.resolve()
}

func (t *Transcriber) resolve() error {
	t.resolveOnce.Do(func() {
		if t.binaryPath == "" {
			t.resolveErr = fmt.Errorf("whisper binary not configured, set WHISPER_CPP_BINARY")
			return
		}
		if _, err := os.Stat(t.binaryPath); err != nil {
			t.resolveErr = fmt.Errorf("whisper binary not found at %s: %w", t.binaryPath, err)
			return
		}
		if !modelTags[t.modelTag] {
			t.resolveErr = fmt.Errorf("unknown whisper model %q, expected one of tiny|base|small|medium|large", t.modelTag)
			return
		}

		path := filepath.Join(t.modelDir, fmt.Sprintf("ggml-%s.bin", t.modelTag))
		if _, err := os.Stat(path); err != nil {
			t.resolveErr = fmt.Errorf("whisper model file not found at %s, download it into WHISPER_CPP_MODEL_DIR: %w", path, err)
			return
		}
		t.modelPath = path
		t.log.Infow("whisper model resolved", "model", t.modelTag, "path", path)
	})
	return t.resolveErr
}

// Recognize converts the audio to the 16kHz rendition whisper.cpp expects
// and runs the binary with a text output file.
func (t *Transcriber) Recognize(ctx context.Context, audioPath string) (string, error) {
	if err := t.resolve(); err != nil {
		return "", err
	}

	inputPath := audioPath
	is16k, err := t.proc.Is16kHzWav(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("probe audio %s: %w", audioPath, err)
	}
	if !is16k {
		inputPath, err = t.proc.ConvertTo16kHzWav(ctx, audioPath)
		if err != nil {
			return "", fmt.Errorf("convert audio for recognition: %w", err)
		}
	}

	outBase := filepath.Join(os.TempDir(), fmt.Sprintf("whisper_%d", time.Now().UnixNano()))
	defer os.Remove(outBase + ".txt")

	args := []string{
		"-m", t.modelPath,
		"-l", t.language,
		"-otxt",
		"-f", inputPath,
		"-of", outBase,
	}
	if t.language == "zh" {
		args = append(args, "--prompt", chinesePrompt)
	}

	cmd := exec.CommandContext(ctx, t.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.log.Debugw("running whisper.cpp", "binary", t.binaryPath, "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper.cpp failed: %v, stderr: %s", err, stderr.String())
	}

	output, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
