package recognizer

import (
	"context"

	"douyin-scribe/internal/app/audio"
	"douyin-scribe/internal/app/recognizer/openai"
	"douyin-scribe/internal/app/recognizer/paddlespeech"
	"douyin-scribe/internal/app/recognizer/whisper"
	"douyin-scribe/internal/config"

	"go.uber.org/zap"
)

// Engine names accepted in the settings file.
const (
	EngineWhisper      = "whisper"
	EnginePaddleSpeech = "paddlespeech"
	EngineOpenAI       = "openai"
)

// Recognizer converts an audio file into text.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) (string, error)
}

// NewFromSettings resolves the configured engine to a concrete recognizer.
// An unknown engine name degrades to whisper with a warning instead of
// failing the whole run.
func NewFromSettings(cfg *config.Settings, proc *audio.Processor, log *zap.SugaredLogger) Recognizer {
	engine := cfg.SpeechRecognitionEngine
	switch engine {
	case EngineWhisper, "":
		return newWhisper(cfg, proc, log)
	case EnginePaddleSpeech:
		pc := cfg.SpeechRecognitionConfig.PaddleSpeech
		return paddlespeech.New(pc.ServerURL, pc.Model, proc, log)
	case EngineOpenAI:
		return openai.New(cfg.SpeechRecognitionConfig.OpenAI.Model, log)
	default:
		log.Warnw("unknown speech recognition engine, falling back to whisper", "engine", engine)
		return newWhisper(cfg, proc, log)
	}
}

func newWhisper(cfg *config.Settings, proc *audio.Processor, log *zap.SugaredLogger) Recognizer {
	wc := cfg.SpeechRecognitionConfig.Whisper
	t := whisper.New(
		config.WhisperBinary(),
		config.WhisperModelDir(),
		wc.Model,
		wc.Language,
		proc,
		log,
	)
	t.Warmup()
	return t
}
