package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WhisperConfig holds parameters for the local whisper engine.
type WhisperConfig struct {
	Model    string `json:"model"`
	Language string `json:"language"`
}

// PaddleSpeechConfig holds parameters for the remote paddlespeech engine.
type PaddleSpeechConfig struct {
	Model     string `json:"model"`
	ServerURL string `json:"server_url"`
}

// OpenAIConfig holds parameters for the openai engine. The API key itself
// comes from the environment, never from the settings file.
type OpenAIConfig struct {
	Model string `json:"model"`
}

// EngineConfig maps each engine name to its own parameter bag. Unknown
// engine slots in the file are ignored by json decoding.
type EngineConfig struct {
	Whisper      WhisperConfig      `json:"whisper"`
	PaddleSpeech PaddleSpeechConfig `json:"paddlespeech"`
	OpenAI       OpenAIConfig       `json:"openai"`
}

// Settings is the persisted configuration. Missing keys fall back to the
// defaults below; unknown top-level keys are ignored.
type Settings struct {
	DownloadPath            string       `json:"download_path"`
	AudioPath               string       `json:"audio_path"`
	TextPath                string       `json:"text_path"`
	FFmpegPath              string       `json:"ffmpeg_path"`
	DownloadAudio           bool         `json:"download_audio"`
	DownloadCover           bool         `json:"download_cover"`
	ExtractText             bool         `json:"extract_text"`
	DouyinCookie            string       `json:"douyin_cookie"`
	SpeechRecognitionEngine string       `json:"speech_recognition_engine"`
	SpeechRecognitionConfig EngineConfig `json:"speech_recognition_config"`
}

// Default returns settings with every key at its documented default.
func Default() *Settings {
	return &Settings{
		DownloadPath:            "video",
		AudioPath:               "audio",
		TextPath:                "text",
		FFmpegPath:              "ffmpeg",
		DownloadAudio:           true,
		DownloadCover:           true,
		ExtractText:             true,
		SpeechRecognitionEngine: "whisper",
		SpeechRecognitionConfig: EngineConfig{
			Whisper:      WhisperConfig{Model: "base", Language: "zh"},
			PaddleSpeech: PaddleSpeechConfig{Model: "conformer_wenetspeech"},
			OpenAI:       OpenAIConfig{Model: "whisper-1"},
		},
	}
}

// Load reads the settings file at path. A missing file yields defaults,
// matching first-run behavior.
func Load(path string) (*Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return settings, nil
}

// Save persists the settings as indented JSON. The file is replaced
// atomically so an interrupted write never leaves a truncated config.
func (s *Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".settings-%s.tmp", uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// EnsureDirs creates the artifact directories the pipeline writes into.
func (s *Settings) EnsureDirs() error {
	for _, dir := range []string{s.DownloadPath, s.AudioPath, s.TextPath} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// VideoFile returns the artifact path for a downloaded video.
func (s *Settings) VideoFile(id string) string {
	return filepath.Join(s.DownloadPath, id+".mp4")
}

// CoverFile returns the artifact path for a downloaded cover image.
func (s *Settings) CoverFile(id string) string {
	return filepath.Join(s.DownloadPath, id+"_cover.jpg")
}

// AudioFile returns the artifact path for the extracted audio track.
func (s *Settings) AudioFile(id string) string {
	return filepath.Join(s.AudioPath, id+".mp3")
}

// TranscriptFile returns the artifact path for the transcript text.
func (s *Settings) TranscriptFile(id string) string {
	return filepath.Join(s.TextPath, id+"_transcript.txt")
}
