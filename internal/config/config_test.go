package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), settings)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	settings := Default()
	settings.DownloadPath = "my_videos"
	settings.DownloadCover = false
	settings.SpeechRecognitionEngine = "openai"
	settings.SpeechRecognitionConfig.Whisper.Model = "small"
	require.NoError(t, settings.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"download_path": "elsewhere"}`), 0o644))

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", settings.DownloadPath)
	assert.Equal(t, "audio", settings.AudioPath, "unset keys keep their defaults")
	assert.True(t, settings.ExtractText)
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"future_flag": true, "audio_path": "a"}`), 0o644))

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a", settings.AudioPath)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"download_path": `), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestArtifactPaths(t *testing.T) {
	settings := Default()
	settings.DownloadPath = "v"
	settings.AudioPath = "a"
	settings.TextPath = "t"

	assert.Equal(t, filepath.Join("v", "7001.mp4"), settings.VideoFile("7001"))
	assert.Equal(t, filepath.Join("v", "7001_cover.jpg"), settings.CoverFile("7001"))
	assert.Equal(t, filepath.Join("a", "7001.mp3"), settings.AudioFile("7001"))
	assert.Equal(t, filepath.Join("t", "7001_transcript.txt"), settings.TranscriptFile("7001"))
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	settings := Default()
	settings.DownloadPath = filepath.Join(dir, "v")
	settings.AudioPath = filepath.Join(dir, "a")
	settings.TextPath = filepath.Join(dir, "t")

	require.NoError(t, settings.EnsureDirs())
	for _, d := range []string{settings.DownloadPath, settings.AudioPath, settings.TextPath} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
