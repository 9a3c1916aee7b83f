package setting

import (
	"encoding/json"
	"testing"

	"douyin-scribe/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultValues(t *testing.T) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(config.Default())
	require.NoError(t, err)
	var values map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &values))
	return values
}

func TestApplySetting(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, s *config.Settings)
	}{
		{
			name:  "string value",
			key:   "speech_recognition_engine",
			value: "openai",
			check: func(t *testing.T, s *config.Settings) {
				assert.Equal(t, "openai", s.SpeechRecognitionEngine)
			},
		},
		{
			name:  "boolean value",
			key:   "download_cover",
			value: "false",
			check: func(t *testing.T, s *config.Settings) {
				assert.False(t, s.DownloadCover)
			},
		},
		{
			name:  "nested key",
			key:   "speech_recognition_config.whisper.model",
			value: "small",
			check: func(t *testing.T, s *config.Settings) {
				assert.Equal(t, "small", s.SpeechRecognitionConfig.Whisper.Model)
			},
		},
		{
			name:  "numeric-looking text stays text",
			key:   "douyin_cookie",
			value: "12345",
			check: func(t *testing.T, s *config.Settings) {
				assert.Equal(t, "12345", s.DouyinCookie)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := applySetting(defaultValues(t), tt.key, tt.value)
			require.NoError(t, err)
			tt.check(t, settings)
		})
	}
}

func TestApplySettingRejectsUnknownKey(t *testing.T) {
	_, err := applySetting(defaultValues(t), "no_such_key", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown setting")
}
