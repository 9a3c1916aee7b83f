package export

import (
	"path/filepath"
	"testing"
	"time"

	"douyin-scribe/internal/app/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func TestToExcel(t *testing.T) {
	out := filepath.Join(t.TempDir(), "history.xlsx")
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	records := []model.HistoryRecord{
		{ID: 1, VideoID: "7301234567890123456", Title: "标题", Author: "作者",
			Stage: "DONE", AudioDuration: 62, Transcript: "文本", ProcessedAt: now},
		{ID: 2, VideoID: "7301234567890123457", Stage: "FAILED",
			ProcessedAt: now, HasError: 1, ErrorMessage: "no playable media found"},
	}
	require.NoError(t, ToExcel(records, out))

	file, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	require.Len(t, sheet.Rows, 3, "header plus one row per record")
	assert.Equal(t, "Video ID", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "7301234567890123456", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "62", sheet.Rows[1].Cells[5].String())
	assert.Equal(t, "no playable media found", sheet.Rows[2].Cells[8].String())
}

func TestToExcelEmptyHistory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "history.xlsx")
	require.NoError(t, ToExcel(nil, out))

	file, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	assert.Len(t, file.Sheets[0].Rows, 1)
}
