package export

import (
	"fmt"
	"strconv"
	"time"

	"douyin-scribe/internal/app/model"

	"github.com/tealeg/xlsx"
)

// ToExcel writes the processing history as a spreadsheet.
func ToExcel(records []model.HistoryRecord, outputPath string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("History")
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, name := range []string{
		"ID", "Video ID", "Title", "Author", "Stage",
		"Audio Duration", "Transcript", "Processed At", "Error Message",
	} {
		headerRow.AddCell().Value = name
	}

	for _, rec := range records {
		row := sheet.AddRow()
		row.AddCell().Value = strconv.Itoa(rec.ID)
		row.AddCell().Value = rec.VideoID
		row.AddCell().Value = rec.Title
		row.AddCell().Value = rec.Author
		row.AddCell().Value = rec.Stage
		row.AddCell().Value = strconv.Itoa(rec.AudioDuration)
		row.AddCell().Value = rec.Transcript
		row.AddCell().Value = rec.ProcessedAt.Format(time.RFC3339)
		row.AddCell().Value = rec.ErrorMessage
	}

	if err := file.Save(outputPath); err != nil {
		return fmt.Errorf("save %s: %w", outputPath, err)
	}
	return nil
}
