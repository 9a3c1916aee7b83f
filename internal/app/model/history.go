package model

import "time"

// HistoryRecord is one processed item as stored in the sqlite history.
type HistoryRecord struct {
	ID            int
	VideoID       string
	Title         string
	Author        string
	Stage         string
	AudioDuration int
	Transcript    string
	ProcessedAt   time.Time
	HasError      int
	ErrorMessage  string
}
