package repository

import (
	"douyin-scribe/internal/app/model"
)

// HistoryDAO records every processed video so batches can skip work that
// already succeeded and exports can list past runs.
type HistoryDAO interface {
	Close() error

	// CheckIfProcessed reports whether the video already has a
	// successful history row.
	CheckIfProcessed(videoID string) (bool, error)

	Record(rec model.HistoryRecord) error

	GetAll() ([]model.HistoryRecord, error)
}
