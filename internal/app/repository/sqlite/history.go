package sqlite

import (
	"database/sql"
	"fmt"

	"douyin-scribe/internal/app/model"

	_ "github.com/mattn/go-sqlite3"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	video_id TEXT NOT NULL,
	title TEXT,
	author TEXT,
	stage TEXT NOT NULL,
	audio_duration INTEGER DEFAULT 0,
	transcript TEXT,
	processed_at TIMESTAMP NOT NULL,
	has_error INTEGER DEFAULT 0,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_history_video_id ON history(video_id);
`

// HistoryDB is the sqlite-backed processing history.
type HistoryDB struct {
	db *sql.DB
}

// NewHistoryDB opens (and if necessary bootstraps) the history database at
// dbPath.
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?cache=shared&mode=rwc", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", dbPath, err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}
	return &HistoryDB{db: db}, nil
}

// NewWithDB wraps an existing connection, used by tests.
func NewWithDB(db *sql.DB) *HistoryDB {
	return &HistoryDB{db: db}
}

func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) CheckIfProcessed(videoID string) (bool, error) {
	query := `SELECT id FROM history WHERE video_id = ? AND has_error = 0 LIMIT 1`
	var id int
	err := h.db.QueryRow(query, videoID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query history: %w", err)
	}
	return true, nil
}

func (h *HistoryDB) Record(rec model.HistoryRecord) error {
	insertSQL := `INSERT INTO history (video_id, title, author, stage, audio_duration, transcript, processed_at, has_error, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := h.db.Exec(insertSQL,
		rec.VideoID, rec.Title, rec.Author, rec.Stage, rec.AudioDuration,
		rec.Transcript, rec.ProcessedAt, rec.HasError, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

func (h *HistoryDB) GetAll() ([]model.HistoryRecord, error) {
	query := `
		SELECT id, video_id, title, author, stage, audio_duration, transcript, processed_at, has_error, error_message
		FROM history
		ORDER BY processed_at DESC`
	rows, err := h.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := make([]model.HistoryRecord, 0)
	for rows.Next() {
		var rec model.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.VideoID, &rec.Title, &rec.Author, &rec.Stage,
			&rec.AudioDuration, &rec.Transcript, &rec.ProcessedAt, &rec.HasError, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
