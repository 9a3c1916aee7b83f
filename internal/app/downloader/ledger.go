package downloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Ledger is the persisted set of identifiers already downloaded. It is an
// optimization only: the verified artifact on disk stays the system of
// record. The file is a JSON array of identifier strings, rewritten in
// full on every update through a temp-file rename so a partial write can
// never corrupt it.
type Ledger struct {
	path  string
	ids   map[string]struct{}
	order []string
}

// LoadLedger reads the ledger file at path. A missing file yields an empty
// ledger.
func LoadLedger(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		ids:  make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}
	for _, id := range ids {
		if _, dup := l.ids[id]; dup {
			continue
		}
		l.ids[id] = struct{}{}
		l.order = append(l.order, id)
	}
	return l, nil
}

// Has reports whether id was recorded as successfully downloaded.
func (l *Ledger) Has(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// Add records id and flushes the whole ledger to disk synchronously.
func (l *Ledger) Add(id string) error {
	if l.Has(id) {
		return nil
	}
	l.ids[id] = struct{}{}
	l.order = append(l.order, id)
	return l.flush()
}

// Len returns the number of ledgered identifiers.
func (l *Ledger) Len() int {
	return len(l.order)
}

func (l *Ledger) flush() error {
	data, err := json.Marshal(l.order)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".ledger-%s.tmp", uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
