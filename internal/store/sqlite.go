package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/pneumatic/internal/document"
)

// SQLiteSlotStore implements SlotStore using SQLite for persistence.
type SQLiteSlotStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteSlotStore opens or creates the database at dbPath, creating its
// directory, and initializes the schema.
func NewSQLiteSlotStore(dbPath string) (*SQLiteSlotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteSlotStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file.
func (s *SQLiteSlotStore) Path() string {
	return s.dbPath
}

// Save stores doc under name.
func (s *SQLiteSlotStore) Save(ctx context.Context, name string, doc document.Doc) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, hash, err := encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO slots (name, data, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
	`, name, string(data), hash, now, now)
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", name, err)
	}
	return nil
}

// Load returns the slot called name. Returns nil if not found.
func (s *SQLiteSlotStore) Load(ctx context.Context, name string) (*Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data, hash, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT data, content_hash, created_at, updated_at FROM slots WHERE name = ?
	`, name).Scan(&data, &hash, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %s: %w", name, err)
	}

	doc, err := decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("slot %s: %w", name, err)
	}
	return &Slot{
		Name:        name,
		Doc:         doc,
		ContentHash: hash,
		CreatedAt:   parseTime(createdAt),
		UpdatedAt:   parseTime(updatedAt),
	}, nil
}

// List returns every slot ordered by name.
func (s *SQLiteSlotStore) List(ctx context.Context) ([]SlotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, content_hash, length(data), created_at, updated_at
		FROM slots ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var infos []SlotInfo
	for rows.Next() {
		var info SlotInfo
		var createdAt, updatedAt string
		if err := rows.Scan(&info.Name, &info.ContentHash, &info.Size, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		info.CreatedAt = parseTime(createdAt)
		info.UpdatedAt = parseTime(updatedAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes a slot.
func (s *SQLiteSlotStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", name, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSlotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
