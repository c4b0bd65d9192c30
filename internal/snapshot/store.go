package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("snapshot not found")

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS snapshots (
  id TEXT PRIMARY KEY,
  captured_at DATETIME NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_snapshots_captured ON snapshots(captured_at DESC);
`
	_, err := db.Exec(schema)
	return err
}

type Store interface {
	Save(ctx context.Context, snap ClusterSnapshot) (string, error)
	Get(ctx context.Context, id string) (Stored, error)
	Latest(ctx context.Context, n int) ([]Stored, error)
	Prune(ctx context.Context, keep int) (int, error)
}

type sqliteStore struct{ db *sql.DB }

func NewSQLiteStore(db *sql.DB) Store { return &sqliteStore{db: db} }

func (s *sqliteStore) Save(ctx context.Context, snap ClusterSnapshot) (string, error) {
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	id := "snap_" + uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshots (id, captured_at, payload, created_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
`, id, snap.CapturedAt.UTC(), payload)
	return id, err
}

func (s *sqliteStore) Get(ctx context.Context, id string) (Stored, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, captured_at, payload FROM snapshots WHERE id=?`, id)
	return scanStored(row)
}

// Latest returns up to n snapshots, newest first.
func (s *sqliteStore) Latest(ctx context.Context, n int) ([]Stored, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, captured_at, payload FROM snapshots ORDER BY captured_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		st, err := scanStored(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Prune deletes everything but the newest keep snapshots.
func (s *sqliteStore) Prune(ctx context.Context, keep int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM snapshots WHERE id NOT IN (
  SELECT id FROM snapshots ORDER BY captured_at DESC LIMIT ?
)`, keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStored(row rowScanner) (Stored, error) {
	var st Stored
	var payload []byte
	if err := row.Scan(&st.ID, &st.CapturedAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Stored{}, ErrNotFound
		}
		return Stored{}, err
	}
	if err := json.Unmarshal(payload, &st.Snapshot); err != nil {
		return Stored{}, err
	}
	return st, nil
}
