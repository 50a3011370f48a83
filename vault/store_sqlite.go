package vault

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zettawatt/colony/hd"
)

// Store keys for non-secret state.
const (
	StateVaultID       = "vault_id"
	StateWalletAddress = "wallet_address"
)

// Store persists non-secret keystore metadata locally: which pod indices have
// been handed out and values callers want to show while the vault is locked.
type Store struct {
	db *sql.DB
}

// OpenStore opens/creates a SQLite database and runs migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS pods (
  idx INTEGER PRIMARY KEY,
  public_key TEXT NOT NULL UNIQUE,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS state (
  k TEXT PRIMARY KEY,
  v TEXT NOT NULL
);
`)
	return err
}

// PodRecord is one allocated pod index.
type PodRecord struct {
	Index     uint64
	PublicKey string
	CreatedAt time.Time
}

// RecordPod remembers that index produced pub. Recording the same pair twice
// is a no-op.
func (s *Store) RecordPod(ctx context.Context, index uint64, pub hd.PublicKey) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO pods(idx, public_key, created_at) VALUES(?,?,?)
ON CONFLICT(idx) DO NOTHING`,
		int64(index), pub.Hex(), time.Now().UTC().Unix(),
	)
	return err
}

// ForgetPod drops the record for index.
func (s *Store) ForgetPod(ctx context.Context, index uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pods WHERE idx = ?`, int64(index))
	return err
}

// NextPodIndex returns one past the highest recorded index, or 0.
func (s *Store) NextPodIndex(ctx context.Context) (uint64, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(idx) FROM pods`).Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return uint64(max.Int64) + 1, nil
}

// ListPods returns recorded pods ordered by index.
func (s *Store) ListPods(ctx context.Context) ([]PodRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, public_key, created_at FROM pods ORDER BY idx ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []PodRecord
	for rows.Next() {
		var (
			idx     int64
			rec     PodRecord
			created int64
		)
		if err := rows.Scan(&idx, &rec.PublicKey, &created); err != nil {
			return nil, err
		}
		rec.Index = uint64(idx)
		rec.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetState fetches metadata with default fallback.
func (s *Store) GetState(ctx context.Context, key, def string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM state WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	return v, err
}

// SetState updates metadata.
func (s *Store) SetState(ctx context.Context, key, val string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO state(k,v) VALUES(?,?)
ON CONFLICT(k) DO UPDATE SET v=excluded.v`, key, val)
	return err
}

// Reset forgets all pods and state, used when a new vault replaces the old one.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pods`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM state`); err != nil {
		return err
	}
	return tx.Commit()
}
