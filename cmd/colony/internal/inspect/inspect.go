package inspect

import (
	"context"
	"database/sql"
	"errors"
	"os"

	_ "modernc.org/sqlite"

	"github.com/zettawatt/colony/vault"
)

// Inspector provides read-only access to the metadata store for introspection.
type Inspector struct {
	db *sql.DB
}

// Open opens the SQLite metadata database at path without creating it.
func Open(path string) (*Inspector, error) {
	if path == "" {
		return nil, errors.New("meta db path required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	return &Inspector{db: db}, nil
}

// Close releases resources held by Inspector.
func (i *Inspector) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	return i.db.Close()
}

// Summary describes the store contents.
type Summary struct {
	VaultID       string
	WalletAddress string
	Pods          int
	HighestIndex  uint64
}

// Summary reads pod counts and recorded state.
func (i *Inspector) Summary(ctx context.Context) (Summary, error) {
	var (
		s       Summary
		highest sql.NullInt64
	)
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(idx) FROM pods`).Scan(&s.Pods, &highest); err != nil {
		return Summary{}, err
	}
	if highest.Valid {
		s.HighestIndex = uint64(highest.Int64)
	}
	rows, err := i.db.QueryContext(ctx, `SELECT k, v FROM state`)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Summary{}, err
		}
		switch k {
		case vault.StateVaultID:
			s.VaultID = v
		case vault.StateWalletAddress:
			s.WalletAddress = v
		}
	}
	return s, rows.Err()
}

// Keystore reads the non-secret header of the sealed keystore at path.
func Keystore(path string) (vault.FileInfo, error) {
	// #nosec G304 -- path comes from the user's own configuration
	f, err := os.Open(path)
	if err != nil {
		return vault.FileInfo{}, err
	}
	defer func() {
		_ = f.Close()
	}()
	return vault.ReadFileInfo(f)
}
