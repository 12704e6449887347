package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/artpar/patchbay/domain/module"
)

// RegistryStore is a SQLite implementation of ports.RegistryStore.
type RegistryStore struct {
	db *DB
}

// NewRegistryStore creates a plugin registry over an open database.
func NewRegistryStore(db *DB) *RegistryStore {
	return &RegistryStore{db: db}
}

// Upsert inserts or replaces the record keyed by path. The store owns
// the CreatedAt and UpdatedAt stamps; values on rec are ignored, and
// created_at survives conflicts unchanged.
func (s *RegistryStore) Upsert(ctx context.Context, rec module.PluginRecord) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plugins (path, sha256, name, version, abi_version, verified, enabled, loaded_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			sha256 = excluded.sha256,
			name = excluded.name,
			version = excluded.version,
			abi_version = excluded.abi_version,
			verified = excluded.verified,
			enabled = excluded.enabled,
			loaded_at = excluded.loaded_at,
			updated_at = excluded.updated_at
	`, rec.Path, rec.SHA256, rec.Name, rec.Version, rec.ABIVersion,
		rec.Verified, rec.Enabled, rec.LoadedAt, now, now)
	if err != nil {
		return fmt.Errorf("upsert plugin %s: %w", rec.Path, err)
	}
	return nil
}

// Get retrieves a record by plugin path.
func (s *RegistryStore) Get(ctx context.Context, path string) (module.PluginRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT path, sha256, name, version, abi_version, verified, enabled, loaded_at, created_at, updated_at
		FROM plugins WHERE path = ?
	`, path)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return module.PluginRecord{}, fmt.Errorf("plugin %s not in registry", path)
	}
	if err != nil {
		return module.PluginRecord{}, fmt.Errorf("get plugin %s: %w", path, err)
	}
	return rec, nil
}

// List returns all records ordered by path.
func (s *RegistryStore) List(ctx context.Context) ([]module.PluginRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, sha256, name, version, abi_version, verified, enabled, loaded_at, created_at, updated_at
		FROM plugins ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	defer rows.Close()

	var out []module.PluginRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plugin: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SetEnabled flips the operator enable flag for a plugin.
func (s *RegistryStore) SetEnabled(ctx context.Context, path string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE plugins SET enabled = ?, updated_at = ? WHERE path = ?
	`, enabled, time.Now().UTC(), path)
	if err != nil {
		return fmt.Errorf("set plugin enabled %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("plugin %s not in registry", path)
	}
	return nil
}

// Delete removes a record.
func (s *RegistryStore) Delete(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM plugins WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("delete plugin %s: %w", path, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (module.PluginRecord, error) {
	var rec module.PluginRecord
	var loadedAt sql.NullTime
	err := row.Scan(&rec.Path, &rec.SHA256, &rec.Name, &rec.Version, &rec.ABIVersion,
		&rec.Verified, &rec.Enabled, &loadedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return module.PluginRecord{}, err
	}
	if loadedAt.Valid {
		t := loadedAt.Time
		rec.LoadedAt = &t
	}
	return rec, nil
}
