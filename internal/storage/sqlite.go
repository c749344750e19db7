//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"lathe/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveFavorite(ctx context.Context, f model.Favorite) (model.Favorite, error) {
	if err := validateFavorite(f); err != nil {
		return model.Favorite{}, err
	}
	db, err := s.getDB()
	if err != nil {
		return model.Favorite{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Favorite{}, err
	}
	defer func() { _ = tx.Rollback() }()

	key := FavoriteKey(f.ObjectType, f.Parameters)
	var payload []byte
	err = tx.QueryRowContext(ctx, `SELECT payload FROM favorites WHERE dedupe_key = ?`, key).Scan(&payload)
	switch {
	case err == nil:
		existing, err := DecodeFavorite(payload)
		if err != nil {
			return model.Favorite{}, fmt.Errorf("decode favorite %s: %w", key, err)
		}
		existing.Rating = f.Rating
		if f.SavedAtUTC != "" {
			existing.SavedAtUTC = f.SavedAtUTC
		}
		updated, err := EncodeFavorite(existing)
		if err != nil {
			return model.Favorite{}, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE favorites SET payload = ? WHERE id = ?`, updated, existing.ID); err != nil {
			return model.Favorite{}, err
		}
		f = existing
	case errors.Is(err, sql.ErrNoRows):
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		stamp(&f.VersionedRecord)
		encoded, err := EncodeFavorite(f)
		if err != nil {
			return model.Favorite{}, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO favorites (id, dedupe_key, object_type, schema_version, codec_version, payload)
			VALUES (?, ?, ?, ?, ?, ?)
		`, f.ID, key, f.ObjectType, f.SchemaVersion, f.CodecVersion, encoded)
		if err != nil {
			return model.Favorite{}, err
		}
	default:
		return model.Favorite{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Favorite{}, err
	}
	return f, nil
}

func (s *SQLiteStore) ListFavorites(ctx context.Context, objectType string) ([]model.Favorite, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM favorites
		WHERE ? = '' OR object_type = ?
		ORDER BY seq
	`, objectType, objectType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Favorite
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		f, err := DecodeFavorite(payload)
		if err != nil {
			return nil, fmt.Errorf("decode favorite: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteFavorite(ctx context.Context, id string) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) SaveGeneration(ctx context.Context, generation model.Generation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	stamp(&generation.VersionedRecord)
	payload, err := EncodeGeneration(generation)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (id, created_at_utc, designs, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at_utc = excluded.created_at_utc,
			designs = excluded.designs,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, generation.ID, generation.CreatedAtUTC, len(generation.Designs), generation.SchemaVersion, generation.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetGeneration(ctx context.Context, id string) (model.Generation, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Generation{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM generations WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Generation{}, false, nil
		}
		return model.Generation{}, false, err
	}

	generation, err := DecodeGeneration(payload)
	if err != nil {
		return model.Generation{}, false, fmt.Errorf("decode generation %s: %w", id, err)
	}
	return generation, true, nil
}

func (s *SQLiteStore) ListGenerations(ctx context.Context) ([]model.GenerationSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, created_at_utc, designs FROM generations
		ORDER BY created_at_utc DESC, rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GenerationSummary
	for rows.Next() {
		var summary model.GenerationSummary
		if err := rows.Scan(&summary.ID, &summary.CreatedAtUTC, &summary.Designs); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveLineage(ctx context.Context, generationID string, lineage []model.LineageRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	stamped := make([]model.LineageRecord, len(lineage))
	for i, record := range lineage {
		stamp(&record.VersionedRecord)
		stamped[i] = record
	}
	payload, err := EncodeLineage(stamped)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO lineage (generation_id, payload)
		VALUES (?, ?)
		ON CONFLICT(generation_id) DO UPDATE SET
			payload = excluded.payload
	`, generationID, payload)
	return err
}

func (s *SQLiteStore) GetLineage(ctx context.Context, generationID string) ([]model.LineageRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM lineage WHERE generation_id = ?`, generationID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	lineage, err := DecodeLineage(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode lineage %s: %w", generationID, err)
	}
	return lineage, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS favorites (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			dedupe_key TEXT NOT NULL UNIQUE,
			object_type TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS favorites_object_type ON favorites (object_type);
		CREATE TABLE IF NOT EXISTS generations (
			id TEXT PRIMARY KEY,
			created_at_utc TEXT NOT NULL,
			designs INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS lineage (
			generation_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
