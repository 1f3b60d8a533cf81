package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/mamadbah2/farmbook/internal/domain/models"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		category   TEXT NOT NULL,
		id         TEXT NOT NULL,
		created_at TEXT NOT NULL,
		fields     BLOB NOT NULL,
		UNIQUE (category, id)
	)`,
	`CREATE TABLE IF NOT EXISTS record_index (
		category  TEXT NOT NULL,
		field     TEXT NOT NULL,
		value     TEXT NOT NULL,
		record_id TEXT NOT NULL,
		PRIMARY KEY (category, field, record_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_record_index_lookup ON record_index (category, field, value)`,
}

// Repository defines the category-scoped record operations of the local store.
type Repository interface {
	Add(ctx context.Context, category models.Category, fields map[string]any) (string, error)
	Get(ctx context.Context, category models.Category, id string) (models.Record, error)
	GetAll(ctx context.Context, category models.Category) ([]models.Record, error)
	Update(ctx context.Context, category models.Category, id string, fields map[string]any) error
	Delete(ctx context.Context, category models.Category, id string) error
	Query(ctx context.Context, category models.Category, field string, value any) ([]models.Record, error)
	ReplaceAll(ctx context.Context, snapshot map[models.Category][]models.Record) error
	Snapshot(ctx context.Context) (map[models.Category][]models.Record, error)
}

var _ Repository = (*RecordStore)(nil)

// RecordStore persists records to a single SQLite database. Every mutating
// call commits before it returns.
type RecordStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Open creates (if needed) and opens the SQLite database at path.
func Open(ctx context.Context, path string, logger *zap.Logger) (*RecordStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", models.ErrStoreUnavailable)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: create dirs: %v", models.ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", models.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %v", models.ErrStoreUnavailable, err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: create schema: %v", models.ErrStoreUnavailable, err)
		}
	}

	logger.Info("record store opened", zap.String("path", path))

	return &RecordStore{
		db:     db,
		path:   path,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Close releases the database handle.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *RecordStore) Path() string { return s.path }

// Add stores a new record and returns its generated identifier.
func (s *RecordStore) Add(ctx context.Context, category models.Category, fields map[string]any) (string, error) {
	if err := checkCategory(category); err != nil {
		return "", err
	}
	normalized, err := models.NormalizeFields(fields)
	if err != nil {
		return "", err
	}

	record := models.Record{
		ID:        s.newID(),
		Category:  category,
		CreatedAt: s.now().UTC(),
		Fields:    normalized,
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		return insertRecord(ctx, tx, record)
	})
	if err != nil {
		return "", fmt.Errorf("add %s record: %w", category, err)
	}

	s.logger.Debug("record added", zap.String("category", string(category)), zap.String("id", record.ID))
	return record.ID, nil
}

// Get returns a single record.
func (s *RecordStore) Get(ctx context.Context, category models.Category, id string) (models.Record, error) {
	if err := checkCategory(category); err != nil {
		return models.Record{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, fields FROM records WHERE category = ? AND id = ?`,
		string(category), id)

	record, err := scanRecord(row, category)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, fmt.Errorf("%w: %s/%s", models.ErrNotFound, category, id)
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("get %s/%s: %w", category, id, err)
	}
	return record, nil
}

// GetAll returns every record of the category in insertion order.
func (s *RecordStore) GetAll(ctx context.Context, category models.Category) ([]models.Record, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, fields FROM records WHERE category = ? ORDER BY seq`,
		string(category))
	if err != nil {
		return nil, fmt.Errorf("select %s records: %w", category, err)
	}
	return collect(rows, category)
}

// Update replaces the fields of an existing record, keeping its identifier
// and creation time.
func (s *RecordStore) Update(ctx context.Context, category models.Category, id string, fields map[string]any) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	normalized, err := models.NormalizeFields(fields)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE records SET fields = ? WHERE category = ? AND id = ?`,
			payload, string(category), id)
		if err != nil {
			return err
		}
		if err := requireAffected(res, category, id); err != nil {
			return err
		}
		if err := dropIndexRows(ctx, tx, category, id); err != nil {
			return err
		}
		return insertIndexRows(ctx, tx, category, id, normalized)
	})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", category, id, err)
	}

	s.logger.Debug("record updated", zap.String("category", string(category)), zap.String("id", id))
	return nil
}

// Delete removes exactly one record. Deleting a missing record fails with
// models.ErrNotFound.
func (s *RecordStore) Delete(ctx context.Context, category models.Category, id string) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM records WHERE category = ? AND id = ?`,
			string(category), id)
		if err != nil {
			return err
		}
		if err := requireAffected(res, category, id); err != nil {
			return err
		}
		return dropIndexRows(ctx, tx, category, id)
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", category, id, err)
	}

	s.logger.Debug("record deleted", zap.String("category", string(category)), zap.String("id", id))
	return nil
}

// Query returns the records whose indexed field equals value.
func (s *RecordStore) Query(ctx context.Context, category models.Category, field string, value any) ([]models.Record, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	if !category.Indexed(field) {
		return nil, fmt.Errorf("%w: %s.%s", models.ErrNotIndexed, category, field)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, r.fields
		FROM record_index i
		JOIN records r ON r.category = i.category AND r.id = i.record_id
		WHERE i.category = ? AND i.field = ? AND i.value = ?
		ORDER BY r.seq`,
		string(category), field, models.FormatValue(value))
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", category, field, err)
	}
	return collect(rows, category)
}

// ReplaceAll overwrites every category present in snapshot with the given
// records. Either all categories are replaced or none are.
func (s *RecordStore) ReplaceAll(ctx context.Context, snapshot map[models.Category][]models.Record) error {
	for category := range snapshot {
		if err := checkCategory(category); err != nil {
			return err
		}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for category, records := range snapshot {
			if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE category = ?`, string(category)); err != nil {
				return fmt.Errorf("clear %s: %w", category, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM record_index WHERE category = ?`, string(category)); err != nil {
				return fmt.Errorf("clear %s index: %w", category, err)
			}

			for _, record := range records {
				prepared, err := s.prepareImported(category, record)
				if err != nil {
					return err
				}
				if err := insertRecord(ctx, tx, prepared); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	s.logger.Info("local snapshot replaced", zap.Int("categories", len(snapshot)))
	return nil
}

// Snapshot returns the records of every category.
func (s *RecordStore) Snapshot(ctx context.Context) (map[models.Category][]models.Record, error) {
	out := make(map[models.Category][]models.Record, len(models.AllCategories))
	for _, category := range models.AllCategories {
		records, err := s.GetAll(ctx, category)
		if err != nil {
			return nil, err
		}
		out[category] = records
	}
	return out, nil
}

func (s *RecordStore) prepareImported(category models.Category, record models.Record) (models.Record, error) {
	normalized, err := models.NormalizeFields(record.Fields)
	if err != nil {
		return models.Record{}, err
	}
	record.Category = category
	record.Fields = normalized
	if record.ID == "" {
		record.ID = s.newID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	return record, nil
}

func (s *RecordStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRecord(ctx context.Context, tx *sql.Tx, record models.Record) error {
	payload, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (category, id, created_at, fields) VALUES (?, ?, ?, ?)`,
		string(record.Category), record.ID, record.CreatedAt.UTC().Format(time.RFC3339Nano), payload); err != nil {
		return fmt.Errorf("insert record %s: %w", record.ID, err)
	}
	return insertIndexRows(ctx, tx, record.Category, record.ID, record.Fields)
}

func insertIndexRows(ctx context.Context, tx *sql.Tx, category models.Category, id string, fields models.Fields) error {
	for _, field := range category.IndexedFields() {
		value, ok := fields[field]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_index (category, field, value, record_id) VALUES (?, ?, ?, ?)`,
			string(category), field, models.FormatValue(value), id); err != nil {
			return fmt.Errorf("index %s.%s: %w", category, field, err)
		}
	}
	return nil
}

func dropIndexRows(ctx context.Context, tx *sql.Tx, category models.Category, id string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM record_index WHERE category = ? AND record_id = ?`,
		string(category), id); err != nil {
		return fmt.Errorf("drop index rows: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, category models.Category, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", models.ErrNotFound, category, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, category models.Category) (models.Record, error) {
	var (
		id        string
		createdAt string
		payload   []byte
	)
	if err := row.Scan(&id, &createdAt, &payload); err != nil {
		return models.Record{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.Record{}, fmt.Errorf("decode created_at of %s: %w", id, err)
	}

	fields := models.Fields{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return models.Record{}, fmt.Errorf("decode fields of %s: %w", id, err)
	}

	return models.Record{ID: id, Category: category, CreatedAt: ts, Fields: fields}, nil
}

func collect(rows *sql.Rows, category models.Category) ([]models.Record, error) {
	defer func() { _ = rows.Close() }()

	records := make([]models.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows, category)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", category, err)
	}
	return records, nil
}

func checkCategory(category models.Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}
	return nil
}
