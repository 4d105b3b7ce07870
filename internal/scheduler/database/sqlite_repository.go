package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	jobsTable = "jobs"
	// Rows per insert statement, keeping well below sqlite's limit on bound variables.
	insertBatchSize = 500
)

// SQLiteJobRepository is an implementation of JobRepository that stores its state in a sqlite file.
type SQLiteJobRepository struct {
	db *goqu.Database
	// sqlite allows one writer at a time, so writes are serialised to avoid SQLITE_BUSY.
	lock sync.Mutex
}

// NewSQLiteJobRepository opens, and creates if needed, the database at path.
// The returned function closes the database.
func NewSQLiteJobRepository(path string) (*SQLiteJobRepository, func(), error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, func() {}, errors.Wrapf(err, "could not make directory %s for sqlite db", dir)
		}
	}
	sqliteDb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, func() {}, errors.Wrapf(err, "error opening sqlite db %s", path)
	}
	cleanup := func() {
		if err := sqliteDb.Close(); err != nil {
			log.Warnf("error closing database: %v", err)
		}
	}
	if err := setup(sqliteDb); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return &SQLiteJobRepository{db: goqu.New("sqlite3", sqliteDb)}, cleanup, nil
}

func setup(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return errors.WithStack(err)
	}
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			packed BOOLEAN NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY(name))`)
	return errors.WithStack(err)
}

func (r *SQLiteJobRepository) FetchJobs(ctx context.Context) ([]JobRow, error) {
	var rows []JobRow
	err := r.db.From(jobsTable).
		Select("name", "status", "packed", "position").
		Order(goqu.C("position").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return rows, nil
}

func (r *SQLiteJobRepository) StoreJobs(ctx context.Context, rows []JobRow) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.db.WithTx(func(tx *goqu.TxDatabase) error {
		if _, err := tx.Delete(jobsTable).Executor().ExecContext(ctx); err != nil {
			return errors.WithStack(err)
		}
		for start := 0; start < len(rows); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(rows) {
				end = len(rows)
			}
			if _, err := tx.Insert(jobsTable).Rows(rows[start:end]).Executor().ExecContext(ctx); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
}
