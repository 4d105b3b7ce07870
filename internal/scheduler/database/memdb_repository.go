package database

import (
	"context"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
)

const (
	nameIndex     = "id"
	positionIndex = "position"
)

// InMemoryJobRepository is an implementation of JobRepository backed by go-memdb.
// State doesn't outlive the process; it's meant for tests and dry runs.
type InMemoryJobRepository struct {
	db *memdb.MemDB
}

func NewInMemoryJobRepository() (*InMemoryJobRepository, error) {
	db, err := memdb.NewMemDB(jobsSchema())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &InMemoryJobRepository{db: db}, nil
}

func (r *InMemoryJobRepository) FetchJobs(_ context.Context) ([]JobRow, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(jobsTable, positionIndex)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var rows []JobRow
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rows = append(rows, *obj.(*JobRow))
	}
	return rows, nil
}

func (r *InMemoryJobRepository) StoreJobs(_ context.Context, rows []JobRow) error {
	txn := r.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(jobsTable, nameIndex); err != nil {
		return errors.WithStack(err)
	}
	for i := range rows {
		row := rows[i]
		if err := txn.Insert(jobsTable, &row); err != nil {
			return errors.WithStack(err)
		}
	}
	txn.Commit()
	return nil
}

// jobsSchema is a single "jobs" table, unique by name and ordered by position.
func jobsSchema() *memdb.DBSchema {
	indexes := make(map[string]*memdb.IndexSchema)
	indexes[nameIndex] = &memdb.IndexSchema{
		Name:    nameIndex,
		Unique:  true,
		Indexer: &memdb.StringFieldIndex{Field: "Name"},
	}
	indexes[positionIndex] = &memdb.IndexSchema{
		Name:    positionIndex,
		Unique:  false,
		Indexer: &memdb.IntFieldIndex{Field: "Position"},
	}
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			jobsTable: {
				Name:    jobsTable,
				Indexes: indexes,
			},
		},
	}
}
