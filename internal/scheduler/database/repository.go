package database

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
	"github.com/armadaproject/packager/internal/scheduler/configuration"
	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
)

// JobRow is the persisted state of a job between packaging passes.
type JobRow struct {
	Name   string `db:"name"`
	Status string `db:"status"`
	Packed bool   `db:"packed"`
	// Position of the job in the graph, so rows come back in the order they were stored.
	Position int `db:"position"`
}

type JobRepository interface {
	// FetchJobs returns every stored row, ordered by position.
	FetchJobs(ctx context.Context) ([]JobRow, error)
	// StoreJobs replaces all stored rows with rows.
	StoreJobs(ctx context.Context, rows []JobRow) error
}

// New returns the repository selected by config, and a function that releases it.
func New(config configuration.DatabaseConfig) (JobRepository, func(), error) {
	switch config.Driver {
	case "", configuration.DatabaseDriverSqlite:
		return NewSQLiteJobRepository(config.Path)
	case configuration.DatabaseDriverMemdb:
		repo, err := NewInMemoryJobRepository()
		return repo, func() {}, err
	}
	return nil, func() {}, errors.WithStack(&armadaerrors.ErrConfiguration{
		Field:   "database.driver",
		Value:   config.Driver,
		Message: "expected sqlite or memdb",
	})
}

// SaveGraph stores the status and packed flag of every job of g.
func SaveGraph(ctx context.Context, repo JobRepository, g *jobgraph.Graph) error {
	jobs := g.Jobs()
	rows := make([]JobRow, len(jobs))
	for i, job := range jobs {
		rows[i] = JobRow{
			Name:     job.Name,
			Status:   job.Status.String(),
			Packed:   job.Packed,
			Position: i,
		}
	}
	if err := repo.StoreJobs(ctx, rows); err != nil {
		return err
	}
	log.Debugf("saved %d jobs of %s", len(rows), g.Expid())
	return nil
}

// RestoreGraph applies the stored state to the jobs of g and returns the number of jobs updated.
// Rows for jobs g doesn't have, e.g., because the workflow has changed since they were stored, are skipped.
func RestoreGraph(ctx context.Context, repo JobRepository, g *jobgraph.Graph) (int, error) {
	rows, err := repo.FetchJobs(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, row := range rows {
		job, err := g.GetJobByName(row.Name)
		if armadaerrors.IsNotFound(err) {
			log.Warnf("skipping stored job %s: not in the workflow of %s", row.Name, g.Expid())
			continue
		} else if err != nil {
			return restored, err
		}
		status, err := jobgraph.ParseStatus(row.Status)
		if err != nil {
			return restored, errors.WithMessagef(err, "stored job %s", row.Name)
		}
		job.Status = status
		job.Packed = row.Packed
		restored++
	}
	log.Infof("restored %d of %d stored jobs of %s", restored, len(rows), g.Expid())
	return restored, nil
}
