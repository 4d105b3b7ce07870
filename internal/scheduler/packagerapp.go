package scheduler

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/packager/internal/common/ids"
	"github.com/armadaproject/packager/internal/common/logging"
	"github.com/armadaproject/packager/internal/scheduler/configuration"
	"github.com/armadaproject/packager/internal/scheduler/database"
	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
	"github.com/armadaproject/packager/internal/scheduler/packager"
	"github.com/armadaproject/packager/internal/workflow"
)

// App packages the jobs of one experiment, pass by pass, keeping job state in the configured database
// so that jobs packed in an earlier run aren't packed again.
type App struct {
	graph    *jobgraph.Graph
	repo     database.JobRepository
	packager *packager.Packager
	cleanup  func()
}

// NewApp sets up everything needed to package the jobs of def.
// If registerer is nil no metrics are recorded. Otherwise log lines are counted too,
// so a process should create at most one App with a registerer.
func NewApp(
	ctx context.Context,
	config configuration.PackagerConfiguration,
	def workflow.Definition,
	registerer prometheus.Registerer,
) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := logging.Configure(config.Logging); err != nil {
		return nil, err
	}

	// ////////////////////////////////////////////////////////////////////////
	// Job graph
	// ////////////////////////////////////////////////////////////////////////
	log.Infof("Generating job graph for experiment %s", def.Expid)
	graph, err := workflow.Generate(def)
	if err != nil {
		return nil, errors.WithMessage(err, "error generating job graph")
	}
	graph.ResizeSortedIndexCache(config.SortedIndexCacheSize)

	// ////////////////////////////////////////////////////////////////////////
	// Database
	// ////////////////////////////////////////////////////////////////////////
	log.Infof("Setting up %s job repository", driverName(config.Database))
	repo, cleanup, err := database.New(config.Database)
	if err != nil {
		return nil, errors.WithMessage(err, "error opening job repository")
	}
	restored, err := database.RestoreGraph(ctx, repo, graph)
	if err != nil {
		cleanup()
		return nil, errors.WithMessage(err, "error restoring job states")
	}
	log.Infof("Restored the state of %d of %d jobs", restored, graph.NumJobs())
	graph.UpdateStatuses()

	// ////////////////////////////////////////////////////////////////////////
	// Packager
	// ////////////////////////////////////////////////////////////////////////
	var metrics *packager.Metrics
	if registerer != nil {
		metrics, err = packager.NewMetrics(registerer)
		if err != nil {
			cleanup()
			return nil, errors.WithMessage(err, "error registering metrics")
		}
		hook, err := logging.NewPrometheusHook(registerer)
		if err != nil {
			cleanup()
			return nil, errors.WithMessage(err, "error registering log metrics")
		}
		log.AddHook(hook)
	}
	p, err := packager.NewPackager(graph, config.Wrapper, config.Platform, metrics)
	if err != nil {
		cleanup()
		return nil, err
	}
	log.Infof("Packaging with a %s wrapper on %s", config.Wrapper.Type, config.Platform.Name)

	return &App{
		graph:    graph,
		repo:     repo,
		packager: p,
		cleanup:  cleanup,
	}, nil
}

// Graph returns the job graph the app packages.
func (a *App) Graph() *jobgraph.Graph {
	return a.graph
}

// SetStatus records a status reported for a job and persists it.
func (a *App) SetStatus(ctx context.Context, name string, status jobgraph.Status) error {
	if err := a.graph.SetStatus(name, status); err != nil {
		return err
	}
	return database.SaveGraph(ctx, a.repo, a.graph)
}

// RunPass promotes jobs whose parents have completed, builds packages from the ready jobs
// and saves which jobs were packed. If saving fails the packages are discarded.
func (a *App) RunPass(ctx context.Context) ([]*packager.Package, error) {
	passLog := log.WithField("pass", ids.NewPassId())
	promoted := a.graph.UpdateStatuses()
	packages, err := a.packager.BuildPackages()
	if err != nil {
		logging.WithError(passLog, err).Error("packaging pass failed")
		return nil, err
	}
	if err := database.SaveGraph(ctx, a.repo, a.graph); err != nil {
		return nil, errors.WithMessage(err, "error saving job states")
	}
	passLog.Infof("promoted %d jobs to ready and built %d packages", promoted, len(packages))
	return packages, nil
}

// Close releases the job repository.
func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}

func driverName(config configuration.DatabaseConfig) string {
	if config.Driver == "" {
		return configuration.DatabaseDriverSqlite
	}
	return config.Driver
}
