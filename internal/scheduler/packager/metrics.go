package packager

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	NAMESPACE = "armada"
	SUBSYSTEM = "packager"
)

// Metrics records what each packaging pass produced.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Packages built, by wrapper type and package kind.
	packagesBuilt *prometheus.CounterVec
	// Jobs placed into packages, by wrapper type.
	jobsPacked *prometheus.CounterVec
	// Number of jobs per package.
	packageLength *prometheus.HistogramVec
	// Expected wallclock per package.
	packageWallclock *prometheus.HistogramVec
	// Why chains and groups stopped growing.
	chainStops *prometheus.CounterVec
	// Time taken by a packaging pass.
	passDuration prometheus.Histogram
}

// NewMetrics creates the packager metrics and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	packagesBuilt := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "packages_built_total",
			Help:      "Number of packages built.",
		},
		[]string{"wrapper_type", "kind"},
	)
	jobsPacked := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "jobs_packed_total",
			Help:      "Number of jobs placed into packages.",
		},
		[]string{"wrapper_type"},
	)
	packageLength := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "package_length",
			Help:      "Number of jobs in each package.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"kind"},
	)
	packageWallclock := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "package_wallclock_seconds",
			Help:      "Expected wallclock of each package.",
			Buckets:   prometheus.ExponentialBuckets(600, 2, 8),
		},
		[]string{"kind"},
	)
	chainStops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "chain_stops_total",
			Help:      "Number of times a package stopped growing, by reason.",
		},
		[]string{"reason"},
	)
	passDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "pass_duration_seconds",
			Help:      "Time taken by a packaging pass.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)
	for _, collector := range []prometheus.Collector{
		packagesBuilt,
		jobsPacked,
		packageLength,
		packageWallclock,
		chainStops,
		passDuration,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return &Metrics{
		packagesBuilt:    packagesBuilt,
		jobsPacked:       jobsPacked,
		packageLength:    packageLength,
		packageWallclock: packageWallclock,
		chainStops:       chainStops,
		passDuration:     passDuration,
	}, nil
}

func (metrics *Metrics) ReportPackage(wrapperType string, p *Package) {
	if metrics == nil {
		return
	}
	kind := p.Kind().String()
	counter, err := metrics.packagesBuilt.GetMetricWithLabelValues(wrapperType, kind)
	if err != nil {
		// A metric failure isn't reason to fail the pass.
		log.Error(err)
		return
	}
	counter.Inc()
	metrics.jobsPacked.WithLabelValues(wrapperType).Add(float64(p.Len()))
	metrics.packageLength.WithLabelValues(kind).Observe(float64(p.Len()))
	metrics.packageWallclock.WithLabelValues(kind).Observe(p.TotalWallclock().Seconds())
}

func (metrics *Metrics) ReportChainStop(reason string) {
	if metrics == nil || reason == "" {
		return
	}
	metrics.chainStops.WithLabelValues(reason).Inc()
}

func (metrics *Metrics) ReportPassDuration(d time.Duration) {
	if metrics == nil {
		return
	}
	metrics.passDuration.Observe(d.Seconds())
}
