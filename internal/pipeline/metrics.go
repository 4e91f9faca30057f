package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the volume of work done by a pipeline run.
type Metrics struct {
	// RecordsLoaded counts records per window: "before", "after"
	RecordsLoaded *prometheus.CounterVec
	// LedgerUsers is the number of authors in each window's ledger
	LedgerUsers *prometheus.GaugeVec
	// UsersRanked is the population size of each ranking method
	UsersRanked *prometheus.GaugeVec
	// UsersRemoved counts dismantling removals per method
	UsersRemoved *prometheus.CounterVec
	// StageDuration observes wall time per stage
	StageDuration *prometheus.HistogramVec
}

// NewMetrics registers the pipeline metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsLoaded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fibers",
			Name:      "records_loaded_total",
			Help:      "Retweet records loaded, by time window",
		}, []string{"window"}),
		LedgerUsers: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fibers",
			Name:      "ledger_users",
			Help:      "Distinct authors in a window's retweet ledger",
		}, []string{"window"}),
		UsersRanked: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fibers",
			Name:      "users_ranked",
			Help:      "Users covered by a ranking",
		}, []string{"method"}),
		UsersRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fibers",
			Name:      "users_removed_total",
			Help:      "Users removed during dismantling, by ranking method",
		}, []string{"method"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fibers",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
	}
}
