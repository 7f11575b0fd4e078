package crawl

import "github.com/prometheus/client_golang/prometheus"

var (
	insertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiostats_plays_inserted_total",
			Help: "Plays newly inserted during crawling",
		},
		[]string{"station"},
	)
	alreadyPresentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiostats_plays_already_present_total",
			Help: "Plays that were already in storage",
		},
		[]string{"station"},
	)
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiostats_crawl_errors_total",
			Help: "Tuple and date level crawl errors",
		},
		[]string{"station"},
	)
	dateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "radiostats_crawl_date_duration_seconds",
			Help:    "Time taken to ingest a single date",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(insertedTotal, alreadyPresentTotal, errorsTotal, dateDuration)
}
