package pruner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsActivePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pt4pruner_active_players",
		Help: "Number of active players resolved for the current run",
	})
	metricsHandsEligible = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pt4pruner_hands_eligible_total",
		Help: "Number of hands found eligible for pruning",
	}, []string{"hand_type"})
	metricsHandsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pt4pruner_hands_deleted_total",
		Help: "Number of hand summary rows deleted",
	}, []string{"hand_type"})
	metricsStatsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pt4pruner_player_stats_deleted_total",
		Help: "Number of player statistics rows deleted",
	}, []string{"hand_type"})
	metricsChunkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pt4pruner_chunk_failures_total",
		Help: "Number of chunks that failed after retry",
	}, []string{"hand_type"})
	metricsChunkRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pt4pruner_chunk_retries_total",
		Help: "Number of chunk retry attempts",
	}, []string{"hand_type"})
	metricsChunkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pt4pruner_chunk_duration_seconds",
		Help:    "Chunk processing duration",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"hand_type"})
)
