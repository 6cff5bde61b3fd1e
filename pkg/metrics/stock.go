package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Values of the result label on stock metrics.
const (
	StockResultApplied      = "applied"
	StockResultInsufficient = "insufficient"
	StockResultInvalid      = "invalid"
	StockResultNotFound     = "not_found"
	StockResultError        = "error"
)

// stock transactions are a single guarded UPDATE, so the interesting range
// is well under a second
var stockBuckets = prometheus.ExponentialBuckets(0.0005, 2, 14)

// StockMetrics counts stock mutations and times them, both by result.
// The zero value and a nil pointer discard observations.
type StockMetrics struct {
	adjustments *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	factory := promauto.With(reg)
	return &StockMetrics{
		adjustments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_adjustments_total",
			Help: "Stock adjustment attempts by result.",
		}, []string{"result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stock_adjustment_duration_seconds",
			Help:    "Time spent applying a stock adjustment, by result.",
			Buckets: stockBuckets,
		}, []string{"result"}),
	}
}

func (s *StockMetrics) Observe(result string, took time.Duration) {
	if s == nil || s.adjustments == nil {
		return
	}
	result = labelOrUnknown(result)
	s.adjustments.WithLabelValues(result).Inc()
	s.duration.WithLabelValues(result).Observe(took.Seconds())
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
