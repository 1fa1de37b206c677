package verify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts trial outcomes per strategy.
type Metrics struct {
	trials    *prometheus.CounterVec
	deviation *prometheus.HistogramVec
}

// NewMetrics registers the trial metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: strategy, result (pass, fail)
		trials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bdsp",
			Name:      "trials_total",
			Help:      "Total verification trials by strategy and result",
		}, []string{"strategy", "result"}),

		deviation: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bdsp",
			Name:      "trial_max_deviation",
			Help:      "Largest absolute gap between empirical and theoretical probability per trial",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.5},
		}, []string{"strategy"}),
	}
}

// Observe records one finished trial.
func (m *Metrics) Observe(res *Result) {
	result := "fail"
	if res.Passed {
		result = "pass"
	}
	m.trials.WithLabelValues(string(res.Strategy), result).Inc()
	m.deviation.WithLabelValues(string(res.Strategy)).Observe(res.MaxDeviation)
}
