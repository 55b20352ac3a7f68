package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SaleCommitsTotal counts sale commit outcomes.
	SaleCommitsTotal *prometheus.CounterVec
	// SaleCommitDuration records sale commit latency in milliseconds.
	SaleCommitDuration prometheus.Histogram
	// LowStockAlertsTotal counts low-stock advisories emitted after commits.
	LowStockAlertsTotal prometheus.Counter
	// ExchangeRateUpdatesTotal counts merchant exchange rate updates.
	ExchangeRateUpdatesTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SaleCommitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_commits_total",
			Help:      "Count of sale commit outcomes.",
		}, []string{"result"})
		SaleCommitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_commit_duration_ms",
			Help:      "Latency of the sale commit transaction in milliseconds.",
			Buckets:   defaultLatencyBucketsMS,
		})
		LowStockAlertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_alerts_total",
			Help:      "Number of low-stock advisories emitted after successful commits.",
		})
		ExchangeRateUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_rate_updates_total",
			Help:      "Number of merchant exchange rate updates.",
		})

		mustRegisterCollector(reg, SaleCommitsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleCommitsTotal = v
			}
		})
		mustRegisterCollector(reg, SaleCommitDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SaleCommitDuration = v
			}
		})
		mustRegisterCollector(reg, LowStockAlertsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				LowStockAlertsTotal = v
			}
		})
		mustRegisterCollector(reg, ExchangeRateUpdatesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ExchangeRateUpdatesTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
