// Package metric provides Prometheus metrics for respkv.
package metric

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/respkv/internal/storage/memory"
)

// StatsSource reports store contents.
type StatsSource interface {
	Stats(ctx context.Context) memory.Stats
}

// StoreCollector exports store sizes at scrape time.
type StoreCollector struct {
	source StatsSource

	keysDesc    *prometheus.Desc
	expiredDesc *prometheus.Desc
}

// NewStoreCollector creates a collector reading from source.
func NewStoreCollector(source StatsSource) *StoreCollector {
	return &StoreCollector{
		source: source,
		keysDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "keys"),
			"Entries held in memory, expired ones included.",
			nil, nil,
		),
		expiredDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "expired_keys"),
			"Entries past their expiry that are still held in memory.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keysDesc
	ch <- c.expiredDesc
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats(context.Background())
	ch <- prometheus.MustNewConstMetric(c.keysDesc, prometheus.GaugeValue, float64(st.Keys))
	ch <- prometheus.MustNewConstMetric(c.expiredDesc, prometheus.GaugeValue, float64(st.Expired))
}
