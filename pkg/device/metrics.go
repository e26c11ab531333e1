package device

import (
	"sync"

	"edabridge/pkg/enervent"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	readingGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "edabridge",
			Name:      "reading",
			Help:      "Last value read for each ventilation unit reading.",
		},
		[]string{"name"},
	)

	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(readingGauge)
	})
}

func observeReadings(r enervent.Readings) {
	for name, v := range r.Map() {
		readingGauge.WithLabelValues(name).Set(v)
	}
}
