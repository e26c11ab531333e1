package broker

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edabridge",
			Subsystem: "mqtt",
			Name:      "publishes_total",
			Help:      "MQTT publishes by result.",
		},
		[]string{"result"},
	)

	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(publishCounter)
	})
}

func observePublish(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	publishCounter.WithLabelValues(result).Inc()
}
