package modbus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

var (
	transactionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edabridge",
		Subsystem: "modbus",
		Name:      "transactions_total",
		Help:      "Modbus transactions issued, by operation and result.",
	}, []string{"operation", "result"})

	transactionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "edabridge",
		Subsystem: "modbus",
		Name:      "transaction_duration_seconds",
		Help:      "Time spent on the bus per modbus transaction.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"operation"})

	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(transactionsTotal, transactionDuration)
	})
}

func observeTransaction(operation string, start time.Time, err error) {
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	transactionsTotal.WithLabelValues(operation, result).Inc()
	transactionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
