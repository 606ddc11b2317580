package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "authshop",
	Name:      "account_operations_total",
	Help:      "Account operations by name and outcome.",
}, []string{"operation", "outcome"})

func observe(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
}
