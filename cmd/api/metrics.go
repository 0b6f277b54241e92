package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Binary-level metrics for the ATE API. Request metrics live with the REST
// middleware and assessment metrics with the otel registry; this file only
// carries what is known at process scope.

var (
	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ate",
			Subsystem: "api",
			Name:      "build_info",
			Help:      "Build metadata for the running binary; value is always 1",
		},
		[]string{"version", "environment"},
	)

	processStart = time.Now()

	_ = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "ate",
			Subsystem: "api",
			Name:      "uptime_seconds",
			Help:      "Seconds since the API process started",
		},
		func() float64 {
			return time.Since(processStart).Seconds()
		},
	)
)
