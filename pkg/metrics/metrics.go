// Package metrics 定义了流水线和服务端暴露的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var VLMDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "memeguard_vlm_duration_sec",
	Help: "Duration of VLM generate API calls",
})

var VLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "memeguard_vlm_calls_total",
	Help: "Number of VLM generate API calls, by kind and outcome",
}, []string{"kind", "outcome"})

var DeriveFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "memeguard_derive_fallbacks_total",
	Help: "Number of posts whose visual analysis degraded to the ERROR sentinel",
})

var RowsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "memeguard_rows_persisted_total",
	Help: "Number of feature rows written, by tier",
}, []string{"tier"})

var Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "memeguard_decisions_total",
	Help: "Number of serving decisions, by action",
}, []string{"action"})
