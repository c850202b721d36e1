// Package metrics is the single source of truth for the protocol services'
// Prometheus metric names, labels and help strings. Metrics register with the
// default registry at import time via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trustup"

// LoansCreatedTotal counts successfully created loans by interest tier.
var LoansCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_created_total",
		Help:      "Total number of loans created, by interest rate tier (bps).",
	},
	[]string{"rate_bps"},
)

// RepaymentsTotal counts accepted repayments.
// Label result: "partial" or "full".
var RepaymentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "repayments_total",
		Help:      "Total number of accepted loan repayments, by result (partial/full).",
	},
	[]string{"result"},
)

// DefaultsTotal counts loans marked defaulted.
var DefaultsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "defaults_total",
		Help:      "Total number of loans marked defaulted.",
	},
)

// RequestErrorsTotal counts failed API operations.
// Label reason: short failure code (e.g. "merchant_inactive", "overpayment").
var RequestErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_errors_total",
		Help:      "Total number of failed API operations, by reason.",
	},
	[]string{"reason"},
)

// ChaincodeDuration measures ledger round-trip time per chaincode function.
var ChaincodeDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chaincode_duration_seconds",
		Help:      "Duration of chaincode submit/evaluate calls, by function.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"function"},
)
