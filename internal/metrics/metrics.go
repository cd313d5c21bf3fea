package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "journeybot", Name: "updates_total", Help: "Webhook updates by disposition"},
		[]string{"disposition"},
	)
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "journeybot", Name: "journey_transitions_total", Help: "Journey state machine transitions by outcome"},
		[]string{"transition", "outcome"},
	)
	AuthRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "journeybot", Name: "auth_rejections_total", Help: "Rejected initData verifications by reason"},
		[]string{"reason"},
	)
	NotifyFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "journeybot", Name: "notify_failures_total", Help: "Failed outbound acknowledgement messages"},
	)
)
