package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toggleEventsDispatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audioremoted_bridge_events_dispatched_total",
			Help: "Total number of toggle events dispatched to the browser extension",
		},
	)

	correlationsResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audioremoted_bridge_correlations_resolved_total",
			Help: "Total number of bridge correlations resolved by a confirmation",
		},
	)

	correlationsTimedOutTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audioremoted_bridge_correlations_timed_out_total",
			Help: "Total number of bridge correlations that hit the confirmation window",
		},
	)

	correlationsSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audioremoted_bridge_correlations_superseded_total",
			Help: "Total number of bridge correlations superseded by a later toggle",
		},
	)

	staleConfirmationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audioremoted_bridge_stale_confirmations_total",
			Help: "Total number of confirmations discarded as stale",
		},
	)
)

func recordDispatched() { toggleEventsDispatchedTotal.Inc() }
func recordResolved()   { correlationsResolvedTotal.Inc() }
func recordTimedOut()   { correlationsTimedOutTotal.Inc() }
func recordSuperseded() { correlationsSupersededTotal.Inc() }
func recordStale()      { staleConfirmationsTotal.Inc() }
