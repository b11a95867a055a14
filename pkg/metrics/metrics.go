package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement and poller counters. Channel labels match the
// SettlementChannel values ("webhook", "chain_poll", "reconcile").
var (
	SettlementsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_applied_total",
		Help: "Settlement events that mutated the ledger, by outcome and delivery channel",
	}, []string{"outcome", "channel"})

	SettlementsDeduped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_deduped_total",
		Help: "Settlement events absorbed by an already-terminal record",
	}, []string{"channel"})

	PollerBlocksScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poller_blocks_scanned_total",
		Help: "Blocks scanned for purchase confirmation logs",
	})

	PollerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poller_errors_total",
		Help: "Chain poller tick errors",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Provider webhook events received, by type",
	}, []string{"type"})
)
