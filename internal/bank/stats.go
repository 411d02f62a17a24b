package bank

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stats exposes the bank-side counters. The registerer is injected so tests
// can use a private registry.
type Stats struct {
	transactionsProcessed prometheus.Counter
	transactionsRejected  prometheus.Counter
	registrations         *prometheus.CounterVec
}

func NewStats(registerer prometheus.Registerer) *Stats {
	s := &Stats{
		transactionsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upig_bank_transactions_processed_total",
			Help: "Number of transactions committed to the ledger",
		}),
		transactionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upig_bank_transactions_rejected_total",
			Help: "Number of transactions rejected by validation",
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upig_bank_registrations_total",
			Help: "Number of successful registrations by identity kind",
		}, []string{"kind"}),
	}

	registerer.MustRegister(s.transactionsProcessed, s.transactionsRejected, s.registrations)

	return s
}
