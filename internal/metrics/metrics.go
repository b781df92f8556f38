package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_payments_recorded_total",
		Help: "Payments committed to the ledger.",
	})

	PaymentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_payment_failures_total",
		Help: "Payment applications rejected or rolled back.",
	})

	RegistrationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_registrations_created_total",
		Help: "Registrations created.",
	})

	RegistrationsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_registrations_cancelled_total",
		Help: "Registrations cancelled (cascading delete).",
	})

	ExportsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_exports_started_total",
		Help: "Ledger exports queued.",
	})
)
