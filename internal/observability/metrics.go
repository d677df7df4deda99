package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters for the contract engine. They are registered on the default
// registry and exposed by the /metrics endpoint next to the HTTP metrics.
//
// Label values are bounded: action is accept/reject/cancel, outcome is one of
// the outcome constants below, and channel is EMAIL/WHATSAPP.
var (
	// ContractsAdjudicated counts adjudication attempts by action and outcome.
	ContractsAdjudicated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contracts_adjudicated_total",
			Help: "Adjudication attempts by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	// NotificationsDispatched counts delivery attempts by channel and outcome.
	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notification delivery attempts by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	// ContractsExpired counts contracts moved to EXPIRED by the sweeper.
	ContractsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contracts_expired_total",
			Help: "Contracts transitioned to EXPIRED.",
		},
	)

	// ExpiryRemindersEnqueued counts contracts that received an expiry reminder.
	ExpiryRemindersEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_reminders_enqueued_total",
			Help: "Contracts for which an expiry reminder was enqueued.",
		},
	)
)

// Outcome label values.
const (
	OutcomeOK                 = "ok"
	OutcomeInvalidTransition  = "invalid_transition"
	OutcomeAlreadyAdjudicated = "already_adjudicated"
	OutcomeNotFound           = "not_found"
	OutcomeError              = "error"

	OutcomeSent    = "sent"
	OutcomeRetried = "retried"
	OutcomeFailed  = "failed"
)

func init() {
	prometheus.MustRegister(ContractsAdjudicated, NotificationsDispatched, ContractsExpired, ExpiryRemindersEnqueued)
}
