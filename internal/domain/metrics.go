package domain

import "time"

// Admission outcomes reported to MetricsRecorder.
const (
	OutcomeBooked    = "booked"
	OutcomeSoldOut   = "sold_out"
	OutcomeConflict  = "conflict"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
)

// MetricsRecorder receives counters from the reservation lifecycle.
type MetricsRecorder interface {
	ObserveReservation(outcome string)
	ObserveCriticalSection(operation string, d time.Duration)
	ObserveRetry(operation string)
}
