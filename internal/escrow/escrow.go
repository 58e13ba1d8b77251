package escrow

import "context"

type HoldRequest struct {
	AssignmentID string  `json:"assignment_id"`
	ShiftID      string  `json:"shift_id"`
	BusinessID   string  `json:"business_id"`
	WorkerID     string  `json:"worker_id"`
	AmountCents  int64   `json:"amount_cents"`
	Currency     string  `json:"currency"`
	HourlyRate   float64 `json:"hourly_rate"`
	Hours        float64 `json:"hours"`
}

type HoldResult struct {
	Held   bool   `json:"held"`
	HoldID string `json:"hold_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Gateway reserves funds for an assignment before work begins. A transport
// error or timeout is a failure, never a success.
type Gateway interface {
	Hold(ctx context.Context, req HoldRequest) (HoldResult, error)
}

// AmountCents is the escrow amount for a shift: rate x scheduled hours.
func AmountCents(hourlyRate, hours float64) int64 {
	return int64(hourlyRate*hours*100 + 0.5)
}
