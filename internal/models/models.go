package models

import "time"

type ShiftStatus string

const (
	ShiftOpen       ShiftStatus = "open"
	ShiftAssigned   ShiftStatus = "assigned"
	ShiftInProgress ShiftStatus = "in_progress"
	ShiftCompleted  ShiftStatus = "completed"
	ShiftCancelled  ShiftStatus = "cancelled"
)

type UrgencyLevel string

const (
	UrgencyNormal   UrgencyLevel = "normal"
	UrgencyUrgent   UrgencyLevel = "urgent"
	UrgencyCritical UrgencyLevel = "critical"
)

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentCheckedIn  AssignmentStatus = "checked_in"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentHeld     PaymentStatus = "held"
	PaymentReleased PaymentStatus = "released"
	PaymentPaidOut  PaymentStatus = "paid_out"
	PaymentFailed   PaymentStatus = "failed"
)

type Business struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Shift struct {
	ID              string       `json:"id"`
	BusinessID      string       `json:"business_id"`
	Industry        string       `json:"industry"`
	Address         string       `json:"address"`
	Lat             *float64     `json:"lat,omitempty"`
	Lon             *float64     `json:"lon,omitempty"`
	GeofenceRadiusM *float64     `json:"geofence_radius_m,omitempty"`
	Date            time.Time    `json:"date"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	DurationHours   float64      `json:"duration_hours"`
	BaseRate        float64      `json:"base_rate"`
	DynamicRate     float64      `json:"dynamic_rate"`
	FinalRate       float64      `json:"final_rate"`
	Urgency         UrgencyLevel `json:"urgency_level"`
	RequiredSkills  []string     `json:"required_skills"`
	RequiredWorkers int          `json:"required_workers"`
	FilledWorkers   int          `json:"filled_workers"`
	Status          ShiftStatus  `json:"status"`
	FilledAt        *time.Time   `json:"filled_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type ShiftApplication struct {
	ID          string            `json:"id"`
	ShiftID     string            `json:"shift_id"`
	WorkerID    string            `json:"worker_id"`
	Status      ApplicationStatus `json:"status"`
	AppliedAt   time.Time         `json:"applied_at"`
	RespondedAt *time.Time        `json:"responded_at,omitempty"`
}

type ShiftAssignment struct {
	ID            string           `json:"id"`
	ShiftID       string           `json:"shift_id"`
	WorkerID      string           `json:"worker_id"`
	Status        AssignmentStatus `json:"status"`
	PaymentStatus PaymentStatus    `json:"payment_status"`

	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`

	ClockInAt        *time.Time `json:"clock_in_at,omitempty"`
	ClockOutAt       *time.Time `json:"clock_out_at,omitempty"`
	ActualClockInAt  *time.Time `json:"actual_clock_in_at,omitempty"`
	ActualClockOutAt *time.Time `json:"actual_clock_out_at,omitempty"`

	BreakStartedAt      *time.Time `json:"break_started_at,omitempty"`
	TotalBreakMinutes   int        `json:"total_break_minutes"`
	MandatoryBreakTaken bool       `json:"mandatory_break_taken"`

	WasLate               bool    `json:"was_late"`
	LateMinutes           int     `json:"late_minutes"`
	EarlyDeparture        bool    `json:"early_departure"`
	EarlyDepartureMinutes int     `json:"early_departure_minutes"`
	OvertimeWorked        bool    `json:"overtime_worked"`
	OvertimeHours         float64 `json:"overtime_hours"`
	GrossHours            float64 `json:"gross_hours"`
	BreakDeductionHours   float64 `json:"break_deduction_hours"`
	NetHoursWorked        float64 `json:"net_hours_worked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvailabilityWindow is a worker's declared availability on one weekday,
// expressed as minutes since midnight.
type AvailabilityWindow struct {
	Weekday     time.Weekday `json:"weekday"`
	StartMinute int          `json:"start_minute"`
	EndMinute   int          `json:"end_minute"`
}

type WorkerProfile struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	Skills             []string             `json:"skills"`
	Certifications     []string             `json:"certifications"`
	Lat                *float64             `json:"lat,omitempty"`
	Lon                *float64             `json:"lon,omitempty"`
	Availability       []AvailabilityWindow `json:"availability"`
	Rating             float64              `json:"rating"`
	CompletedShifts    int                  `json:"completed_shifts"`
	IndustryMonths     map[string]int       `json:"industry_months"`
	HasPaymentMethod   bool                 `json:"has_payment_method"`
	FaceReferenceToken string               `json:"-"`
	UpdatedAt          time.Time            `json:"updated_at"`
}
