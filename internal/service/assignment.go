package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiftlane/backend/internal/escrow"
	"github.com/shiftlane/backend/internal/matching"
	"github.com/shiftlane/backend/internal/models"
	"github.com/shiftlane/backend/internal/notify"
	"github.com/shiftlane/backend/internal/pricing"
)

// ErrNotFound is returned by stores for missing rows.
var ErrNotFound = errors.New("not found")

const BusinessRole = "business"

// ShiftStore is the persistence surface of the coordinator. AcceptApplication
// and EditShift must serialize on the shift row: implementations hold a
// per-shift lock around DecideAccept / DecideEdit and the resulting writes,
// nothing more. The escrow call happens outside that lock, on the committed
// assignment.
type ShiftStore interface {
	GetBusiness(ctx context.Context, id string) (models.Business, error)
	GetWorker(ctx context.Context, id string) (models.WorkerProfile, error)

	CreateShift(ctx context.Context, s models.Shift) error
	GetShift(ctx context.Context, id string) (models.Shift, error)
	EditShift(ctx context.Context, shiftID string, in UpdateShiftInput, cfg pricing.Config, now time.Time) (models.Shift, error)
	CancelShiftCascade(ctx context.Context, shiftID string, now time.Time) error

	CreateApplication(ctx context.Context, a models.ShiftApplication) error
	HasApplication(ctx context.Context, shiftID, workerID string) (bool, error)
	ListPendingApplications(ctx context.Context, shiftID string) ([]models.ShiftApplication, error)

	AcceptApplication(ctx context.Context, shiftID, workerID string, now time.Time) (models.Shift, models.ShiftAssignment, error)
	UpdateAssignmentPayment(ctx context.Context, assignmentID string, status models.PaymentStatus) error
	ActiveAssignmentForWorker(ctx context.Context, workerID string) (models.ShiftAssignment, error)
}

type Coordinator struct {
	Store   ShiftStore
	Escrow  escrow.Gateway
	Notify  notify.Sink
	Pricing pricing.Config
	Logger  zerolog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

type PostShiftInput struct {
	BusinessID      string
	Industry        string
	Address         string
	Lat             *float64
	Lon             *float64
	GeofenceRadiusM *float64
	Date            time.Time
	StartTime       time.Time
	EndTime         time.Time
	BaseRate        float64
	Urgency         models.UrgencyLevel
	RequiredSkills  []string
	RequiredWorkers int
}

func (c *Coordinator) PostShift(ctx context.Context, in PostShiftInput) (models.Shift, error) {
	if in.RequiredWorkers < 1 {
		return models.Shift{}, failf(CodeValidation, "required_workers must be at least 1")
	}
	if in.BaseRate <= 0 {
		return models.Shift{}, failf(CodeValidation, "base_rate must be positive")
	}

	business, err := c.Store.GetBusiness(ctx, in.BusinessID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Shift{}, failf(CodeNotFound, "business %s not found", in.BusinessID)
		}
		return models.Shift{}, err
	}
	if business.Role != BusinessRole {
		return models.Shift{}, failf(CodeNotBusiness, "account %s cannot post shifts", in.BusinessID)
	}

	now := c.now()
	duration, err := pricing.DurationHours(in.StartTime, in.EndTime)
	if err != nil {
		return models.Shift{}, failf(CodeValidation, "invalid shift window: %s", err)
	}
	quote, err := pricing.Compute(c.Pricing, pricing.Input{
		BaseRate: in.BaseRate,
		Start:    in.StartTime,
		End:      in.EndTime,
		Industry: in.Industry,
		Urgency:  in.Urgency,
		Now:      now,
	})
	if err != nil {
		return models.Shift{}, failf(CodeValidation, "pricing failed: %s", err)
	}

	shift := models.Shift{
		ID:              uuid.NewString(),
		BusinessID:      in.BusinessID,
		Industry:        in.Industry,
		Address:         in.Address,
		Lat:             in.Lat,
		Lon:             in.Lon,
		GeofenceRadiusM: in.GeofenceRadiusM,
		Date:            in.Date,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		DurationHours:   duration,
		BaseRate:        in.BaseRate,
		DynamicRate:     quote.DynamicRate,
		FinalRate:       quote.FinalRate,
		Urgency:         in.Urgency,
		RequiredSkills:  in.RequiredSkills,
		RequiredWorkers: in.RequiredWorkers,
		FilledWorkers:   0,
		Status:          models.ShiftOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if shift.Urgency == "" {
		shift.Urgency = models.UrgencyNormal
	}

	if err := c.Store.CreateShift(ctx, shift); err != nil {
		return models.Shift{}, err
	}
	c.Notify.Emit(notify.Event{Type: notify.EventShiftPosted, At: now, Fields: map[string]any{
		"shift_id":    shift.ID,
		"business_id": shift.BusinessID,
		"final_rate":  shift.FinalRate,
	}})
	return shift, nil
}

type UpdateShiftInput struct {
	Address         *string
	Lat             *float64
	Lon             *float64
	GeofenceRadiusM *float64
	Date            *time.Time
	StartTime       *time.Time
	EndTime         *time.Time
	BaseRate        *float64
	Urgency         *models.UrgencyLevel
	RequiredSkills  []string
}

// UpdateShift edits an editable shift. The store evaluates DecideEdit under
// the same per-shift lock accepts take, so an edit can never write stale fill
// state back over a concurrent accept.
func (c *Coordinator) UpdateShift(ctx context.Context, shiftID string, in UpdateShiftInput) (models.Shift, error) {
	now := c.now()
	shift, err := c.Store.EditShift(ctx, shiftID, in, c.Pricing, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Shift{}, failf(CodeNotFound, "shift %s not found", shiftID)
		}
		return models.Shift{}, err
	}
	c.Notify.Emit(notify.Event{Type: notify.EventShiftUpdated, At: now, Fields: map[string]any{
		"shift_id": shift.ID,
		"repriced": repricesShift(in),
	}})
	return shift, nil
}

func repricesShift(in UpdateShiftInput) bool {
	return in.Date != nil || in.StartTime != nil || in.EndTime != nil ||
		in.BaseRate != nil || in.Urgency != nil
}

// DecideEdit applies an edit to a shift snapshot. Like DecideAccept it is pure
// and is evaluated inside the store's per-shift critical section; it never
// touches Status or FilledWorkers, which belong to the accept transition.
func DecideEdit(shift models.Shift, in UpdateShiftInput, cfg pricing.Config, now time.Time) (models.Shift, *OpError) {
	switch shift.Status {
	case models.ShiftInProgress, models.ShiftCompleted, models.ShiftCancelled:
		return shift, failf(CodeInvalidState, "shift in status %s cannot be edited", shift.Status)
	}

	if in.Address != nil {
		shift.Address = *in.Address
	}
	if in.Lat != nil {
		shift.Lat = in.Lat
	}
	if in.Lon != nil {
		shift.Lon = in.Lon
	}
	if in.GeofenceRadiusM != nil {
		shift.GeofenceRadiusM = in.GeofenceRadiusM
	}
	if in.Date != nil {
		shift.Date = *in.Date
	}
	if in.StartTime != nil {
		shift.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		shift.EndTime = *in.EndTime
	}
	if in.BaseRate != nil {
		if *in.BaseRate <= 0 {
			return shift, failf(CodeValidation, "base_rate must be positive")
		}
		shift.BaseRate = *in.BaseRate
	}
	if in.Urgency != nil {
		shift.Urgency = *in.Urgency
	}
	if in.RequiredSkills != nil {
		shift.RequiredSkills = in.RequiredSkills
	}

	if repricesShift(in) {
		duration, err := pricing.DurationHours(shift.StartTime, shift.EndTime)
		if err != nil {
			return shift, failf(CodeValidation, "invalid shift window: %s", err)
		}
		quote, err := pricing.Compute(cfg, pricing.Input{
			BaseRate: shift.BaseRate,
			Start:    shift.StartTime,
			End:      shift.EndTime,
			Industry: shift.Industry,
			Urgency:  shift.Urgency,
			Now:      now,
		})
		if err != nil {
			return shift, failf(CodeValidation, "pricing failed: %s", err)
		}
		shift.DurationHours = duration
		shift.DynamicRate = quote.DynamicRate
		shift.FinalRate = quote.FinalRate
	}
	shift.UpdatedAt = now
	return shift, nil
}

func (c *Coordinator) CancelShift(ctx context.Context, shiftID string) error {
	shift, err := c.Store.GetShift(ctx, shiftID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return failf(CodeNotFound, "shift %s not found", shiftID)
		}
		return err
	}
	if shift.Status == models.ShiftCompleted {
		return failf(CodeInvalidState, "completed shift cannot be cancelled")
	}
	if shift.Status == models.ShiftCancelled {
		return failf(CodeInvalidState, "shift already cancelled")
	}

	now := c.now()
	if err := c.Store.CancelShiftCascade(ctx, shiftID, now); err != nil {
		return err
	}
	c.Notify.Emit(notify.Event{Type: notify.EventShiftCancelled, At: now, Fields: map[string]any{
		"shift_id": shiftID,
	}})
	return nil
}

func (c *Coordinator) Apply(ctx context.Context, shiftID, workerID string) (models.ShiftApplication, error) {
	shift, err := c.Store.GetShift(ctx, shiftID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.ShiftApplication{}, failf(CodeNotFound, "shift %s not found", shiftID)
		}
		return models.ShiftApplication{}, err
	}
	if shift.Status != models.ShiftOpen {
		return models.ShiftApplication{}, failf(CodeInvalidState, "shift is %s, applications closed", shift.Status)
	}
	if _, err := c.Store.GetWorker(ctx, workerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.ShiftApplication{}, failf(CodeNotFound, "worker %s not found", workerID)
		}
		return models.ShiftApplication{}, err
	}

	exists, err := c.Store.HasApplication(ctx, shiftID, workerID)
	if err != nil {
		return models.ShiftApplication{}, err
	}
	if exists {
		return models.ShiftApplication{}, failf(CodeDuplicateApply, "worker %s already applied to shift %s", workerID, shiftID)
	}

	now := c.now()
	app := models.ShiftApplication{
		ID:        uuid.NewString(),
		ShiftID:   shiftID,
		WorkerID:  workerID,
		Status:    models.ApplicationPending,
		AppliedAt: now,
	}
	if err := c.Store.CreateApplication(ctx, app); err != nil {
		return models.ShiftApplication{}, err
	}
	c.Notify.Emit(notify.Event{Type: notify.EventApplicationReceived, At: now, Fields: map[string]any{
		"shift_id":  shiftID,
		"worker_id": workerID,
	}})
	return app, nil
}

// RankApplicants scores every pending applicant against the shift and returns
// them in display order. Read-only.
func (c *Coordinator) RankApplicants(ctx context.Context, shiftID string) ([]matching.RankedApplicant, error) {
	shift, err := c.Store.GetShift(ctx, shiftID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, failf(CodeNotFound, "shift %s not found", shiftID)
		}
		return nil, err
	}
	apps, err := c.Store.ListPendingApplications(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	ranked := make([]matching.RankedApplicant, 0, len(apps))
	for _, app := range apps {
		worker, err := c.Store.GetWorker(ctx, app.WorkerID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		ranked = append(ranked, matching.RankedApplicant{
			Application: app,
			Worker:      worker,
			Score:       matching.ScoreWorker(worker, shift),
		})
	}
	return matching.Rank(ranked), nil
}

type AcceptResult struct {
	Shift      models.Shift           `json:"shift"`
	Assignment models.ShiftAssignment `json:"assignment"`
	EscrowHeld bool                   `json:"escrow_held"`
	EscrowInfo string                 `json:"escrow_info,omitempty"`
}

// Accept converts a pending application into an assignment. The headcount
// check and increment run under the store's per-shift lock; the escrow hold
// runs afterwards on the committed assignment, so a slow gateway never extends
// the critical section. A failed hold leaves the assignment in place with
// payment_status=pending for reconciliation and is reported to the caller.
func (c *Coordinator) Accept(ctx context.Context, shiftID, workerID string) (AcceptResult, error) {
	now := c.now()
	shift, assignment, err := c.Store.AcceptApplication(ctx, shiftID, workerID, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AcceptResult{}, failf(CodeNotFound, "application for shift %s by worker %s not found", shiftID, workerID)
		}
		return AcceptResult{}, err
	}

	c.Notify.Emit(notify.Event{Type: notify.EventApplicationAccepted, At: now, Fields: map[string]any{
		"shift_id":      shiftID,
		"worker_id":     workerID,
		"assignment_id": assignment.ID,
	}})
	if shift.Status == models.ShiftAssigned {
		c.Notify.Emit(notify.Event{Type: notify.EventShiftFilled, At: now, Fields: map[string]any{
			"shift_id":  shiftID,
			"filled_at": shift.FilledAt,
		}})
	}

	result := AcceptResult{Shift: shift, Assignment: assignment}

	holdReq := escrow.HoldRequest{
		AssignmentID: assignment.ID,
		ShiftID:      shift.ID,
		BusinessID:   shift.BusinessID,
		WorkerID:     workerID,
		AmountCents:  escrow.AmountCents(shift.FinalRate, shift.DurationHours),
		Currency:     "USD",
		HourlyRate:   shift.FinalRate,
		Hours:        shift.DurationHours,
	}
	hold, err := c.Escrow.Hold(ctx, holdReq)
	if err != nil {
		c.Logger.Error().Err(err).Str("assignment_id", assignment.ID).Msg("escrow hold error")
		return result, failf(CodeEscrowHoldFailed, "escrow gateway unavailable: %s", err)
	}
	if !hold.Held {
		c.Logger.Warn().Str("assignment_id", assignment.ID).Str("reason", hold.Reason).Msg("escrow hold declined")
		result.EscrowInfo = hold.Reason
		return result, failf(CodeEscrowHoldFailed, "escrow hold declined: %s", hold.Reason)
	}

	if err := c.Store.UpdateAssignmentPayment(ctx, assignment.ID, models.PaymentHeld); err != nil {
		return result, err
	}
	result.Assignment.PaymentStatus = models.PaymentHeld
	result.EscrowHeld = true
	result.EscrowInfo = hold.HoldID
	return result, nil
}

func (c *Coordinator) ActiveAssignment(ctx context.Context, workerID string) (models.ShiftAssignment, error) {
	a, err := c.Store.ActiveAssignmentForWorker(ctx, workerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.ShiftAssignment{}, failf(CodeNotFound, "no active assignment for worker %s", workerID)
		}
		return models.ShiftAssignment{}, err
	}
	return a, nil
}

// DecideAccept is the accept transition evaluated inside the store's per-shift
// critical section. It never mutates its inputs; the store persists the
// returned records in the same transaction that holds the lock.
func DecideAccept(shift models.Shift, app models.ShiftApplication, now time.Time) (models.Shift, models.ShiftApplication, models.ShiftAssignment, *OpError) {
	switch shift.Status {
	case models.ShiftOpen:
	case models.ShiftAssigned:
		return shift, app, models.ShiftAssignment{}, failf(CodeShiftFull, "shift %s is already full", shift.ID)
	default:
		return shift, app, models.ShiftAssignment{}, failf(CodeInvalidState, "shift is %s, cannot accept applications", shift.Status)
	}
	if app.Status != models.ApplicationPending {
		return shift, app, models.ShiftAssignment{}, failf(CodeInvalidState, "application is %s, only pending applications can be accepted", app.Status)
	}
	if shift.FilledWorkers >= shift.RequiredWorkers {
		return shift, app, models.ShiftAssignment{}, failf(CodeShiftFull, "shift %s is already full", shift.ID)
	}

	app.Status = models.ApplicationAccepted
	app.RespondedAt = &now

	assignment := models.ShiftAssignment{
		ID:             uuid.NewString(),
		ShiftID:        shift.ID,
		WorkerID:       app.WorkerID,
		Status:         models.AssignmentAssigned,
		PaymentStatus:  models.PaymentPending,
		ScheduledStart: shift.StartTime,
		ScheduledEnd:   shift.EndTime,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	shift.FilledWorkers++
	shift.UpdatedAt = now
	if shift.FilledWorkers == shift.RequiredWorkers {
		shift.Status = models.ShiftAssigned
		shift.FilledAt = &now
	}
	return shift, app, assignment, nil
}
