package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiftlane/backend/internal/models"
	"github.com/shiftlane/backend/internal/notify"
	"github.com/shiftlane/backend/internal/verify"
)

// Tracking sub-states derived from the assignment's timestamps.
const (
	TrackingNotStarted = "not_started"
	TrackingClockedIn  = "clocked_in"
	TrackingOnBreak    = "on_break"
	TrackingClockedOut = "clocked_out"
)

type TrackingConfig struct {
	// Clock-in window around the scheduled start.
	ClockInEarlyTolerance time.Duration
	ClockInLateTolerance  time.Duration

	GeofenceRadiusM float64

	MandatoryBreakMinutes    int
	MandatoryBreakShiftHours float64
}

func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		ClockInEarlyTolerance:    15 * time.Minute,
		ClockInLateTolerance:     2 * time.Hour,
		GeofenceRadiusM:          100,
		MandatoryBreakMinutes:    30,
		MandatoryBreakShiftHours: 6,
	}
}

// AssignmentStore is the persistence surface of the tracker. All writes are
// single-row updates; no cross-request locking is needed here. Shift writes go
// through SetShiftStatus only, so the tracker never carries fill state through
// a read-modify-write.
type AssignmentStore interface {
	GetAssignment(ctx context.Context, id string) (models.ShiftAssignment, error)
	UpdateAssignment(ctx context.Context, a models.ShiftAssignment) error
	GetShift(ctx context.Context, id string) (models.Shift, error)
	SetShiftStatus(ctx context.Context, shiftID string, status models.ShiftStatus, now time.Time) error
	GetWorker(ctx context.Context, id string) (models.WorkerProfile, error)
	ListAssignmentsByShift(ctx context.Context, shiftID string) ([]models.ShiftAssignment, error)
}

type Tracker struct {
	Store    AssignmentStore
	Verifier verify.Verifier
	Notify   notify.Sink
	Config   TrackingConfig
	Logger   zerolog.Logger

	Now func() time.Time
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now().UTC()
}

// TrackingState reports where the assignment sits in the clock-in/out cycle.
func TrackingState(a models.ShiftAssignment) string {
	switch {
	case a.ActualClockInAt == nil:
		return TrackingNotStarted
	case a.ActualClockOutAt != nil:
		return TrackingClockedOut
	case a.BreakStartedAt != nil:
		return TrackingOnBreak
	default:
		return TrackingClockedIn
	}
}

type ClockInRequest struct {
	Lat            *float64 `json:"lat,omitempty"`
	Lon            *float64 `json:"lon,omitempty"`
	FaceImage      string   `json:"face_image,omitempty"`
	QRCode         string   `json:"qr_code,omitempty"`
	SupervisorCode string   `json:"supervisor_code,omitempty"`
}

func (t *Tracker) ClockIn(ctx context.Context, assignmentID string, req ClockInRequest) (models.ShiftAssignment, error) {
	a, shift, err := t.load(ctx, assignmentID)
	if err != nil {
		return models.ShiftAssignment{}, err
	}
	if a.Status == models.AssignmentCancelled || a.Status == models.AssignmentCompleted {
		return models.ShiftAssignment{}, failf(CodeInvalidState, "assignment is %s", a.Status)
	}
	if a.ActualClockInAt != nil {
		return models.ShiftAssignment{}, failf(CodeAlreadyClockedIn, "worker already clocked in at %s", a.ActualClockInAt.Format(time.RFC3339))
	}

	now := t.now()
	earliest := a.ScheduledStart.Add(-t.Config.ClockInEarlyTolerance)
	latest := a.ScheduledStart.Add(t.Config.ClockInLateTolerance)
	if now.Before(earliest) || now.After(latest) {
		return models.ShiftAssignment{}, failf(CodeTimeRestriction,
			"clock-in allowed between %s and %s", earliest.Format(time.RFC3339), latest.Format(time.RFC3339))
	}

	result, err := t.verifyBundle(ctx, a, shift, req)
	if err != nil {
		return models.ShiftAssignment{}, failf(CodeIdentityFailed, "verification unavailable: %s", err)
	}
	if !result.Passed {
		code := CodeIdentityFailed
		if result.Code == verify.CodeLocationFailed {
			code = CodeLocationFailed
		}
		return models.ShiftAssignment{}, failf(code, "%s", result.Reason)
	}

	a.ActualClockInAt = &now
	a.ClockInAt = &now
	late := int(math.Round(now.Sub(a.ScheduledStart).Minutes()))
	if late > 0 {
		a.WasLate = true
		a.LateMinutes = late
	}
	if now.Before(a.ScheduledStart) {
		a.Status = models.AssignmentCheckedIn
	} else {
		a.Status = models.AssignmentInProgress
	}
	a.UpdatedAt = now

	if err := t.Store.UpdateAssignment(ctx, a); err != nil {
		return models.ShiftAssignment{}, err
	}

	if shift.Status == models.ShiftAssigned || shift.Status == models.ShiftOpen {
		if err := t.Store.SetShiftStatus(ctx, shift.ID, models.ShiftInProgress, now); err != nil {
			return models.ShiftAssignment{}, err
		}
	}

	t.Notify.Emit(notify.Event{Type: notify.EventClockIn, At: now, Fields: map[string]any{
		"assignment_id": a.ID,
		"worker_id":     a.WorkerID,
		"method":        result.Method,
		"late_minutes":  a.LateMinutes,
	}})
	return a, nil
}

func (t *Tracker) BreakStart(ctx context.Context, assignmentID string) (models.ShiftAssignment, error) {
	a, err := t.Store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return models.ShiftAssignment{}, t.mapLoadErr(err, assignmentID)
	}
	switch TrackingState(a) {
	case TrackingNotStarted:
		return models.ShiftAssignment{}, failf(CodeNotClockedIn, "worker has not clocked in")
	case TrackingClockedOut:
		return models.ShiftAssignment{}, failf(CodeAlreadyClockedOut, "worker already clocked out")
	case TrackingOnBreak:
		return models.ShiftAssignment{}, failf(CodeAlreadyOnBreak, "break already in progress")
	}

	now := t.now()
	a.BreakStartedAt = &now
	a.UpdatedAt = now
	if err := t.Store.UpdateAssignment(ctx, a); err != nil {
		return models.ShiftAssignment{}, err
	}
	t.Notify.Emit(notify.Event{Type: notify.EventBreakStart, At: now, Fields: map[string]any{
		"assignment_id": a.ID,
	}})
	return a, nil
}

func (t *Tracker) BreakEnd(ctx context.Context, assignmentID string) (models.ShiftAssignment, error) {
	a, err := t.Store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return models.ShiftAssignment{}, t.mapLoadErr(err, assignmentID)
	}
	if TrackingState(a) != TrackingOnBreak {
		return models.ShiftAssignment{}, failf(CodeNotOnBreak, "no break in progress")
	}

	now := t.now()
	minutes := int(math.Round(now.Sub(*a.BreakStartedAt).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	a.TotalBreakMinutes += minutes
	a.BreakStartedAt = nil
	a.MandatoryBreakTaken = t.mandatoryBreakTaken(a)
	a.UpdatedAt = now

	if err := t.Store.UpdateAssignment(ctx, a); err != nil {
		return models.ShiftAssignment{}, err
	}
	t.Notify.Emit(notify.Event{Type: notify.EventBreakEnd, At: now, Fields: map[string]any{
		"assignment_id":       a.ID,
		"break_minutes":       minutes,
		"total_break_minutes": a.TotalBreakMinutes,
	}})
	return a, nil
}

func (t *Tracker) ClockOut(ctx context.Context, assignmentID string) (models.ShiftAssignment, error) {
	a, err := t.Store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return models.ShiftAssignment{}, t.mapLoadErr(err, assignmentID)
	}
	switch TrackingState(a) {
	case TrackingNotStarted:
		return models.ShiftAssignment{}, failf(CodeNotClockedIn, "worker has not clocked in")
	case TrackingClockedOut:
		return models.ShiftAssignment{}, failf(CodeAlreadyClockedOut, "worker already clocked out")
	}

	now := t.now()

	// An open break ends implicitly at clock-out.
	if a.BreakStartedAt != nil {
		minutes := int(math.Round(now.Sub(*a.BreakStartedAt).Minutes()))
		if minutes > 0 {
			a.TotalBreakMinutes += minutes
		}
		a.BreakStartedAt = nil
	}

	a.ActualClockOutAt = &now
	a.ClockOutAt = &now

	a.GrossHours = roundHours(now.Sub(*a.ActualClockInAt).Hours())
	a.BreakDeductionHours = roundHours(float64(a.TotalBreakMinutes) / 60)
	a.NetHoursWorked = roundHours(a.GrossHours - a.BreakDeductionHours)
	if a.NetHoursWorked < 0 {
		a.NetHoursWorked = 0
	}

	if early := int(math.Round(a.ScheduledEnd.Sub(now).Minutes())); early > 0 {
		a.EarlyDeparture = true
		a.EarlyDepartureMinutes = early
	}
	if over := now.Sub(a.ScheduledEnd).Hours(); over > 0 {
		a.OvertimeWorked = true
		a.OvertimeHours = roundHours(over)
	}

	a.MandatoryBreakTaken = t.mandatoryBreakTaken(a)
	a.Status = models.AssignmentCompleted
	a.UpdatedAt = now

	if err := t.Store.UpdateAssignment(ctx, a); err != nil {
		return models.ShiftAssignment{}, err
	}

	if err := t.completeShiftIfDone(ctx, a.ShiftID, now); err != nil {
		t.Logger.Error().Err(err).Str("shift_id", a.ShiftID).Msg("shift completion check failed")
	}

	t.Notify.Emit(notify.Event{Type: notify.EventClockOut, At: now, Fields: map[string]any{
		"assignment_id":  a.ID,
		"net_hours":      a.NetHoursWorked,
		"overtime_hours": a.OvertimeHours,
	}})
	return a, nil
}

type TrackingStatus struct {
	Assignment models.ShiftAssignment `json:"assignment"`
	State      string                 `json:"state"`
}

func (t *Tracker) Status(ctx context.Context, assignmentID string) (TrackingStatus, error) {
	a, err := t.Store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return TrackingStatus{}, t.mapLoadErr(err, assignmentID)
	}
	return TrackingStatus{Assignment: a, State: TrackingState(a)}, nil
}

func (t *Tracker) load(ctx context.Context, assignmentID string) (models.ShiftAssignment, models.Shift, error) {
	a, err := t.Store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return models.ShiftAssignment{}, models.Shift{}, t.mapLoadErr(err, assignmentID)
	}
	shift, err := t.Store.GetShift(ctx, a.ShiftID)
	if err != nil {
		return models.ShiftAssignment{}, models.Shift{}, err
	}
	return a, shift, nil
}

func (t *Tracker) mapLoadErr(err error, assignmentID string) error {
	if errors.Is(err, ErrNotFound) {
		return failf(CodeNotFound, "assignment %s not found", assignmentID)
	}
	return err
}

func (t *Tracker) verifyBundle(ctx context.Context, a models.ShiftAssignment, shift models.Shift, req ClockInRequest) (verify.Result, error) {
	vr := verify.Request{
		WorkerID:       a.WorkerID,
		Lat:            req.Lat,
		Lon:            req.Lon,
		FaceImage:      req.FaceImage,
		QRCode:         req.QRCode,
		SupervisorCode: req.SupervisorCode,
		ExpectedQR:     shift.ID,
	}
	if shift.Lat != nil && shift.Lon != nil {
		radius := t.Config.GeofenceRadiusM
		if shift.GeofenceRadiusM != nil {
			radius = *shift.GeofenceRadiusM
		}
		vr.Venue = &verify.Geofence{Lat: *shift.Lat, Lon: *shift.Lon, RadiusM: radius}
	}
	if worker, err := t.Store.GetWorker(ctx, a.WorkerID); err == nil {
		vr.FaceReference = worker.FaceReferenceToken
	}
	return t.Verifier.Verify(ctx, vr)
}

func (t *Tracker) mandatoryBreakTaken(a models.ShiftAssignment) bool {
	scheduled := a.ScheduledEnd.Sub(a.ScheduledStart).Hours()
	return scheduled >= t.Config.MandatoryBreakShiftHours &&
		a.TotalBreakMinutes >= t.Config.MandatoryBreakMinutes
}

func (t *Tracker) completeShiftIfDone(ctx context.Context, shiftID string, now time.Time) error {
	assignments, err := t.Store.ListAssignmentsByShift(ctx, shiftID)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if a.Status != models.AssignmentCompleted && a.Status != models.AssignmentCancelled {
			return nil
		}
	}
	shift, err := t.Store.GetShift(ctx, shiftID)
	if err != nil {
		return err
	}
	if shift.Status == models.ShiftCompleted || shift.Status == models.ShiftCancelled {
		return nil
	}
	return t.Store.SetShiftStatus(ctx, shiftID, models.ShiftCompleted, now)
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
