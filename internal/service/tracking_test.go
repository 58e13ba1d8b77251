package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiftlane/backend/internal/models"
	"github.com/shiftlane/backend/internal/notify"
	"github.com/shiftlane/backend/internal/verify"
)

type trackerFixture struct {
	tracker *Tracker
	store   *memStore
	now     time.Time
	shift   models.Shift
	assign  models.ShiftAssignment
}

// nineToFive seeds a 09:00-17:00 assignment with a venue geofence and a worker
// carrying a face reference.
func nineToFive(t *testing.T) *trackerFixture {
	t.Helper()
	f := &trackerFixture{store: newMemStore()}

	venueLat, venueLon := 40.7580, -73.9855
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	f.shift = models.Shift{
		ID:              "shift-1",
		BusinessID:      "biz-1",
		Industry:        "hospitality",
		Lat:             &venueLat,
		Lon:             &venueLon,
		StartTime:       start,
		EndTime:         start.Add(8 * time.Hour),
		DurationHours:   8,
		RequiredWorkers: 1,
		FilledWorkers:   1,
		Status:          models.ShiftAssigned,
	}
	f.assign = models.ShiftAssignment{
		ID:             "assign-1",
		ShiftID:        "shift-1",
		WorkerID:       "w1",
		Status:         models.AssignmentAssigned,
		PaymentStatus:  models.PaymentHeld,
		ScheduledStart: start,
		ScheduledEnd:   start.Add(8 * time.Hour),
	}
	f.store.shifts[f.shift.ID] = f.shift
	f.store.assignments[f.assign.ID] = f.assign
	f.store.workers["w1"] = models.WorkerProfile{ID: "w1", Name: "w1", FaceReferenceToken: "face-w1"}

	f.now = start
	f.tracker = &Tracker{
		Store:    f.store,
		Verifier: verify.MockVerifier{SupervisorCode: "override-1"},
		Notify:   notify.NopSink{},
		Config:   DefaultTrackingConfig(),
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return f.now },
	}
	return f
}

func onSiteBundle() ClockInRequest {
	lat, lon := 40.7580, -73.9855
	return ClockInRequest{Lat: &lat, Lon: &lon}
}

func TestClockInOnTime(t *testing.T) {
	f := nineToFive(t)
	a, err := f.tracker.ClockIn(context.Background(), "assign-1", onSiteBundle())
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if a.WasLate || a.LateMinutes != 0 {
		t.Fatalf("expected on-time clock-in, got late=%v minutes=%d", a.WasLate, a.LateMinutes)
	}
	if a.Status != models.AssignmentInProgress {
		t.Fatalf("expected in_progress, got %s", a.Status)
	}
	if TrackingState(a) != TrackingClockedIn {
		t.Fatalf("expected clocked_in state, got %s", TrackingState(a))
	}

	shift, _ := f.store.GetShift(context.Background(), "shift-1")
	if shift.Status != models.ShiftInProgress {
		t.Fatalf("expected shift in_progress, got %s", shift.Status)
	}
}

func TestClockInLateComputesLateness(t *testing.T) {
	f := nineToFive(t)
	f.now = f.shift.StartTime.Add(10 * time.Minute)

	a, err := f.tracker.ClockIn(context.Background(), "assign-1", onSiteBundle())
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if !a.WasLate || a.LateMinutes != 10 {
		t.Fatalf("expected late by 10 minutes, got late=%v minutes=%d", a.WasLate, a.LateMinutes)
	}
}

func TestClockInGeofenceFailure(t *testing.T) {
	f := nineToFive(t)
	// ~2km north of the venue against a 100m radius.
	lat, lon := 40.7760, -73.9855
	_, err := f.tracker.ClockIn(context.Background(), "assign-1", ClockInRequest{Lat: &lat, Lon: &lon})
	oe, ok := AsOpError(err)
	if !ok || oe.Code != CodeLocationFailed {
		t.Fatalf("expected LOCATION_FAILED, got %v", err)
	}

	a, _ := f.store.GetAssignment(context.Background(), "assign-1")
	if a.ActualClockInAt != nil || TrackingState(a) != TrackingNotStarted {
		t.Fatalf("failed clock-in must not change state")
	}
}

func TestClockInIdentityFailure(t *testing.T) {
	f := nineToFive(t)
	_, err := f.tracker.ClockIn(context.Background(), "assign-1", ClockInRequest{FaceImage: "someone-else"})
	oe, ok := AsOpError(err)
	if !ok || oe.Code != CodeIdentityFailed {
		t.Fatalf("expected IDENTITY_FAILED, got %v", err)
	}
}

func TestClockInQRAndSupervisorOverride(t *testing.T) {
	f := nineToFive(t)
	if _, err := f.tracker.ClockIn(context.Background(), "assign-1", ClockInRequest{QRCode: "shift-1"}); err != nil {
		t.Fatalf("QR clock in: %v", err)
	}

	f2 := nineToFive(t)
	if _, err := f2.tracker.ClockIn(context.Background(), "assign-1", ClockInRequest{SupervisorCode: "override-1"}); err != nil {
		t.Fatalf("supervisor clock in: %v", err)
	}
}

func TestClockInOutsideWindow(t *testing.T) {
	f := nineToFive(t)
	f.now = f.shift.StartTime.Add(-time.Hour)
	_, err := f.tracker.ClockIn(context.Background(), "assign-1", onSiteBundle())
	oe, ok := AsOpError(err)
	if !ok || oe.Code != CodeTimeRestriction {
		t.Fatalf("expected TIME_RESTRICTION, got %v", err)
	}

	f.now = f.shift.StartTime.Add(3 * time.Hour)
	_, err = f.tracker.ClockIn(context.Background(), "assign-1", onSiteBundle())
	oe, ok = AsOpError(err)
	if !ok || oe.Code != CodeTimeRestriction {
		t.Fatalf("expected TIME_RESTRICTION after window, got %v", err)
	}
}

func TestDoubleClockInRejected(t *testing.T) {
	f := nineToFive(t)
	if _, err := f.tracker.ClockIn(context.Background(), "assign-1", onSiteBundle()); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	_, err := f.tracker.ClockIn(context.Background(), "assign-1", onSiteBundle())
	oe, ok := AsOpError(err)
	if !ok || oe.Code != CodeAlreadyClockedIn {
		t.Fatalf("expected ALREADY_CLOCKED_IN, got %v", err)
	}
}

func TestClockOutNoBreaks(t *testing.T) {
	f := nineToFive(t)
	ctx := context.Background()
	if _, err := f.tracker.ClockIn(ctx, "assign-1", onSiteBundle()); err != nil {
		t.Fatalf("clock in: %v", err)
	}

	f.now = f.shift.EndTime
	a, err := f.tracker.ClockOut(ctx, "assign-1")
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if a.GrossHours != 8 || a.NetHoursWorked != a.GrossHours {
		t.Fatalf("expected net==gross==8, got gross=%v net=%v", a.GrossHours, a.NetHoursWorked)
	}
	if a.EarlyDeparture || a.OvertimeWorked {
		t.Fatalf("exact departure flagged: early=%v overtime=%v", a.EarlyDeparture, a.OvertimeWorked)
	}
	if a.Status != models.AssignmentCompleted {
		t.Fatalf("expected completed, got %s", a.Status)
	}

	shift, _ := f.store.GetShift(ctx, "shift-1")
	if shift.Status != models.ShiftCompleted {
		t.Fatalf("expected shift completed once all assignments done, got %s", shift.Status)
	}
}

func TestClockOutWithBreakDeductsHalfHour(t *testing.T) {
	f := nineToFive(t)
	ctx := context.Background()
	if _, err := f.tracker.ClockIn(ctx, "assign-1", onSiteBundle()); err != nil {
		t.Fatalf("clock in: %v", err)
	}

	f.now = f.shift.StartTime.Add(3 * time.Hour)
	if _, err := f.tracker.BreakStart(ctx, "assign-1"); err != nil {
		t.Fatalf("break start: %v", err)
	}
	f.now = f.now.Add(30 * time.Minute)
	a, err := f.tracker.BreakEnd(ctx, "assign-1")
	if err != nil {
		t.Fatalf("break end: %v", err)
	}
	if a.TotalBreakMinutes != 30 {
		t.Fatalf("expected 30 break minutes, got %d", a.TotalBreakMinutes)
	}
	if !a.MandatoryBreakTaken {
		t.Fatalf("30min break on an 8h shift should satisfy the mandatory break")
	}

	f.now = f.shift.EndTime
	a, err = f.tracker.ClockOut(ctx, "assign-1")
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if a.BreakDeductionHours != 0.5 {
		t.Fatalf("expected 0.5h deduction, got %v", a.BreakDeductionHours)
	}
	if a.NetHoursWorked != a.GrossHours-0.5 {
		t.Fatalf("expected net = gross - 0.5, got gross=%v net=%v", a.GrossHours, a.NetHoursWorked)
	}
}

func TestClockOutOvertime(t *testing.T) {
	f := nineToFive(t)
	ctx := context.Background()
	if _, err := f.tracker.ClockIn(ctx, "assign-1", onSiteBundle()); err != nil {
		t.Fatalf("clock in: %v", err)
	}

	f.now = f.shift.EndTime.Add(45 * time.Minute)
	a, err := f.tracker.ClockOut(ctx, "assign-1")
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if !a.OvertimeWorked || a.OvertimeHours != 0.75 {
		t.Fatalf("expected 0.75h overtime, got worked=%v hours=%v", a.OvertimeWorked, a.OvertimeHours)
	}
}

func TestClockOutEarlyDeparture(t *testing.T) {
	f := nineToFive(t)
	ctx := context.Background()
	if _, err := f.tracker.ClockIn(ctx, "assign-1", onSiteBundle()); err != nil {
		t.Fatalf("clock in: %v", err)
	}

	f.now = f.shift.EndTime.Add(-20 * time.Minute)
	a, err := f.tracker.ClockOut(ctx, "assign-1")
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if !a.EarlyDeparture || a.EarlyDepartureMinutes != 20 {
		t.Fatalf("expected 20min early departure, got early=%v minutes=%d", a.EarlyDeparture, a.EarlyDepartureMinutes)
	}
}

func TestBreakStateConflicts(t *testing.T) {
	f := nineToFive(t)
	ctx := context.Background()

	_, err := f.tracker.BreakStart(ctx, "assign-1")
	if oe, ok := AsOpError(err); !ok || oe.Code != CodeNotClockedIn {
		t.Fatalf("expected NOT_CLOCKED_IN, got %v", err)
	}
	_, err = f.tracker.ClockOut(ctx, "assign-1")
	if oe, ok := AsOpError(err); !ok || oe.Code != CodeNotClockedIn {
		t.Fatalf("expected NOT_CLOCKED_IN on clock-out, got %v", err)
	}

	if _, err := f.tracker.ClockIn(ctx, "assign-1", onSiteBundle()); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	_, err = f.tracker.BreakEnd(ctx, "assign-1")
	if oe, ok := AsOpError(err); !ok || oe.Code != CodeNotOnBreak {
		t.Fatalf("expected NOT_ON_BREAK, got %v", err)
	}

	if _, err := f.tracker.BreakStart(ctx, "assign-1"); err != nil {
		t.Fatalf("break start: %v", err)
	}
	_, err = f.tracker.BreakStart(ctx, "assign-1")
	if oe, ok := AsOpError(err); !ok || oe.Code != CodeAlreadyOnBreak {
		t.Fatalf("expected ALREADY_ON_BREAK, got %v", err)
	}
	if _, err := f.tracker.BreakEnd(ctx, "assign-1"); err != nil {
		t.Fatalf("break end: %v", err)
	}

	f.now = f.shift.EndTime
	if _, err := f.tracker.ClockOut(ctx, "assign-1"); err != nil {
		t.Fatalf("clock out: %v", err)
	}
	_, err = f.tracker.ClockOut(ctx, "assign-1")
	if oe, ok := AsOpError(err); !ok || oe.Code != CodeAlreadyClockedOut {
		t.Fatalf("expected ALREADY_CLOCKED_OUT, got %v", err)
	}
	_, err = f.tracker.BreakStart(ctx, "assign-1")
	if oe, ok := AsOpError(err); !ok || oe.Code != CodeAlreadyClockedOut {
		t.Fatalf("expected ALREADY_CLOCKED_OUT on post-shift break, got %v", err)
	}
}

func TestTrackingStatusReportsState(t *testing.T) {
	f := nineToFive(t)
	ctx := context.Background()

	st, err := f.tracker.Status(ctx, "assign-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != TrackingNotStarted {
		t.Fatalf("expected not_started, got %s", st.State)
	}

	if _, err := f.tracker.ClockIn(ctx, "assign-1", onSiteBundle()); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if _, err := f.tracker.BreakStart(ctx, "assign-1"); err != nil {
		t.Fatalf("break start: %v", err)
	}
	st, _ = f.tracker.Status(ctx, "assign-1")
	if st.State != TrackingOnBreak {
		t.Fatalf("expected on_break, got %s", st.State)
	}
}
