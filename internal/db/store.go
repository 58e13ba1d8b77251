package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftlane/backend/internal/models"
	"github.com/shiftlane/backend/internal/pricing"
	"github.com/shiftlane/backend/internal/service"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return service.ErrNotFound
	}
	return err
}

func (s *Store) GetBusiness(ctx context.Context, id string) (models.Business, error) {
	var b models.Business
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, role, created_at FROM businesses WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Role, &b.CreatedAt)
	return b, mapNoRows(err)
}

func (s *Store) GetWorker(ctx context.Context, id string) (models.WorkerProfile, error) {
	var (
		w              models.WorkerProfile
		availability   []byte
		industryMonths []byte
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, skills, certifications, lat, lon, availability,
			rating, completed_shifts, industry_months, has_payment_method,
			face_reference_token, updated_at
		FROM workers WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Skills, &w.Certifications, &w.Lat, &w.Lon,
		&availability, &w.Rating, &w.CompletedShifts, &industryMonths,
		&w.HasPaymentMethod, &w.FaceReferenceToken, &w.UpdatedAt)
	if err != nil {
		return models.WorkerProfile{}, mapNoRows(err)
	}
	if len(availability) > 0 {
		if err := json.Unmarshal(availability, &w.Availability); err != nil {
			return models.WorkerProfile{}, err
		}
	}
	if len(industryMonths) > 0 {
		if err := json.Unmarshal(industryMonths, &w.IndustryMonths); err != nil {
			return models.WorkerProfile{}, err
		}
	}
	return w, nil
}

const shiftColumns = `id, business_id, industry, address, lat, lon, geofence_radius_m,
	date, start_time, end_time, duration_hours, base_rate, dynamic_rate, final_rate,
	urgency_level, required_skills, required_workers, filled_workers, status,
	filled_at, created_at, updated_at`

func scanShift(row pgx.Row) (models.Shift, error) {
	var sh models.Shift
	err := row.Scan(&sh.ID, &sh.BusinessID, &sh.Industry, &sh.Address, &sh.Lat, &sh.Lon,
		&sh.GeofenceRadiusM, &sh.Date, &sh.StartTime, &sh.EndTime, &sh.DurationHours,
		&sh.BaseRate, &sh.DynamicRate, &sh.FinalRate, &sh.Urgency, &sh.RequiredSkills,
		&sh.RequiredWorkers, &sh.FilledWorkers, &sh.Status, &sh.FilledAt,
		&sh.CreatedAt, &sh.UpdatedAt)
	return sh, mapNoRows(err)
}

func (s *Store) CreateShift(ctx context.Context, sh models.Shift) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	`, sh.ID, sh.BusinessID, sh.Industry, sh.Address, sh.Lat, sh.Lon, sh.GeofenceRadiusM,
		sh.Date, sh.StartTime, sh.EndTime, sh.DurationHours, sh.BaseRate, sh.DynamicRate,
		sh.FinalRate, sh.Urgency, sh.RequiredSkills, sh.RequiredWorkers, sh.FilledWorkers,
		sh.Status, sh.FilledAt, sh.CreatedAt, sh.UpdatedAt)
	return err
}

func (s *Store) GetShift(ctx context.Context, id string) (models.Shift, error) {
	return scanShift(s.Pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
}

// EditShift applies a shift edit under the same row lock accepts take, so an
// edit serializes against a concurrent accept instead of writing a stale
// snapshot back. The SET list deliberately excludes status and filled_workers.
func (s *Store) EditShift(ctx context.Context, shiftID string, in service.UpdateShiftInput, cfg pricing.Config, now time.Time) (models.Shift, error) {
	var out models.Shift
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		shift, err := scanShift(tx.QueryRow(ctx,
			`SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, shiftID))
		if err != nil {
			return err
		}
		shift, opErr := service.DecideEdit(shift, in, cfg, now)
		if opErr != nil {
			return opErr
		}
		if _, err := tx.Exec(ctx, `
			UPDATE shifts SET address = $2, lat = $3, lon = $4, geofence_radius_m = $5,
				date = $6, start_time = $7, end_time = $8, duration_hours = $9,
				base_rate = $10, dynamic_rate = $11, final_rate = $12, urgency_level = $13,
				required_skills = $14, updated_at = $15
			WHERE id = $1
		`, shift.ID, shift.Address, shift.Lat, shift.Lon, shift.GeofenceRadiusM,
			shift.Date, shift.StartTime, shift.EndTime, shift.DurationHours,
			shift.BaseRate, shift.DynamicRate, shift.FinalRate, shift.Urgency,
			shift.RequiredSkills, shift.UpdatedAt); err != nil {
			return err
		}
		out = shift
		return nil
	})
	if err != nil {
		return models.Shift{}, err
	}
	return out, nil
}

func (s *Store) SetShiftStatus(ctx context.Context, shiftID string, status models.ShiftStatus, now time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE shifts SET status = $2, updated_at = $3 WHERE id = $1
	`, shiftID, status, now)
	return err
}

func (s *Store) ListOpenShifts(ctx context.Context, industry string, limit, offset int) ([]models.Shift, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE status = 'open' AND deleted_at IS NULL`
	args := []any{}
	if industry != "" {
		args = append(args, industry)
		query += ` AND industry = $1`
	}
	query += fmt.Sprintf(" ORDER BY start_time ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// CancelShiftCascade cancels the shift and every non-terminal assignment on it
// in one transaction, and soft-deletes the shift from active listings.
func (s *Store) CancelShiftCascade(ctx context.Context, shiftID string, now time.Time) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var status models.ShiftStatus
		if err := tx.QueryRow(ctx,
			`SELECT status FROM shifts WHERE id = $1 FOR UPDATE`, shiftID).Scan(&status); err != nil {
			return mapNoRows(err)
		}
		if status == models.ShiftCompleted || status == models.ShiftCancelled {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			UPDATE shift_assignments SET status = 'cancelled', updated_at = $2
			WHERE shift_id = $1 AND status NOT IN ('completed', 'cancelled')
		`, shiftID, now); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE shifts SET status = 'cancelled', deleted_at = $2, updated_at = $2
			WHERE id = $1
		`, shiftID, now)
		return err
	})
}

func (s *Store) CreateApplication(ctx context.Context, a models.ShiftApplication) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO shift_applications (id, shift_id, worker_id, status, applied_at, responded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, a.ID, a.ShiftID, a.WorkerID, a.Status, a.AppliedAt, a.RespondedAt)
	return err
}

func (s *Store) HasApplication(ctx context.Context, shiftID, workerID string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM shift_applications WHERE shift_id = $1 AND worker_id = $2)
	`, shiftID, workerID).Scan(&exists)
	return exists, err
}

const applicationColumns = `id, shift_id, worker_id, status, applied_at, responded_at`

func (s *Store) ListPendingApplications(ctx context.Context, shiftID string) ([]models.ShiftApplication, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+applicationColumns+` FROM shift_applications
		WHERE shift_id = $1 AND status = 'pending'
		ORDER BY applied_at ASC
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ShiftApplication
	for rows.Next() {
		var a models.ShiftApplication
		if err := rows.Scan(&a.ID, &a.ShiftID, &a.WorkerID, &a.Status, &a.AppliedAt, &a.RespondedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AcceptApplication runs the accept transition under a row lock on the shift.
// The lock covers exactly the read-check-create-increment unit, so concurrent
// accepts on the same shift serialize and the headcount can never overshoot.
func (s *Store) AcceptApplication(ctx context.Context, shiftID, workerID string, now time.Time) (models.Shift, models.ShiftAssignment, error) {
	var (
		outShift      models.Shift
		outAssignment models.ShiftAssignment
	)
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		shift, err := scanShift(tx.QueryRow(ctx,
			`SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, shiftID))
		if err != nil {
			return err
		}

		var app models.ShiftApplication
		if err := tx.QueryRow(ctx, `
			SELECT `+applicationColumns+` FROM shift_applications
			WHERE shift_id = $1 AND worker_id = $2
		`, shiftID, workerID).Scan(&app.ID, &app.ShiftID, &app.WorkerID, &app.Status,
			&app.AppliedAt, &app.RespondedAt); err != nil {
			return mapNoRows(err)
		}

		shift, app, assignment, opErr := service.DecideAccept(shift, app, now)
		if opErr != nil {
			return opErr
		}

		if _, err := tx.Exec(ctx, `
			UPDATE shift_applications SET status = $2, responded_at = $3 WHERE id = $1
		`, app.ID, app.Status, app.RespondedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO shift_assignments (id, shift_id, worker_id, status, payment_status,
				scheduled_start, scheduled_end, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, assignment.ID, assignment.ShiftID, assignment.WorkerID, assignment.Status,
			assignment.PaymentStatus, assignment.ScheduledStart, assignment.ScheduledEnd,
			assignment.CreatedAt, assignment.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE shifts SET filled_workers = $2, status = $3, filled_at = $4, updated_at = $5
			WHERE id = $1
		`, shift.ID, shift.FilledWorkers, shift.Status, shift.FilledAt, shift.UpdatedAt); err != nil {
			return err
		}

		outShift = shift
		outAssignment = assignment
		return nil
	})
	if err != nil {
		return models.Shift{}, models.ShiftAssignment{}, err
	}
	return outShift, outAssignment, nil
}

func (s *Store) UpdateAssignmentPayment(ctx context.Context, assignmentID string, status models.PaymentStatus) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE shift_assignments SET payment_status = $2, updated_at = NOW() WHERE id = $1
	`, assignmentID, status)
	return err
}

const assignmentColumns = `id, shift_id, worker_id, status, payment_status,
	scheduled_start, scheduled_end, clock_in_at, clock_out_at,
	actual_clock_in_at, actual_clock_out_at, break_started_at,
	total_break_minutes, mandatory_break_taken, was_late, late_minutes,
	early_departure, early_departure_minutes, overtime_worked, overtime_hours,
	gross_hours, break_deduction_hours, net_hours_worked, created_at, updated_at`

func scanAssignment(row pgx.Row) (models.ShiftAssignment, error) {
	var a models.ShiftAssignment
	err := row.Scan(&a.ID, &a.ShiftID, &a.WorkerID, &a.Status, &a.PaymentStatus,
		&a.ScheduledStart, &a.ScheduledEnd, &a.ClockInAt, &a.ClockOutAt,
		&a.ActualClockInAt, &a.ActualClockOutAt, &a.BreakStartedAt,
		&a.TotalBreakMinutes, &a.MandatoryBreakTaken, &a.WasLate, &a.LateMinutes,
		&a.EarlyDeparture, &a.EarlyDepartureMinutes, &a.OvertimeWorked, &a.OvertimeHours,
		&a.GrossHours, &a.BreakDeductionHours, &a.NetHoursWorked, &a.CreatedAt, &a.UpdatedAt)
	return a, mapNoRows(err)
}

func (s *Store) GetAssignment(ctx context.Context, id string) (models.ShiftAssignment, error) {
	return scanAssignment(s.Pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM shift_assignments WHERE id = $1`, id))
}

func (s *Store) UpdateAssignment(ctx context.Context, a models.ShiftAssignment) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE shift_assignments SET status = $2, payment_status = $3,
			clock_in_at = $4, clock_out_at = $5,
			actual_clock_in_at = $6, actual_clock_out_at = $7, break_started_at = $8,
			total_break_minutes = $9, mandatory_break_taken = $10,
			was_late = $11, late_minutes = $12,
			early_departure = $13, early_departure_minutes = $14,
			overtime_worked = $15, overtime_hours = $16,
			gross_hours = $17, break_deduction_hours = $18, net_hours_worked = $19,
			updated_at = $20
		WHERE id = $1
	`, a.ID, a.Status, a.PaymentStatus, a.ClockInAt, a.ClockOutAt,
		a.ActualClockInAt, a.ActualClockOutAt, a.BreakStartedAt,
		a.TotalBreakMinutes, a.MandatoryBreakTaken, a.WasLate, a.LateMinutes,
		a.EarlyDeparture, a.EarlyDepartureMinutes, a.OvertimeWorked, a.OvertimeHours,
		a.GrossHours, a.BreakDeductionHours, a.NetHoursWorked, a.UpdatedAt)
	return err
}

func (s *Store) ListAssignmentsByShift(ctx context.Context, shiftID string) ([]models.ShiftAssignment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+assignmentColumns+` FROM shift_assignments WHERE shift_id = $1
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ShiftAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ActiveAssignmentForWorker(ctx context.Context, workerID string) (models.ShiftAssignment, error) {
	return scanAssignment(s.Pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+` FROM shift_assignments
		WHERE worker_id = $1 AND status IN ('assigned', 'checked_in', 'in_progress')
		ORDER BY scheduled_start ASC
		LIMIT 1
	`, workerID))
}
