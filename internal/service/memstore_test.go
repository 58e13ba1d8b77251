package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shiftlane/backend/internal/models"
	"github.com/shiftlane/backend/internal/pricing"
)

// memStore backs the service tests. AcceptApplication holds the store mutex
// across the whole decide-and-persist unit, the same discipline the pgx store
// gets from its row lock.
type memStore struct {
	mu           sync.Mutex
	businesses   map[string]models.Business
	workers      map[string]models.WorkerProfile
	shifts       map[string]models.Shift
	applications map[string]models.ShiftApplication
	assignments  map[string]models.ShiftAssignment
}

func newMemStore() *memStore {
	return &memStore{
		businesses:   map[string]models.Business{},
		workers:      map[string]models.WorkerProfile{},
		shifts:       map[string]models.Shift{},
		applications: map[string]models.ShiftApplication{},
		assignments:  map[string]models.ShiftAssignment{},
	}
}

func appKey(shiftID, workerID string) string {
	return shiftID + "|" + workerID
}

func (m *memStore) GetBusiness(ctx context.Context, id string) (models.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.businesses[id]
	if !ok {
		return models.Business{}, ErrNotFound
	}
	return b, nil
}

func (m *memStore) GetWorker(ctx context.Context, id string) (models.WorkerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return models.WorkerProfile{}, ErrNotFound
	}
	return w, nil
}

func (m *memStore) CreateShift(ctx context.Context, s models.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[s.ID] = s
	return nil
}

func (m *memStore) GetShift(ctx context.Context, id string) (models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[id]
	if !ok {
		return models.Shift{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) EditShift(ctx context.Context, shiftID string, in UpdateShiftInput, cfg pricing.Config, now time.Time) (models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[shiftID]
	if !ok {
		return models.Shift{}, ErrNotFound
	}
	s, opErr := DecideEdit(s, in, cfg, now)
	if opErr != nil {
		return models.Shift{}, opErr
	}
	m.shifts[shiftID] = s
	return s, nil
}

func (m *memStore) SetShiftStatus(ctx context.Context, shiftID string, status models.ShiftStatus, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[shiftID]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = now
	m.shifts[shiftID] = s
	return nil
}

func (m *memStore) CancelShiftCascade(ctx context.Context, shiftID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[shiftID]
	if !ok {
		return ErrNotFound
	}
	if s.Status == models.ShiftCompleted || s.Status == models.ShiftCancelled {
		return nil
	}
	for id, a := range m.assignments {
		if a.ShiftID == shiftID && a.Status != models.AssignmentCompleted && a.Status != models.AssignmentCancelled {
			a.Status = models.AssignmentCancelled
			a.UpdatedAt = now
			m.assignments[id] = a
		}
	}
	s.Status = models.ShiftCancelled
	s.UpdatedAt = now
	m.shifts[shiftID] = s
	return nil
}

func (m *memStore) CreateApplication(ctx context.Context, a models.ShiftApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applications[appKey(a.ShiftID, a.WorkerID)] = a
	return nil
}

func (m *memStore) HasApplication(ctx context.Context, shiftID, workerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.applications[appKey(shiftID, workerID)]
	return ok, nil
}

func (m *memStore) ListPendingApplications(ctx context.Context, shiftID string) ([]models.ShiftApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ShiftApplication
	for _, a := range m.applications {
		if a.ShiftID == shiftID && a.Status == models.ApplicationPending {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AppliedAt.Before(out[j].AppliedAt)
	})
	return out, nil
}

func (m *memStore) AcceptApplication(ctx context.Context, shiftID, workerID string, now time.Time) (models.Shift, models.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shift, ok := m.shifts[shiftID]
	if !ok {
		return models.Shift{}, models.ShiftAssignment{}, ErrNotFound
	}
	app, ok := m.applications[appKey(shiftID, workerID)]
	if !ok {
		return models.Shift{}, models.ShiftAssignment{}, ErrNotFound
	}

	shift, app, assignment, opErr := DecideAccept(shift, app, now)
	if opErr != nil {
		return models.Shift{}, models.ShiftAssignment{}, opErr
	}

	m.shifts[shiftID] = shift
	m.applications[appKey(shiftID, workerID)] = app
	m.assignments[assignment.ID] = assignment
	return shift, assignment, nil
}

func (m *memStore) UpdateAssignmentPayment(ctx context.Context, assignmentID string, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[assignmentID]
	if !ok {
		return ErrNotFound
	}
	a.PaymentStatus = status
	m.assignments[assignmentID] = a
	return nil
}

func (m *memStore) ActiveAssignmentForWorker(ctx context.Context, workerID string) (models.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var candidates []models.ShiftAssignment
	for _, a := range m.assignments {
		if a.WorkerID != workerID {
			continue
		}
		switch a.Status {
		case models.AssignmentAssigned, models.AssignmentCheckedIn, models.AssignmentInProgress:
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return models.ShiftAssignment{}, ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ScheduledStart.Before(candidates[j].ScheduledStart)
	})
	return candidates[0], nil
}

func (m *memStore) GetAssignment(ctx context.Context, id string) (models.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return models.ShiftAssignment{}, ErrNotFound
	}
	return a, nil
}

func (m *memStore) UpdateAssignment(ctx context.Context, a models.ShiftAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[a.ID]; !ok {
		return ErrNotFound
	}
	m.assignments[a.ID] = a
	return nil
}

func (m *memStore) ListAssignmentsByShift(ctx context.Context, shiftID string) ([]models.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ShiftAssignment
	for _, a := range m.assignments {
		if a.ShiftID == shiftID {
			out = append(out, a)
		}
	}
	return out, nil
}
