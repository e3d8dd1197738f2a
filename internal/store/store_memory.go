package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"attendance_gate/internal/liveness"
	"attendance_gate/internal/location"
	"attendance_gate/internal/models"
)

// MemoryStore keeps everything in process and publishes its own changes.
// Used in tests and when no database is configured.
type MemoryStore struct {
	*Hub

	mu         sync.RWMutex
	employees  map[string]models.Employee
	rules      []models.GeofenceRule
	faces      map[string]models.FaceEnrollment
	attendance map[string]models.AttendanceRecord // keyed by employee id + day
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		Hub:        NewHub(),
		employees:  make(map[string]models.Employee),
		faces:      make(map[string]models.FaceEnrollment),
		attendance: make(map[string]models.AttendanceRecord),
	}
}

func attendanceKey(employeeID string, day time.Time) string {
	return employeeID + "/" + day.Format(models.DateLayout)
}

// PutEmployee seeds an employee.
func (s *MemoryStore) PutEmployee(e models.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

// SetRules replaces the zone table.
func (s *MemoryStore) SetRules(rules []models.GeofenceRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append([]models.GeofenceRule(nil), rules...)
}

// SaveEmployee inserts or replaces an employee.
func (s *MemoryStore) SaveEmployee(_ context.Context, e models.Employee) error {
	s.PutEmployee(e)
	return nil
}

// SaveRule inserts or replaces a geofence rule.
func (s *MemoryStore) SaveRule(_ context.Context, r models.GeofenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].ID == r.ID {
			s.rules[i] = r
			return nil
		}
	}
	s.rules = append(s.rules, r)
	return nil
}

func (s *MemoryStore) Employee(_ context.Context, id string) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore) Rules(_ context.Context) ([]location.RawRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]location.RawRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r.Raw())
	}
	return out, nil
}

func (s *MemoryStore) FaceDescriptor(_ context.Context, employeeID string) (liveness.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.faces[employeeID]
	if !ok {
		return nil, ErrNotFound
	}
	return append(liveness.Descriptor(nil), f.Descriptor...), nil
}

func (s *MemoryStore) UpsertFace(_ context.Context, employeeID string, d liveness.Descriptor) error {
	if len(d) == 0 {
		return fmt.Errorf("upsert face: empty descriptor")
	}
	s.mu.Lock()
	_, existed := s.faces[employeeID]
	s.faces[employeeID] = models.FaceEnrollment{
		EmployeeID: employeeID,
		Descriptor: append([]float32(nil), d...),
		UpdatedAt:  time.Now(),
	}
	s.mu.Unlock()

	op := OpInsert
	if existed {
		op = OpUpdate
	}
	s.Publish(Change{Table: TableFaces, Op: op, EmployeeID: employeeID})
	return nil
}

func (s *MemoryStore) DeleteFace(_ context.Context, employeeID string) error {
	s.mu.Lock()
	_, existed := s.faces[employeeID]
	delete(s.faces, employeeID)
	s.mu.Unlock()

	if existed {
		s.Publish(Change{Table: TableFaces, Op: OpDelete, EmployeeID: employeeID})
	}
	return nil
}

func (s *MemoryStore) AppendAttendance(_ context.Context, rec *models.AttendanceRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	key := attendanceKey(rec.EmployeeID, rec.AttendanceDate)

	s.mu.Lock()
	if _, exists := s.attendance[key]; exists {
		s.mu.Unlock()
		return ErrDuplicate
	}
	s.attendance[key] = *rec
	s.mu.Unlock()

	s.Publish(Change{
		Table:          TableAttendance,
		Op:             OpInsert,
		EmployeeID:     rec.EmployeeID,
		RecordID:       rec.ID.String(),
		AttendanceDate: rec.Day(),
	})
	return nil
}

func (s *MemoryStore) AttendanceOn(_ context.Context, employeeID string, day time.Time) (*models.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.attendance[attendanceKey(employeeID, day)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// ListAttendance returns records with from <= timestamp < to, newest first.
// A zero from or to leaves that side open; limit <= 0 means no limit.
func (s *MemoryStore) ListAttendance(_ context.Context, employeeID string, from, to time.Time, limit int) ([]models.AttendanceRecord, error) {
	s.mu.RLock()
	var out []models.AttendanceRecord
	for _, rec := range s.attendance {
		if rec.EmployeeID != employeeID {
			continue
		}
		if !from.IsZero() && rec.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !rec.Timestamp.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteAttendance(_ context.Context, employeeID string, id string) error {
	s.mu.Lock()
	var removed *models.AttendanceRecord
	for key, rec := range s.attendance {
		if rec.EmployeeID == employeeID && rec.ID.String() == id {
			delete(s.attendance, key)
			removed = &rec
			break
		}
	}
	s.mu.Unlock()

	if removed == nil {
		return ErrNotFound
	}
	s.Publish(Change{
		Table:          TableAttendance,
		Op:             OpDelete,
		EmployeeID:     employeeID,
		RecordID:       id,
		AttendanceDate: removed.Day(),
	})
	return nil
}
