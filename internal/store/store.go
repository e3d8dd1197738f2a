// Package store persists employees, zones, face enrollments and attendance
// records, and publishes row changes to subscribers.
package store

import (
	"context"
	"errors"
	"time"

	"attendance_gate/internal/liveness"
	"attendance_gate/internal/location"
	"attendance_gate/internal/models"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate reports a second attendance record for the same employee
	// and day. Callers treat it as success.
	ErrDuplicate = errors.New("store: duplicate record")
)

// Store is the persistence collaborator of the attendance gate.
type Store interface {
	Employee(ctx context.Context, id string) (*models.Employee, error)
	Rules(ctx context.Context) ([]location.RawRule, error)

	FaceDescriptor(ctx context.Context, employeeID string) (liveness.Descriptor, error)
	UpsertFace(ctx context.Context, employeeID string, d liveness.Descriptor) error
	DeleteFace(ctx context.Context, employeeID string) error

	AppendAttendance(ctx context.Context, rec *models.AttendanceRecord) error
	AttendanceOn(ctx context.Context, employeeID string, day time.Time) (*models.AttendanceRecord, error)
	ListAttendance(ctx context.Context, employeeID string, from, to time.Time, limit int) ([]models.AttendanceRecord, error)
	DeleteAttendance(ctx context.Context, employeeID string, id string) error
}

// Feed delivers row changes filtered by employee.
type Feed interface {
	Subscribe(employeeID string) *Subscription
}

// Day truncates t to its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
