package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"attendance_gate/internal/liveness"
	"attendance_gate/internal/location"
	"attendance_gate/internal/models"
)

// PostgresStore persists through GORM. Row changes are not published here;
// database triggers NOTIFY them and a PostgresFeed relays them.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Employee(ctx context.Context, id string) (*models.Employee, error) {
	var e models.Employee
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load employee %s: %w", id, err)
	}
	return &e, nil
}

// SaveEmployee inserts or replaces an employee row.
func (s *PostgresStore) SaveEmployee(ctx context.Context, e models.Employee) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("save employee %s: %w", e.ID, err)
	}
	return nil
}

// SaveRule inserts or replaces a geofence rule.
func (s *PostgresStore) SaveRule(ctx context.Context, r models.GeofenceRule) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&r).Error
	if err != nil {
		return fmt.Errorf("save geofence rule %s: %w", r.ID, err)
	}
	return nil
}

func (s *PostgresStore) Rules(ctx context.Context) ([]location.RawRule, error) {
	var rows []models.GeofenceRule
	if err := s.db.WithContext(ctx).Order("zone_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load geofence rules: %w", err)
	}
	out := make([]location.RawRule, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Raw())
	}
	return out, nil
}

func (s *PostgresStore) FaceDescriptor(ctx context.Context, employeeID string) (liveness.Descriptor, error) {
	var f models.FaceEnrollment
	if err := s.db.WithContext(ctx).Where("employee_id = ?", employeeID).First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load face descriptor: %w", err)
	}
	return liveness.Descriptor(f.Descriptor), nil
}

// UpsertFace overwrites the employee's enrollment on conflict.
func (s *PostgresStore) UpsertFace(ctx context.Context, employeeID string, d liveness.Descriptor) error {
	if len(d) == 0 {
		return fmt.Errorf("upsert face: empty descriptor")
	}
	row := models.FaceEnrollment{
		EmployeeID: employeeID,
		Descriptor: pq.Float32Array(d),
		UpdatedAt:  time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"descriptor", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert face descriptor: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteFace(ctx context.Context, employeeID string) error {
	if err := s.db.WithContext(ctx).Where("employee_id = ?", employeeID).Delete(&models.FaceEnrollment{}).Error; err != nil {
		return fmt.Errorf("delete face descriptor: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendAttendance(ctx context.Context, rec *models.AttendanceRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

func (s *PostgresStore) AttendanceOn(ctx context.Context, employeeID string, day time.Time) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND attendance_date = ?", employeeID, day.Format(models.DateLayout)).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load today's attendance: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) ListAttendance(ctx context.Context, employeeID string, from, to time.Time, limit int) ([]models.AttendanceRecord, error) {
	q := s.db.WithContext(ctx).Where("employee_id = ?", employeeID)
	if !from.IsZero() {
		q = q.Where("timestamp >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("timestamp < ?", to)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.AttendanceRecord
	if err := q.Order("timestamp desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteAttendance(ctx context.Context, employeeID string, id string) error {
	res := s.db.WithContext(ctx).Where("employee_id = ? AND id = ?", employeeID, id).Delete(&models.AttendanceRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete attendance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
