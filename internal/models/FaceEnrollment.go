package models

import (
	"time"

	"github.com/lib/pq"
)

// FaceEnrollment is the single enrolled face descriptor of an employee.
// Re-registration overwrites the row.
type FaceEnrollment struct {
	EmployeeID string          `json:"employee_id" gorm:"primaryKey;size:64"`
	Descriptor pq.Float32Array `json:"-" gorm:"type:real[];not null"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
