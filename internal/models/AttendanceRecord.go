package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and key format of an attendance day.
const DateLayout = "2006-01-02"

// AttendanceRecord is one clock-in. At most one exists per employee per
// calendar day.
type AttendanceRecord struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EmployeeID     string    `json:"employee_id" gorm:"size:64;not null;uniqueIndex:idx_attendance_employee_day"`
	Timestamp      time.Time `json:"timestamp" gorm:"not null"`
	AttendanceDate time.Time `json:"attendance_date" gorm:"type:date;not null;uniqueIndex:idx_attendance_employee_day"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	ZoneName       string    `json:"zone_name,omitempty"`
}

// Day returns the record's calendar day key.
func (r AttendanceRecord) Day() string {
	return r.AttendanceDate.Format(DateLayout)
}
