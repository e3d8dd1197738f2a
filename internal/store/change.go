package store

// Table names carried on a Change.
const (
	TableAttendance = "attendance_records"
	TableFaces      = "face_enrollments"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one row event. AttendanceDate is set for attendance rows, in
// models.DateLayout.
type Change struct {
	Table          string `json:"table"`
	Op             Op     `json:"op"`
	EmployeeID     string `json:"employee_id"`
	RecordID       string `json:"record_id,omitempty"`
	AttendanceDate string `json:"attendance_date,omitempty"`
}
