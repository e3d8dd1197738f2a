package models

import "time"

// Employee statuses. Only active employees may log in.
const (
	EmployeeActive   = "active"
	EmployeeInactive = "inactive"
)

type Employee struct {
	ID       string    `json:"employee_id" gorm:"primaryKey;size:64"`
	Name     string    `json:"name"`
	Position string    `json:"position"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Status   string    `json:"status" gorm:"default:active"` // "active", "inactive"
	JoinDate time.Time `json:"join_date"`
	PinHash  string    `json:"-"` // bcrypt; empty means no PIN is required

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (e Employee) Active() bool { return e.Status == EmployeeActive }
