package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestHub_SubscribeAndClose(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("E-001")
	b := h.Subscribe("E-001")
	assert.Equal(t, 2, h.Subscribers("E-001"))

	h.Publish(Change{Table: TableFaces, Op: OpUpdate, EmployeeID: "E-001"})
	assert.Len(t, a.C, 1)
	assert.Len(t, b.C, 1)

	a.Close()
	a.Close()
	assert.Equal(t, 1, h.Subscribers("E-001"))
	_, open := <-drain(a.C)
	assert.False(t, open)

	b.Close()
	assert.Zero(t, h.Subscribers("E-001"))
	h.Publish(Change{Table: TableFaces, Op: OpDelete, EmployeeID: "E-001"})
}

// drain empties c and returns it, so the next receive reports closure.
func drain(c <-chan Change) <-chan Change {
	for range len(c) {
		<-c
	}
	return c
}

func TestHub_FullSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("E-001")
	defer sub.Close()

	for i := 0; i < subscriptionBuffer+5; i++ {
		h.Publish(Change{Table: TableAttendance, Op: OpInsert, EmployeeID: "E-001", RecordID: fmt.Sprint(i)})
	}
	assert.Len(t, sub.C, subscriptionBuffer)
}

func TestParseChange(t *testing.T) {
	c, err := parseChange(`{"table":"attendance_records","op":"delete","employee_id":"E-001","record_id":"abc","attendance_date":"2026-03-02"}`)
	require.NoError(t, err)
	assert.Equal(t, Change{Table: TableAttendance, Op: OpDelete, EmployeeID: "E-001", RecordID: "abc", AttendanceDate: "2026-03-02"}, c)

	_, err = parseChange(`{"table":"face_enrollments"}`)
	assert.Error(t, err)
	_, err = parseChange(`not json`)
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}
