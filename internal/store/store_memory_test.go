package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance_gate/internal/liveness"
	"attendance_gate/internal/models"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func record(employeeID string, at time.Time) *models.AttendanceRecord {
	return &models.AttendanceRecord{
		EmployeeID:     employeeID,
		Timestamp:      at,
		AttendanceDate: Day(at, time.UTC),
		ZoneName:       "Head Office",
	}
}

func TestMemoryStore_Attendance(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	t.Run("append assigns an id", func(t *testing.T) {
		rec := record("E-001", monday.Add(8*time.Hour))
		require.NoError(t, s.AppendAttendance(ctx, rec))
		assert.NotEqual(t, uuid.Nil, rec.ID)
	})

	t.Run("second record on the same day is a duplicate", func(t *testing.T) {
		err := s.AppendAttendance(ctx, record("E-001", monday.Add(17*time.Hour)))
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("other employees and days are independent", func(t *testing.T) {
		require.NoError(t, s.AppendAttendance(ctx, record("E-002", monday.Add(8*time.Hour))))
		require.NoError(t, s.AppendAttendance(ctx, record("E-001", monday.Add(32*time.Hour))))
	})

	t.Run("lookup by day", func(t *testing.T) {
		got, err := s.AttendanceOn(ctx, "E-001", monday)
		require.NoError(t, err)
		assert.Equal(t, monday.Add(8*time.Hour), got.Timestamp)

		_, err = s.AttendanceOn(ctx, "E-003", monday)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list is newest first within range", func(t *testing.T) {
		all, err := s.ListAttendance(ctx, "E-001", time.Time{}, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.True(t, all[0].Timestamp.After(all[1].Timestamp))

		mondayOnly, err := s.ListAttendance(ctx, "E-001", monday, monday.AddDate(0, 0, 1), 0)
		require.NoError(t, err)
		assert.Len(t, mondayOnly, 1)

		limited, err := s.ListAttendance(ctx, "E-001", time.Time{}, time.Time{}, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}

func TestMemoryStore_FaceUpsertOverwrites(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.FaceDescriptor(ctx, "E-001")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertFace(ctx, "E-001", liveness.Descriptor{1, 2, 3}))
	require.NoError(t, s.UpsertFace(ctx, "E-001", liveness.Descriptor{4, 5, 6}))

	got, err := s.FaceDescriptor(ctx, "E-001")
	require.NoError(t, err)
	assert.Equal(t, liveness.Descriptor{4, 5, 6}, got)

	assert.Error(t, s.UpsertFace(ctx, "E-001", nil))
}

func TestMemoryStore_PublishesChanges(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	sub := s.Subscribe("E-001")
	defer sub.Close()
	other := s.Subscribe("E-002")
	defer other.Close()

	rec := record("E-001", monday.Add(8*time.Hour))
	require.NoError(t, s.AppendAttendance(ctx, rec))
	require.NoError(t, s.UpsertFace(ctx, "E-001", liveness.Descriptor{1}))
	require.NoError(t, s.DeleteAttendance(ctx, "E-001", rec.ID.String()))

	want := []Change{
		{Table: TableAttendance, Op: OpInsert, EmployeeID: "E-001", RecordID: rec.ID.String(), AttendanceDate: "2026-03-02"},
		{Table: TableFaces, Op: OpInsert, EmployeeID: "E-001"},
		{Table: TableAttendance, Op: OpDelete, EmployeeID: "E-001", RecordID: rec.ID.String(), AttendanceDate: "2026-03-02"},
	}
	for _, w := range want {
		select {
		case got := <-sub.C:
			assert.Equal(t, w, got)
		default:
			t.Fatalf("missing change %+v", w)
		}
	}
	assert.Empty(t, other.C, "changes are filtered by employee")

	assert.ErrorIs(t, s.DeleteAttendance(ctx, "E-001", rec.ID.String()), ErrNotFound)
}

func TestMemoryStore_RulesAndEmployees(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.PutEmployee(models.Employee{ID: "E-001", Name: "Sari", Status: models.EmployeeActive})
	s.SetRules([]models.GeofenceRule{{ID: "hq", ZoneName: "HQ", Latitude: "-6,2001", Longitude: "106.8166", RadiusMeters: "150"}})

	e, err := s.Employee(ctx, "E-001")
	require.NoError(t, err)
	assert.True(t, e.Active())

	_, err = s.Employee(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	rules, err := s.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "-6,2001", rules[0].Latitude)
}

func TestDay(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	late := time.Date(2026, 3, 2, 20, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-02", Day(late, time.UTC).Format(models.DateLayout))
	assert.Equal(t, "2026-03-03", Day(late, jakarta).Format(models.DateLayout))
}
