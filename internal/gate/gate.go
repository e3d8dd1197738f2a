// Package gate composes the location trust engine and the liveness session
// into the single clock-in action of one logged-in employee.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"attendance_gate/internal/clock"
	"attendance_gate/internal/liveness"
	"attendance_gate/internal/location"
	"attendance_gate/internal/lock"
	"attendance_gate/internal/metrics"
	"attendance_gate/internal/models"
	"attendance_gate/internal/store"
)

const recentLimit = 5

// ReasonSaveFailed ends a passed scan whose result could not be stored.
const ReasonSaveFailed = "save failed"

// Deps are the collaborators shared by every gate.
type Deps struct {
	Store    store.Store
	Feed     store.Feed // optional
	Locker   lock.Locker
	Machine  *liveness.Machine
	Clock    clock.Clock
	Location location.Config
	// Zone decides which calendar day a clock-in belongs to.
	Zone         *time.Location
	LockTTL      time.Duration
	WriteTimeout time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Zone == nil {
		d.Zone = time.UTC
	}
	if d.Locker == nil {
		d.Locker = lock.NewMemory(d.Clock)
	}
	if d.Machine == nil {
		d.Machine = liveness.NewMachine(liveness.DefaultConfig(), nil, nil)
	}
	if d.Location == (location.Config{}) {
		d.Location = location.DefaultConfig()
	}
	if d.LockTTL <= 0 {
		d.LockTTL = d.Machine.Config().Timeout + 5*time.Second
	}
	if d.WriteTimeout <= 0 {
		d.WriteTimeout = 10 * time.Second
	}
	return d
}

// Outcome is the last terminal scan result.
type Outcome struct {
	Mode    liveness.Mode `json:"mode"`
	Success bool          `json:"success"`
	Reason  string        `json:"reason,omitempty"`
	At      time.Time     `json:"at"`
}

// Snapshot is everything the client needs to render the clock-in screen.
type Snapshot struct {
	LocationStatus    location.Status           `json:"location_status"`
	LocationReason    location.Reason           `json:"location_reason,omitempty"`
	Position          *location.Sample          `json:"position,omitempty"`
	AvailableZones    []location.Rule           `json:"available_zones"`
	HasClockedInToday bool                      `json:"has_clocked_in_today"`
	FaceEnrolled      bool                      `json:"face_enrolled"`
	CanClockIn        bool                      `json:"can_clock_in"`
	Watching          bool                      `json:"watching"`
	AttemptPending    bool                      `json:"attempt_pending"`
	Liveness          *liveness.Progress        `json:"liveness,omitempty"`
	LastOutcome       *Outcome                  `json:"last_outcome,omitempty"`
	Recent            []models.AttendanceRecord `json:"recent"`
}

type attempt struct {
	scan     *Scan
	zone     location.Rule
	position *location.Sample
	release  lock.Release
}

// Gate is the attendance gate of one employee session. It is created by a
// Registry on login and closed on logout.
type Gate struct {
	employeeID string
	deps       Deps
	source     *PushSource
	engine     *location.Engine

	mu        sync.Mutex
	opened    bool
	closed    bool
	enrolled  liveness.Descriptor
	clockedIn bool
	day       string
	stopWatch func()
	sub       *store.Subscription
	pending   *attempt
	last      *Outcome
	recent    []models.AttendanceRecord
}

func New(employeeID string, deps Deps) *Gate {
	deps = deps.withDefaults()
	g := &Gate{
		employeeID: employeeID,
		deps:       deps,
		source:     NewPushSource(),
	}
	g.engine = location.NewEngine(deps.Location, nil,
		location.WithClock(deps.Clock),
		location.WithObserver(func(_ location.Snapshot, v location.Verdict) {
			metrics.ObserveSample(string(v.Reason))
		}),
	)
	return g
}

func (g *Gate) EmployeeID() string { return g.employeeID }

// Source is the position watch fed by the client.
func (g *Gate) Source() *PushSource { return g.source }

func (g *Gate) today() string {
	return store.Day(g.deps.Clock.Now(), g.deps.Zone).Format(models.DateLayout)
}

// Open loads the employee's enrollment, today's attendance and the zone
// table, then starts the position watch unless today is already recorded.
func (g *Gate) Open(ctx context.Context) error {
	enrolled, err := g.deps.Store.FaceDescriptor(ctx, g.employeeID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load face enrollment: %w", err)
	}

	now := g.deps.Clock.Now()
	today, err := g.deps.Store.AttendanceOn(ctx, g.employeeID, store.Day(now, g.deps.Zone))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load today's attendance: %w", err)
	}

	raw, err := g.deps.Store.Rules(ctx)
	if err != nil {
		return fmt.Errorf("load geofence rules: %w", err)
	}
	rules := location.NormalizeRules(raw)

	recent, err := g.deps.Store.ListAttendance(ctx, g.employeeID, time.Time{}, time.Time{}, recentLimit)
	if err != nil {
		return fmt.Errorf("load recent attendance: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if g.opened {
		return nil
	}
	g.opened = true
	g.enrolled = enrolled
	g.clockedIn = today != nil
	g.day = g.today()
	g.recent = recent
	g.engine.SetRules(rules)

	if g.clockedIn {
		g.engine.Freeze()
	} else {
		g.startWatchLocked()
	}

	if g.deps.Feed != nil {
		g.sub = g.deps.Feed.Subscribe(g.employeeID)
		go g.follow(g.sub)
	}

	logrus.WithFields(logrus.Fields{
		"employee_id":   g.employeeID,
		"face_enrolled": g.enrolled != nil,
		"clocked_in":    g.clockedIn,
		"zones":         len(rules),
	}).Info("Attendance gate opened.")
	return nil
}

func (g *Gate) follow(sub *store.Subscription) {
	for change := range sub.C {
		ctx, cancel := context.WithTimeout(context.Background(), g.deps.WriteTimeout)
		if err := g.HandleChange(ctx, change); err != nil {
			logrus.WithError(err).WithField("employee_id", g.employeeID).Warn("Failed to apply attendance change.")
		}
		cancel()
	}
}

func (g *Gate) startWatchLocked() {
	if g.stopWatch != nil {
		return
	}
	g.engine.Reset()
	g.stopWatch = g.source.Watch(
		func(s location.Sample) { g.engine.Observe(s) },
		func(err error) { g.engine.ObserveError(err) },
	)
	logrus.WithField("employee_id", g.employeeID).Debug("Position watch started.")
}

func (g *Gate) stopWatchLocked() {
	if g.stopWatch == nil {
		return
	}
	g.stopWatch()
	g.stopWatch = nil
	logrus.WithField("employee_id", g.employeeID).Debug("Position watch stopped.")
}

// markClockedInLocked freezes the engine and tears the watch down; there is
// nothing left to protect today.
func (g *Gate) markClockedInLocked() {
	g.clockedIn = true
	g.stopWatchLocked()
	g.engine.Freeze()
}

// rollLocked re-arms the gate when the calendar day has changed since the
// last clock-in.
func (g *Gate) rollLocked() {
	today := g.today()
	if today == g.day {
		return
	}
	g.day = today
	if g.clockedIn {
		g.clockedIn = false
		g.startWatchLocked()
	}
}

// ReportPosition feeds one client fix to the trust engine.
func (g *Gate) ReportPosition(s location.Sample) (location.Snapshot, error) {
	if err := g.source.Push(s); err != nil {
		return g.engine.Snapshot(), err
	}
	return g.engine.Snapshot(), nil
}

// ReportSensorError records a client-side position failure.
func (g *Gate) ReportSensorError(cause error) (location.Snapshot, error) {
	if err := g.source.Fail(cause); err != nil {
		return g.engine.Snapshot(), err
	}
	return g.engine.Snapshot(), nil
}

func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.rollLocked()
	}

	loc := g.engine.Snapshot()
	snap := Snapshot{
		LocationStatus:    loc.Status,
		LocationReason:    loc.Reason,
		Position:          loc.Position,
		AvailableZones:    loc.Zones,
		HasClockedInToday: g.clockedIn,
		FaceEnrolled:      g.enrolled != nil,
		Watching:          g.stopWatch != nil,
		AttemptPending:    g.pending != nil,
		Recent:            append([]models.AttendanceRecord{}, g.recent...),
	}
	if g.clockedIn {
		snap.AvailableZones = nil
	}
	if snap.AvailableZones == nil {
		snap.AvailableZones = []location.Rule{}
	}
	snap.CanClockIn = !g.closed && snap.FaceEnrolled && !g.clockedIn &&
		loc.Status == location.StatusAllowed && g.pending == nil
	if g.pending != nil {
		p := g.pending.scan.Progress()
		snap.Liveness = &p
	}
	if g.last != nil {
		last := *g.last
		snap.LastOutcome = &last
	}
	return snap
}

// Zones returns the zones the trusted position currently sits in.
func (g *Gate) Zones() []location.Rule {
	return g.engine.Snapshot().Zones
}

// RequestClockIn arms one verification scan. zoneID is required only when
// more than one zone matches.
func (g *Gate) RequestClockIn(ctx context.Context, zoneID string) (*Scan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrClosed
	}
	g.rollLocked()
	switch {
	case g.pending != nil:
		return nil, g.reject(ErrAttemptPending)
	case g.clockedIn:
		return nil, g.reject(ErrAlreadyClockedIn)
	case g.enrolled == nil:
		return nil, g.reject(ErrNotEnrolled)
	}

	loc := g.engine.Snapshot()
	if loc.Status != location.StatusAllowed {
		return nil, g.reject(ErrLocationNotAllowed)
	}
	zone, err := pickZone(loc.Zones, zoneID)
	if err != nil {
		return nil, g.reject(err)
	}

	release, err := g.deps.Locker.Acquire(ctx, lock.ClockInKey(g.employeeID), g.deps.LockTTL)
	if errors.Is(err, lock.ErrHeld) {
		return nil, g.reject(ErrAttemptPending)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire clock-in lock: %w", err)
	}

	a := &attempt{zone: zone, position: loc.Position, release: release}
	scan := g.startScanLocked(liveness.ModeVerify, a)

	logrus.WithFields(logrus.Fields{
		"employee_id": g.employeeID,
		"zone":        zone.ZoneName,
	}).Info("Clock-in verification armed.")
	return scan, nil
}

func (g *Gate) reject(err error) error {
	metrics.ClockIns.WithLabelValues(metrics.ClockInRejected).Inc()
	logrus.WithFields(logrus.Fields{
		"employee_id": g.employeeID,
		"reason":      err.Error(),
	}).Info("Clock-in request rejected.")
	return err
}

func pickZone(zones []location.Rule, zoneID string) (location.Rule, error) {
	if zoneID == "" {
		if len(zones) == 1 {
			return zones[0], nil
		}
		return location.Rule{}, ErrZoneSelectionRequired
	}
	for _, z := range zones {
		if z.ID == zoneID {
			return z, nil
		}
	}
	return location.Rule{}, ErrUnknownZone
}

// RegisterFace arms a register scan that stores the captured descriptor.
func (g *Gate) RegisterFace(ctx context.Context) (*Scan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrClosed
	}
	if g.pending != nil {
		return nil, ErrAttemptPending
	}
	release, err := g.deps.Locker.Acquire(ctx, lock.ClockInKey(g.employeeID), g.deps.LockTTL)
	if errors.Is(err, lock.ErrHeld) {
		return nil, ErrAttemptPending
	}
	if err != nil {
		return nil, fmt.Errorf("acquire clock-in lock: %w", err)
	}

	scan := g.startScanLocked(liveness.ModeRegister, &attempt{release: release})
	logrus.WithField("employee_id", g.employeeID).Info("Face registration armed.")
	return scan, nil
}

func (g *Gate) startScanLocked(mode liveness.Mode, a *attempt) *Scan {
	scan := newScan(mode)
	a.scan = scan

	opts := []liveness.SessionOption{
		liveness.WithSessionClock(g.deps.Clock),
		liveness.WithOnProgress(func(p liveness.Progress) {
			scan.emit(Event{Type: EventProgress, Mode: mode, Progress: &p})
		}),
		liveness.WithOnDone(func(res liveness.Result) { g.onScanDone(a, res) }),
	}
	if mode == liveness.ModeVerify {
		opts = append(opts, liveness.WithEnrolled(g.enrolled))
	}
	scan.session = liveness.NewSession(g.deps.Machine, mode, scan.Mailbox, opts...)
	g.pending = a

	// The scan outlives the request that armed it.
	scan.session.Start(context.Background())
	return scan
}

// onScanDone runs exactly once per scan, on whichever goroutine ended it.
func (g *Gate) onScanDone(a *attempt, res liveness.Result) {
	metrics.ObserveSession(string(res.Mode), res.Passed, res.Reason)

	ctx, cancel := context.WithTimeout(context.Background(), g.deps.WriteTimeout)
	defer cancel()

	success := res.Passed
	reason := res.Reason
	if res.Passed {
		var err error
		switch res.Mode {
		case liveness.ModeVerify:
			err = g.commit(ctx, a)
		case liveness.ModeRegister:
			err = g.enroll(ctx, res.Descriptor)
		}
		if err != nil {
			success = false
			reason = ReasonSaveFailed
		}
	} else if res.Mode == liveness.ModeVerify {
		metrics.ClockIns.WithLabelValues(metrics.ClockInFailed).Inc()
	}

	if err := a.release(ctx); err != nil {
		logrus.WithError(err).WithField("employee_id", g.employeeID).Warn("Failed to release clock-in lock.")
	}

	g.mu.Lock()
	if g.pending == a {
		g.pending = nil
	}
	g.last = &Outcome{Mode: res.Mode, Success: success, Reason: reason, At: g.deps.Clock.Now()}
	g.mu.Unlock()

	e := Event{Type: EventSuccess, Mode: res.Mode}
	if !success {
		st := liveness.State{Tag: liveness.StateFailed, Mode: res.Mode, Reason: reason}
		e = Event{Type: EventFailure, Mode: res.Mode, Reason: reason, Message: liveness.Instruction(st)}
	}
	a.scan.finish(e)
}

// commit writes the day's attendance record. A duplicate counts as success.
func (g *Gate) commit(ctx context.Context, a *attempt) error {
	now := g.deps.Clock.Now()
	rec := &models.AttendanceRecord{
		EmployeeID:     g.employeeID,
		Timestamp:      now,
		AttendanceDate: store.Day(now, g.deps.Zone),
		ZoneName:       a.zone.ZoneName,
	}
	pos := a.position
	if cur := g.engine.Snapshot().Position; cur != nil {
		pos = cur
	}
	if pos != nil {
		lat, lon := pos.Latitude, pos.Longitude
		rec.Latitude, rec.Longitude = &lat, &lon
	}

	err := g.deps.Store.AppendAttendance(ctx, rec)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		metrics.ClockIns.WithLabelValues(metrics.ClockInDuplicate).Inc()
		logrus.WithField("employee_id", g.employeeID).Info("Attendance already recorded today.")
	case err != nil:
		metrics.ClockIns.WithLabelValues(metrics.ClockInWriteErr).Inc()
		logrus.WithError(err).WithField("employee_id", g.employeeID).Error("Failed to record attendance.")
		return err
	default:
		metrics.ClockIns.WithLabelValues(metrics.ClockInRecorded).Inc()
		logrus.WithFields(logrus.Fields{
			"employee_id": g.employeeID,
			"record_id":   rec.ID,
			"zone":        rec.ZoneName,
		}).Info("Attendance recorded.")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.day = rec.Day()
	g.markClockedInLocked()
	if err == nil {
		g.pushRecentLocked(*rec)
	}
	return nil
}

func (g *Gate) enroll(ctx context.Context, d liveness.Descriptor) error {
	if err := g.deps.Store.UpsertFace(ctx, g.employeeID, d); err != nil {
		logrus.WithError(err).WithField("employee_id", g.employeeID).Error("Failed to save face enrollment.")
		return err
	}
	g.mu.Lock()
	g.enrolled = d
	g.mu.Unlock()
	logrus.WithField("employee_id", g.employeeID).Info("Face enrolled.")
	return nil
}

func (g *Gate) pushRecentLocked(rec models.AttendanceRecord) {
	for _, r := range g.recent {
		if r.ID == rec.ID {
			return
		}
	}
	g.recent = append([]models.AttendanceRecord{rec}, g.recent...)
	if len(g.recent) > recentLimit {
		g.recent = g.recent[:recentLimit]
	}
}

// ActiveScan returns the scan in progress.
func (g *Gate) ActiveScan() (*Scan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil, ErrNoActiveScan
	}
	return g.pending.scan, nil
}

// Cancel closes the scanner. It is a no-op when nothing is running.
func (g *Gate) Cancel() {
	g.mu.Lock()
	var scan *Scan
	if g.pending != nil {
		scan = g.pending.scan
	}
	g.mu.Unlock()

	// The done callback takes g.mu.
	if scan != nil {
		scan.Cancel()
	}
}

// Close ends the employee session: scan, watch and change feed stop and the
// trust engine forgets everything.
func (g *Gate) Close() {
	g.Cancel()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.stopWatchLocked()
	if g.sub != nil {
		g.sub.Close()
		g.sub = nil
	}
	g.engine.Reset()
	logrus.WithField("employee_id", g.employeeID).Info("Attendance gate closed.")
}

// HandleChange applies a row change seen by another session of the same
// employee, such as a clock-in from a second device.
func (g *Gate) HandleChange(ctx context.Context, c store.Change) error {
	if c.EmployeeID != g.employeeID {
		return nil
	}
	switch c.Table {
	case store.TableAttendance:
		recent, err := g.deps.Store.ListAttendance(ctx, g.employeeID, time.Time{}, time.Time{}, recentLimit)
		if err != nil {
			return fmt.Errorf("reload recent attendance: %w", err)
		}

		g.mu.Lock()
		defer g.mu.Unlock()
		if g.closed {
			return nil
		}
		g.recent = recent
		g.rollLocked()
		if c.AttendanceDate != g.day {
			return nil
		}
		switch c.Op {
		case store.OpInsert, store.OpUpdate:
			if !g.clockedIn {
				g.markClockedInLocked()
				logrus.WithField("employee_id", g.employeeID).Info("Attendance recorded elsewhere, clock-in closed.")
			}
		case store.OpDelete:
			if g.clockedIn {
				g.clockedIn = false
				g.startWatchLocked()
				logrus.WithField("employee_id", g.employeeID).Info("Today's attendance removed, clock-in reopened.")
			}
		}
		return nil

	case store.TableFaces:
		var d liveness.Descriptor
		if c.Op != store.OpDelete {
			var err error
			d, err = g.deps.Store.FaceDescriptor(ctx, g.employeeID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("reload face enrollment: %w", err)
			}
		}
		g.mu.Lock()
		g.enrolled = d
		g.mu.Unlock()
		return nil
	}
	return nil
}
