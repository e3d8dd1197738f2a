package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"attendance_gate/internal/clock"
	"attendance_gate/internal/gate"
	"attendance_gate/internal/middleware"
	"attendance_gate/internal/store"
)

// Controller serves the attendance API. Every handler except Login runs
// behind middleware.RequireAuth.
type Controller struct {
	gates  *gate.Registry
	store  store.Store
	tokens *middleware.Tokens
	clock  clock.Clock
}

func New(gates *gate.Registry, st store.Store, tokens *middleware.Tokens, c clock.Clock) *Controller {
	if c == nil {
		c = clock.Real()
	}
	return &Controller{gates: gates, store: st, tokens: tokens, clock: c}
}

// gateFor returns the caller's gate. A valid token that outlived a restart
// reopens the gate instead of forcing a new login, but only for an employee
// who is still active.
func (ctl *Controller) gateFor(c *gin.Context) (*gate.Gate, bool) {
	employeeID := middleware.EmployeeID(c)
	if g, ok := ctl.gates.Get(employeeID); ok {
		return g, true
	}

	emp, err := ctl.store.Employee(c.Request.Context(), employeeID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "employee not found"})
		return nil, false
	case err != nil:
		logrus.WithError(err).WithField("employee_id", employeeID).Error("Failed to load employee.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load attendance state"})
		return nil, false
	case !emp.Active():
		logrus.WithField("employee_id", employeeID).Warn("Inactive employee used a session token.")
		c.JSON(http.StatusForbidden, gin.H{"error": "employee account is not active"})
		return nil, false
	}

	g, err := ctl.gates.Open(c.Request.Context(), employeeID)
	if err != nil {
		logrus.WithError(err).WithField("employee_id", employeeID).Error("Failed to open attendance gate.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load attendance state"})
		return nil, false
	}
	return g, true
}

// writeGateError maps gate refusals to HTTP statuses.
func writeGateError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gate.ErrAttemptPending), errors.Is(err, gate.ErrAlreadyClockedIn):
		status = http.StatusConflict
	case errors.Is(err, gate.ErrNotEnrolled), errors.Is(err, gate.ErrLocationNotAllowed):
		status = http.StatusPreconditionFailed
	case errors.Is(err, gate.ErrZoneSelectionRequired), errors.Is(err, gate.ErrUnknownZone):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, gate.ErrNotWatching), errors.Is(err, gate.ErrNoActiveScan):
		status = http.StatusConflict
	case errors.Is(err, gate.ErrClosed):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		logrus.WithError(err).Error("Attendance request failed.")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
