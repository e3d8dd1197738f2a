package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendance_gate/internal/gate"
	"attendance_gate/internal/location"
	"attendance_gate/internal/middleware"
	"attendance_gate/internal/models"
)

const defaultHistoryDays = 30

// locationInput is one platform position fix as the client reports it.
type locationInput struct {
	Latitude          *float64 `json:"latitude" binding:"required"`
	Longitude         *float64 `json:"longitude" binding:"required"`
	Accuracy          float64  `json:"accuracy"`
	CapturedAtEpochMs int64    `json:"capturedAtEpochMs" binding:"required"`
	Mocked            bool     `json:"mocked"`
}

func (in locationInput) sample() location.Sample {
	return location.Sample{
		Latitude:       *in.Latitude,
		Longitude:      *in.Longitude,
		AccuracyMeters: in.Accuracy,
		CapturedAt:     time.UnixMilli(in.CapturedAtEpochMs),
		Mocked:         in.Mocked,
	}
}

// Status returns the clock-in screen state.
func (ctl *Controller) Status(c *gin.Context) {
	g, ok := ctl.gateFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, g.Snapshot())
}

// ReportLocation feeds one fix into the location trust engine and returns
// the same screen state as Status.
func (ctl *Controller) ReportLocation(c *gin.Context) {
	var body locationInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, ok := ctl.gateFor(c)
	if !ok {
		return
	}

	if _, err := g.ReportPosition(body.sample()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "location": g.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, g.Snapshot())
}

// ReportLocationError records a sensor failure such as a denied permission.
func (ctl *Controller) ReportLocationError(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, ok := ctl.gateFor(c)
	if !ok {
		return
	}

	if _, err := g.ReportSensorError(errors.New(body.Reason)); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "location": g.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, g.Snapshot())
}

// Zones returns the zones around the trusted position as GeoJSON.
func (ctl *Controller) Zones(c *gin.Context) {
	g, ok := ctl.gateFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, location.FeatureCollection(g.Zones()))
}

// ClockIn arms the verification scan. The client then opens /ws/scan.
func (ctl *Controller) ClockIn(c *gin.Context) {
	var body struct {
		ZoneID string `json:"zone_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, ok := ctl.gateFor(c)
	if !ok {
		return
	}

	scan, err := g.RequestClockIn(c.Request.Context(), body.ZoneID)
	if err != nil {
		if errors.Is(err, gate.ErrZoneSelectionRequired) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "zones": g.Zones()})
			return
		}
		writeGateError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"mode": scan.Mode, "scan": "/ws/scan", "progress": scan.Progress()})
}

// CancelClockIn closes the scanner.
func (ctl *Controller) CancelClockIn(c *gin.Context) {
	g, ok := ctl.gateFor(c)
	if !ok {
		return
	}
	g.Cancel()
	c.JSON(http.StatusOK, g.Snapshot())
}

// History lists attendance between two calendar days, both inclusive.
// Days are UTC.
func (ctl *Controller) History(c *gin.Context) {
	now := ctl.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	from, err := parseDay(c.Query("from"), today.AddDate(0, 0, -defaultHistoryDays))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date, expected YYYY-MM-DD"})
		return
	}
	to, err := parseDay(c.Query("to"), today)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date, expected YYYY-MM-DD"})
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to is before from"})
		return
	}

	records, err := ctl.store.ListAttendance(c.Request.Context(), middleware.EmployeeID(c), from, to.AddDate(0, 0, 1), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing attendance: " + err.Error()})
		return
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"from":    from.Format(models.DateLayout),
		"to":      to.Format(models.DateLayout),
		"records": records,
	})
}

func parseDay(v string, fallback time.Time) (time.Time, error) {
	if v == "" {
		return fallback, nil
	}
	return time.ParseInLocation(models.DateLayout, v, time.UTC)
}
