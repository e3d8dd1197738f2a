package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"attendance_gate/internal/gate"
	"attendance_gate/internal/liveness"
	"attendance_gate/internal/middleware"
)

const (
	scanWriteWait   = 5 * time.Second
	scanMaxFrameLen = 16 << 10
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware already filtered the origin
	},
}

// scanFrame is one client-side detection result. A null face means the
// detector saw nobody; a non-empty error means the camera is gone.
type scanFrame struct {
	Face  *liveness.Detection `json:"face"`
	Error string              `json:"error,omitempty"`
}

// ScanSocket streams detection frames into the active scan and pushes its
// progress and single outcome back.
func (ctl *Controller) ScanSocket(c *gin.Context) {
	employeeID := middleware.EmployeeID(c)
	g, ok := ctl.gateFor(c)
	if !ok {
		return
	}
	scan, err := g.ActiveScan()
	if err != nil {
		writeGateError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	logrus.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"mode":        scan.Mode,
		"conn_ptr":    fmt.Sprintf("%p", conn),
	}).Info("Scanner WebSocket connection established.")

	go readFrames(conn, scan, employeeID)
	writeEvents(conn, scan, employeeID)

	logrus.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"conn_ptr":    fmt.Sprintf("%p", conn),
	}).Info("Scanner WebSocket connection closed.")
}

// readFrames feeds the mailbox until the client goes away. A client that
// disconnects mid-scan has closed the scanner.
func readFrames(conn *websocket.Conn, scan *gate.Scan, employeeID string) {
	conn.SetReadLimit(scanMaxFrameLen)
	for {
		var frame scanFrame
		if err := conn.ReadJSON(&frame); err != nil {
			var closeErr *websocket.CloseError
			switch {
			case errors.As(err, &closeErr):
				logrus.WithField("employee_id", employeeID).Debug("Scanner closed by client.")
			case scan.Mailbox.Closed():
			default:
				logrus.WithError(err).WithField("employee_id", employeeID).Warn("Error reading scanner frame.")
			}
			scan.Cancel()
			return
		}

		if frame.Error != "" {
			scan.Mailbox.Fail(errors.New(frame.Error))
			continue
		}
		if err := scan.Mailbox.Put(frame.Face); errors.Is(err, liveness.ErrMailboxClosed) {
			return
		}
	}
}

// writeEvents is the only writer on conn.
func writeEvents(conn *websocket.Conn, scan *gate.Scan, employeeID string) {
	for e := range scan.Events() {
		conn.SetWriteDeadline(time.Now().Add(scanWriteWait))
		if err := conn.WriteJSON(e); err != nil {
			logrus.WithError(err).WithField("employee_id", employeeID).Warn("Failed to send scanner event.")
			scan.Cancel()
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(scanWriteWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan finished"))
}
