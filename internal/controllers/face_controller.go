package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterFace arms a register-mode scan. The descriptor captured by the
// scan replaces any earlier enrollment.
func (ctl *Controller) RegisterFace(c *gin.Context) {
	g, ok := ctl.gateFor(c)
	if !ok {
		return
	}
	scan, err := g.RegisterFace(c.Request.Context())
	if err != nil {
		writeGateError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"mode": scan.Mode, "scan": "/ws/scan", "progress": scan.Progress()})
}
