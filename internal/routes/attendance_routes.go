package routes

import (
	"attendance_gate/internal/controllers"
	"attendance_gate/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AttendanceRoutes(r *gin.Engine, ctl *controllers.Controller, tokens *middleware.Tokens) {
	attendance := r.Group("/attendance")
	attendance.Use(tokens.RequireAuth())
	{
		attendance.GET("/status", ctl.Status)
		attendance.POST("/location", ctl.ReportLocation)
		attendance.POST("/location/error", ctl.ReportLocationError)
		attendance.GET("/zones", ctl.Zones)
		attendance.POST("/clock-in", ctl.ClockIn)
		attendance.POST("/clock-in/cancel", ctl.CancelClockIn)
		attendance.GET("/history", ctl.History)
	}
}
