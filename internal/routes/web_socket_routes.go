package routes

import (
	"attendance_gate/internal/controllers"
	"attendance_gate/internal/middleware"

	"github.com/gin-gonic/gin"
)

// WebSocketRoutes authenticates with ?token= because browsers cannot set
// headers on the handshake.
func WebSocketRoutes(r *gin.Engine, ctl *controllers.Controller, tokens *middleware.Tokens) {
	wsRoutes := r.Group("/ws")
	wsRoutes.Use(tokens.RequireAuth())
	{
		wsRoutes.GET("/scan", ctl.ScanSocket)
	}
}
