package routes

import (
	"attendance_gate/internal/controllers"
	"attendance_gate/internal/middleware"

	"github.com/gin-gonic/gin"
)

func FaceRoutes(r *gin.Engine, ctl *controllers.Controller, tokens *middleware.Tokens) {
	face := r.Group("/face")
	face.Use(tokens.RequireAuth())
	{
		face.POST("/register", ctl.RegisterFace)
	}
}
