package routes

import (
	"attendance_gate/internal/controllers"
	"attendance_gate/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AuthRoutes(r *gin.Engine, ctl *controllers.Controller, tokens *middleware.Tokens) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", ctl.Login)
		auth.POST("/logout", tokens.RequireAuth(), ctl.Logout)
	}
}
