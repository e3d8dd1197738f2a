package routes

import (
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"attendance_gate/internal/controllers"
	"attendance_gate/internal/middleware"
)

// SetupRouter wires every route. It does not start listening.
func SetupRouter(ctl *controllers.Controller, tokens *middleware.Tokens, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Access lines go straight to the log sink, next to logrus entries
	// rather than inside them.
	r.Use(ginlog.SetLogger(
		ginlog.WithSkipPath([]string{"/healthz", "/metrics"}),
		ginlog.WithWriter(logrus.StandardLogger().Out),
	))
	r.Use(middleware.CORS(corsOrigins))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	AuthRoutes(r, ctl, tokens)
	AttendanceRoutes(r, ctl, tokens)
	FaceRoutes(r, ctl, tokens)
	WebSocketRoutes(r, ctl, tokens)

	return r
}
