// Package http serves the auth engine over a JSON REST API built on gin,
// together with /metrics and /healthz.
package http

import (
	"net/http"

	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/dmitrijs2005/msauth/internal/server/metrics"
	"github.com/gin-gonic/gin"
)

// ReadinessChecker reports whether the service can take traffic.
type ReadinessChecker func() bool

func NewRouter(auth Service, l logging.Logger, m *metrics.Metrics, ready ReadinessChecker) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(Logging(l))

	h := NewAuthHandler(auth, l, m)

	router.POST("/register", h.op("register", h.Register))
	router.POST("/login", h.op("login", h.Login))
	router.POST("/validate-token", h.op("validate_token", h.ValidateToken))
	router.POST("/reset-password", h.op("reset_password", h.ResetPassword))
	router.PUT("/users/:id", h.op("update_user", h.UpdateUser))
	router.PUT("/update", h.op("update_user", h.UpdateUser))

	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if ready != nil && !ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "Endpoint not found")
	})
	router.NoMethod(func(c *gin.Context) {
		respondMessage(c, http.StatusMethodNotAllowed, "Unsupported HTTP method: "+c.Request.Method)
	})

	return router
}
