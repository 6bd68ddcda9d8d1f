package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"multiauth/internal/obs"
)

// NewRouter configura el router de Gin con middlewares y rutas de autenticacion.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	metrics *obs.Metrics,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(obs.Handler(gatherer)))
	}

	auth := r.Group("/auth", jsonContentTypeMiddleware())
	auth.POST("/login", authH.Login)
	auth.POST("/register", authH.Register)
	auth.POST("/password/reset", authH.ResetPassword)
	auth.POST("/logout", authH.Logout)
	auth.POST("/refresh", authH.Refresh)

	auth.POST("/phone/ticket", authH.PhoneTicket)
	auth.POST("/phone/code", authH.PhoneCode)
	auth.POST("/phone/verify", authH.PhoneVerify)

	auth.GET("/challenge/:id", authH.Challenge)
	auth.POST("/challenge/:id/report", authH.ReportChallenge)
	auth.POST("/challenge/:id/cancel", authH.CancelChallenge)

	auth.POST("/oauth/:provider", authH.OAuthLogin)
	auth.GET("/oauth/pending/:id", authH.OAuthPending)
	auth.GET("/oauth/callback", authH.OAuthCallback)

	auth.POST("/recaptcha/verify", authH.VerifyRecaptcha)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
// La query no se registra: los callbacks OAuth traen tokens.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
