package http

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/yanqian/weather-fortune/internal/domain/auth"
	"github.com/yanqian/weather-fortune/internal/infra/config"
	"github.com/yanqian/weather-fortune/pkg/metrics"
)

var registerValidators sync.Once

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, authHandler *AuthHandler, authSvc auth.Service, recorder *metrics.Recorder, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("notblank", validators.NotBlank)
		}
	})

	httpLogger := logger.With("component", "http.router")
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(httpLogger, recorder),
		corsMiddleware(cfg.HTTP.CORS.AllowedOrigins),
		errorHandlingMiddleware(httpLogger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, httpLogger),
	)

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(recorder.Handler()))

	requireAuth := authMiddleware(authSvc)
	api := router.Group("/api/v1")
	{
		if cfg.Advisory.RequireAuth {
			api.POST("/weather-fortune", requireAuth, handler.WeatherFortune)
		} else {
			api.POST("/weather-fortune", handler.WeatherFortune)
		}

		authGroup := api.Group("/auth")
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.GET("/google/login", authHandler.GoogleLogin)
		authGroup.GET("/google/callback", authHandler.GoogleCallback)
		authGroup.GET("/me", requireAuth, authHandler.Me)
		authGroup.POST("/logout", requireAuth, authHandler.Logout)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
