package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/weather-fortune/internal/domain/advisory"
)

const invalidBodyMessage = "Invalid request body"

// Handler wires the advisory endpoint to the domain service.
type Handler struct {
	advisorySvc advisory.Service
	logger      *slog.Logger
}

// NewHandler constructs the advisory HTTP handler.
func NewHandler(advisorySvc advisory.Service, logger *slog.Logger) *Handler {
	return &Handler{
		advisorySvc: advisorySvc,
		logger:      logger.With("component", "http.handler"),
	}
}

// WeatherFortune resolves the location and returns the weather, air quality
// and health advice for it. Every failure on this route is a 500 carrying
// the error message.
func (h *Handler) WeatherFortune(c *gin.Context) {
	var req advisory.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "invalid_request", invalidBodyMessage, err))
		return
	}

	resp, err := h.advisorySvc.Generate(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, internalError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func internalError(err error) *HTTPError {
	httpErr := fromAppError(err)
	httpErr.Status = http.StatusInternalServerError
	return httpErr
}
