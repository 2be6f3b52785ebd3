package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/weather-fortune/internal/domain/auth"
)

// AuthHandler exposes sign-in, profile and sign-out endpoints.
type AuthHandler struct {
	svc               auth.Service
	postLoginRedirect string
	logger            *slog.Logger
}

// NewAuthHandler constructs the auth HTTP handler.
func NewAuthHandler(svc auth.Service, cfg auth.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:               svc,
		postLoginRedirect: cfg.Google.PostLoginRedirectURL,
		logger:            logger.With("component", "http.auth"),
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	view, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "refreshToken is required", err))
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the signed-in user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "not signed in", nil))
		return
	}
	view, err := h.svc.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Logout ends the current session.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "not signed in", nil))
		return
	}
	if err := h.svc.Logout(c.Request.Context(), claims); err != nil {
		abortWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GoogleLogin redirects the browser to Google with a PKCE challenge.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, verifier, challenge, err := auth.NewOAuthState()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "auth_error", "failed to start sign-in", err))
		return
	}
	target, err := h.svc.GoogleAuthURL(c.Request.Context(), state, challenge)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	setOAuthStateCookie(c, state, verifier)
	c.Redirect(http.StatusFound, target)
}

// GoogleCallback completes Google sign-in and hands the tokens to the frontend.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "oauth_denied", "google sign-in was cancelled", nil))
		return
	}
	verifier, ok := consumeOAuthState(c, c.Query("state"))
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "oauth state mismatch", nil))
		return
	}
	resp, err := h.svc.GoogleCallback(c.Request.Context(), c.Query("code"), verifier)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	if h.postLoginRedirect == "" {
		c.JSON(http.StatusOK, resp)
		return
	}
	fragment := url.Values{}
	fragment.Set("token", resp.Token)
	fragment.Set("refreshToken", resp.RefreshToken)
	c.Redirect(http.StatusFound, h.postLoginRedirect+"#"+fragment.Encode())
}
