package http

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	oauthStateCookieName = "oauth_state"
	oauthStateMaxAge     = 300
)

type oauthStateCookie struct {
	State        string `json:"state"`
	CodeVerifier string `json:"verifier"`
}

func setOAuthStateCookie(c *gin.Context, state, codeVerifier string) {
	data, _ := json.Marshal(oauthStateCookie{State: state, CodeVerifier: codeVerifier})
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookieName, base64.RawURLEncoding.EncodeToString(data), oauthStateMaxAge, "/", "", c.Request.TLS != nil, true)
}

// consumeOAuthState clears the state cookie and returns the PKCE verifier
// when the callback state matches the one issued at login.
func consumeOAuthState(c *gin.Context, state string) (string, bool) {
	payload, ok := readOAuthStateCookie(c)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	if !ok || state == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(payload.State), []byte(state)) != 1 {
		return "", false
	}
	return payload.CodeVerifier, true
}

func readOAuthStateCookie(c *gin.Context) (oauthStateCookie, bool) {
	value, err := c.Cookie(oauthStateCookieName)
	if err != nil || value == "" {
		return oauthStateCookie{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return oauthStateCookie{}, false
	}
	var payload oauthStateCookie
	if err := json.Unmarshal(data, &payload); err != nil {
		return oauthStateCookie{}, false
	}
	if payload.State == "" || payload.CodeVerifier == "" {
		return oauthStateCookie{}, false
	}
	return payload, true
}
