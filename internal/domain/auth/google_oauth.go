package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	apperrors "github.com/yanqian/weather-fortune/pkg/errors"
)

const (
	googleProviderName = "google"
	googleIssuerURL    = "https://accounts.google.com"
)

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
}

type idTokenVerifier interface {
	verify(ctx context.Context, rawToken string) (googleClaims, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func (v oidcVerifier) verify(ctx context.Context, rawToken string) (googleClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return googleClaims{}, apperrors.Wrap("invalid_token", "failed to verify id token", err)
	}
	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return googleClaims{}, apperrors.Wrap("invalid_token", "failed to parse id token claims", err)
	}
	return claims, nil
}

func (s *service) GoogleAuthURL(_ context.Context, state, codeChallenge string) (string, error) {
	cfg, err := s.googleOAuthConfig()
	if err != nil {
		return "", err
	}
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

func (s *service) GoogleCallback(ctx context.Context, code, codeVerifier string) (LoginResponse, error) {
	cfg, err := s.googleOAuthConfig()
	if err != nil {
		return LoginResponse{}, err
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(codeVerifier) == "" {
		return LoginResponse{}, apperrors.Wrap("invalid_request", "missing oauth code or verifier", nil)
	}
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("oauth_exchange_failed", "failed to exchange oauth code", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return LoginResponse{}, apperrors.Wrap("oauth_exchange_failed", "missing id_token in oauth response", nil)
	}
	verifier, err := s.googleIDTokenVerifier(ctx)
	if err != nil {
		return LoginResponse{}, err
	}
	claims, err := verifier.verify(ctx, rawIDToken)
	if err != nil {
		return LoginResponse{}, err
	}
	user, err := s.userForGoogle(ctx, claims)
	if err != nil {
		return LoginResponse{}, err
	}
	return s.startSession(ctx, user)
}

// userForGoogle finds the account linked to the Google subject, creating it
// on first sign-in. Existing password accounts are never linked by email.
func (s *service) userForGoogle(ctx context.Context, claims googleClaims) (User, error) {
	if claims.Subject == "" {
		return User{}, apperrors.Wrap("auth_error", "missing google subject", nil)
	}
	if !claims.EmailVerified {
		return User{}, apperrors.Wrap("invalid_credentials", "google account email not verified", nil)
	}
	email, err := normalizeEmail(claims.Email)
	if err != nil {
		return User{}, apperrors.Wrap("invalid_input", "invalid email address", err)
	}

	identity, found, err := s.repo.GetIdentity(ctx, googleProviderName, claims.Subject)
	if err != nil {
		return User{}, apperrors.Wrap("auth_error", "failed to fetch identity", err)
	}
	if found {
		user, ok, err := s.repo.GetByID(ctx, identity.UserID)
		if err != nil {
			return User{}, apperrors.Wrap("auth_error", "failed to load user", err)
		}
		if !ok {
			return User{}, apperrors.Wrap("user_not_found", "user not found", nil)
		}
		return user, nil
	}

	if _, exists, err := s.repo.GetByEmail(ctx, email); err != nil {
		return User{}, apperrors.Wrap("auth_error", "failed to check existing user", err)
	} else if exists {
		return User{}, apperrors.Wrap("account_linking_disabled", "account linking by email is not enabled", nil)
	}

	passwordHash, err := hashRandomPassword()
	if err != nil {
		return User{}, apperrors.Wrap("auth_error", "failed to generate password hash", err)
	}
	user, err := s.repo.Create(ctx, email, googleNickname(claims), passwordHash)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return User{}, apperrors.Wrap("email_exists", "email already registered", err)
		}
		return User{}, apperrors.Wrap("auth_error", "failed to create user", err)
	}
	_, err = s.repo.CreateIdentity(ctx, Identity{
		UserID:          user.ID,
		Provider:        googleProviderName,
		ProviderSubject: claims.Subject,
		ProviderEmail:   email,
	})
	if err != nil {
		if errors.Is(err, ErrIdentityExists) {
			return User{}, apperrors.Wrap("identity_exists", "google account already linked", err)
		}
		return User{}, apperrors.Wrap("auth_error", "failed to persist identity", err)
	}
	s.logger.Info("google user created", "user_id", user.ID)
	return user, nil
}

func (s *service) googleOAuthConfig() (*oauth2.Config, error) {
	googleCfg := s.cfg.Google
	if !googleCfg.Enabled() {
		return nil, apperrors.Wrap("auth_not_configured", "google oauth is not configured", nil)
	}
	return &oauth2.Config{
		ClientID:     googleCfg.ClientID,
		ClientSecret: googleCfg.ClientSecret,
		RedirectURL:  googleCfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		Endpoint:     google.Endpoint,
	}, nil
}

// googleIDTokenVerifier discovers the Google issuer once and reuses the
// verifier, which caches signing keys between calls.
func (s *service) googleIDTokenVerifier(ctx context.Context) (idTokenVerifier, error) {
	s.googleMu.Lock()
	defer s.googleMu.Unlock()
	if s.googleVerifier != nil {
		return s.googleVerifier, nil
	}
	provider, err := oidc.NewProvider(ctx, googleIssuerURL)
	if err != nil {
		return nil, apperrors.Wrap("auth_error", "failed to initialize oidc provider", err)
	}
	s.googleVerifier = oidcVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: s.cfg.Google.ClientID})}
	return s.googleVerifier, nil
}

func googleNickname(claims googleClaims) string {
	candidate := strings.TrimSpace(claims.GivenName)
	if candidate == "" {
		candidate = strings.TrimSpace(claims.Name)
	}
	if candidate == "" {
		candidate = strings.Split(claims.Email, "@")[0]
	}
	builder := strings.Builder{}
	count := 0
	for _, r := range candidate {
		if count >= 10 {
			break
		}
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
			builder.WriteRune(r)
			count++
		}
	}
	if normalized, err := normalizeNickname(builder.String()); err == nil {
		return normalized
	}
	return "User"
}

func hashRandomPassword() (string, error) {
	raw, err := randomString(32)
	if err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func randomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CodeChallengeFromVerifier computes the PKCE code challenge for a verifier.
func CodeChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewOAuthState returns a state, code verifier, and code challenge for PKCE.
func NewOAuthState() (state string, codeVerifier string, codeChallenge string, err error) {
	state, err = randomString(32)
	if err != nil {
		return "", "", "", err
	}
	codeVerifier, err = randomString(32)
	if err != nil {
		return "", "", "", err
	}
	codeChallenge = CodeChallengeFromVerifier(codeVerifier)
	return state, codeVerifier, codeChallenge, nil
}
