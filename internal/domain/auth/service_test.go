package auth

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/weather-fortune/pkg/errors"
)

func newTestService(repo *memoryRepo, sessions *memorySessions) *service {
	return NewService(Config{
		Secret:          "test-secret",
		TokenTTL:        time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}, repo, sessions, newTestLogger()).(*service)
}

func TestService_RegisterLoginAndRefresh(t *testing.T) {
	sessions := newMemorySessions()
	svc := newTestService(newMemoryRepo(), sessions)

	view, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "User@Example.com",
		Password: "pass1234",
		Nickname: "CodeStar",
	})
	require.NoError(t, err)
	require.Equal(t, "user@example.com", view.Email)
	require.Equal(t, "CodeStar", view.Nickname)
	require.NotZero(t, view.ID)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "pass1234",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, view.Email, resp.User.Email)
	require.Len(t, sessions.items, 1)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	require.Equal(t, view.ID, claims.UserID)
	require.Equal(t, view.Email, claims.Email)
	require.NotEmpty(t, claims.SessionID)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)

	refreshed, err := svc.Refresh(context.Background(), resp.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, resp.Token, refreshed.Token)
	require.Equal(t, "CodeStar", refreshed.User.Nickname)

	refreshedClaims, err := svc.ValidateToken(context.Background(), refreshed.Token)
	require.NoError(t, err)
	require.Equal(t, claims.SessionID, refreshedClaims.SessionID)
	require.Len(t, sessions.items, 1)
}

func TestService_RefreshTokenIsSingleUse(t *testing.T) {
	sessions := newMemorySessions()
	svc := newTestService(newMemoryRepo(), sessions)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "pass1234", Nickname: "Nick"})
	require.NoError(t, err)
	login, err := svc.Login(ctx, LoginRequest{Email: "a@b.com", Password: "pass1234"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
	require.Equal(t, "refresh token already used", apperrors.MessageOf(err))

	again, err := svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, again.Token)
	require.NoError(t, err)
	require.Len(t, sessions.items, 1)
	for _, session := range sessions.items {
		require.NotEmpty(t, session.RefreshID)
	}
}

func TestService_DuplicateEmail(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newMemorySessions())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "user@example.com",
		Password: "pass1234",
		Nickname: "NickOne",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{
		Email:    "user@example.com",
		Password: "pass12345",
		Nickname: "NickTwo",
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "email_exists"))
}

func TestService_RegisterValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newMemorySessions())
	cases := []RegisterRequest{
		{Email: "not-an-email", Password: "pass1234", Nickname: "Nick"},
		{Email: "a@b.com", Password: "short", Nickname: "Nick"},
		{Email: "a@b.com", Password: "pass1234", Nickname: "  "},
		{Email: "a@b.com", Password: "pass1234", Nickname: "bad!name"},
	}
	for _, req := range cases {
		_, err := svc.Register(context.Background(), req)
		require.True(t, apperrors.IsCode(err, "invalid_input"), "request %+v", req)
	}
}

func TestService_LoginWrongPassword(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newMemorySessions())
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.com", Password: "pass1234", Nickname: "Nick"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "wrongpass"})
	require.True(t, apperrors.IsCode(err, "invalid_credentials"))

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@b.com", Password: "pass1234"})
	require.True(t, apperrors.IsCode(err, "invalid_credentials"))
}

func TestService_LogoutEndsSession(t *testing.T) {
	sessions := newMemorySessions()
	svc := newTestService(newMemoryRepo(), sessions)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "pass1234", Nickname: "Nick"})
	require.NoError(t, err)
	first, err := svc.Login(ctx, LoginRequest{Email: "a@b.com", Password: "pass1234"})
	require.NoError(t, err)
	second, err := svc.Login(ctx, LoginRequest{Email: "a@b.com", Password: "pass1234"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, first.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims))

	_, err = svc.ValidateToken(ctx, first.Token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.True(t, apperrors.IsCode(err, "invalid_token"))

	_, err = svc.ValidateToken(ctx, second.Token)
	require.NoError(t, err)
}

func TestService_TokenTypeAndExpiry(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newMemorySessions())
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "pass1234", Nickname: "Nick"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, LoginRequest{Email: "a@b.com", Password: "pass1234"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, resp.RefreshToken)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
	_, err = svc.Refresh(ctx, resp.Token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
	_, err = svc.ValidateToken(ctx, "")
	require.True(t, apperrors.IsCode(err, "invalid_token"))

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(ctx, resp.Token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestService_ProfileNotFound(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newMemorySessions())
	_, err := svc.Profile(context.Background(), 42)
	require.True(t, apperrors.IsCode(err, "user_not_found"))
}

func TestService_GoogleSignIn(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newMemorySessions())
	ctx := context.Background()
	claims := googleClaims{Subject: "sub-1", Email: "Rain@Example.com", EmailVerified: true, GivenName: "Rain-Drop"}

	user, err := svc.userForGoogle(ctx, claims)
	require.NoError(t, err)
	require.Equal(t, "rain@example.com", user.Email)
	require.Equal(t, "RainDrop", user.Nickname)
	require.Len(t, repo.identities, 1)

	again, err := svc.userForGoogle(ctx, claims)
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)
	require.Len(t, repo.identities, 1)

	_, err = svc.userForGoogle(ctx, googleClaims{Subject: "sub-2", Email: "rain@example.com", EmailVerified: true})
	require.True(t, apperrors.IsCode(err, "account_linking_disabled"))

	_, err = svc.userForGoogle(ctx, googleClaims{Subject: "sub-3", Email: "x@example.com"})
	require.True(t, apperrors.IsCode(err, "invalid_credentials"))
}

func TestService_GoogleAuthURL(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newMemorySessions())
	_, err := svc.GoogleAuthURL(context.Background(), "state", "challenge")
	require.True(t, apperrors.IsCode(err, "auth_not_configured"))

	svc.cfg.Google = GoogleConfig{ClientID: "client", ClientSecret: "secret", RedirectURL: "http://localhost/callback"}
	raw, err := svc.GoogleAuthURL(context.Background(), "state-1", "challenge-1")
	require.NoError(t, err)
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	query := parsed.Query()
	require.Equal(t, "state-1", query.Get("state"))
	require.Equal(t, "challenge-1", query.Get("code_challenge"))
	require.Equal(t, "S256", query.Get("code_challenge_method"))
	require.Equal(t, "client", query.Get("client_id"))
}

func TestNewOAuthState(t *testing.T) {
	state, verifier, challenge, err := NewOAuthState()
	require.NoError(t, err)
	require.NotEmpty(t, state)
	require.NotEqual(t, state, verifier)
	require.Equal(t, CodeChallengeFromVerifier(verifier), challenge)
}

func TestGoogleNickname(t *testing.T) {
	require.Equal(t, "Ada", googleNickname(googleClaims{GivenName: "Ada"}))
	require.Equal(t, "Grace", googleNickname(googleClaims{Name: " Grace "}))
	require.Equal(t, "jdoe", googleNickname(googleClaims{Email: "j.doe42@example.com"}))
	require.Equal(t, "User", googleNickname(googleClaims{GivenName: "李"}))
	require.Equal(t, "Abcdefghij", googleNickname(googleClaims{GivenName: "Abcdefghijklmno"}))
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type memoryRepo struct {
	users      map[int64]User
	identities map[string]Identity
	seq        int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]User), identities: make(map[string]Identity)}
}

func (m *memoryRepo) Create(_ context.Context, email, nickname, passwordHash string) (User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return User{}, ErrEmailExists
		}
	}
	m.seq++
	user := User{
		ID:           m.seq,
		Email:        email,
		Nickname:     nickname,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (User, bool, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, true, nil
		}
	}
	return User{}, false, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (User, bool, error) {
	user, ok := m.users[id]
	return user, ok, nil
}

func (m *memoryRepo) GetIdentity(_ context.Context, provider, subject string) (Identity, bool, error) {
	identity, ok := m.identities[provider+"|"+subject]
	return identity, ok, nil
}

func (m *memoryRepo) CreateIdentity(_ context.Context, identity Identity) (Identity, error) {
	key := identity.Provider + "|" + identity.ProviderSubject
	if _, ok := m.identities[key]; ok {
		return Identity{}, ErrIdentityExists
	}
	identity.ID = int64(len(m.identities) + 1)
	m.identities[key] = identity
	return identity, nil
}

type memorySessions struct {
	items map[string]Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{items: make(map[string]Session)}
}

func (m *memorySessions) Save(_ context.Context, session Session) error {
	m.items[session.ID] = session
	return nil
}

func (m *memorySessions) Get(_ context.Context, id string) (Session, bool, error) {
	session, ok := m.items[id]
	return session, ok, nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}
