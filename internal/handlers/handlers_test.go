package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classpulse-systems/classpulse/internal/handlers"
	"github.com/classpulse-systems/classpulse/internal/hub"
	"github.com/classpulse-systems/classpulse/internal/middleware"
	"github.com/classpulse-systems/classpulse/internal/models"
	"github.com/classpulse-systems/classpulse/internal/repository"
	"github.com/classpulse-systems/classpulse/internal/server"
	"github.com/classpulse-systems/classpulse/internal/service"
	"github.com/classpulse-systems/classpulse/pkg/tokens"
)

type testApp struct {
	router http.Handler
	repo   *repository.InMemoryRepository
	tokens *tokens.TokenGenerator
	svc    *service.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	repo := repository.NewInMemoryRepository()
	tg := tokens.NewTokenGenerator("test-secret-key-that-is-long-enough", "classpulse", "classpulse-api", 15*time.Minute, 64)
	svc := service.NewAuthService(repo, tg, nil, 7*24*time.Hour)

	authHandler := handlers.NewAuthHandler(svc)
	wsHandler := handlers.NewWSHandler(hub.New(), tg, nil)
	authMW := middleware.NewAuthMiddleware(tg)

	router := server.NewRouter(authHandler, wsHandler, authMW, middleware.CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return &testApp{router: router, repo: repo, tokens: tg, svc: svc}
}

func (a *testApp) seedUser(t *testing.T, username, password string, roles []string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, a.repo.CreateUser(context.Background(), user))
	return user
}

func (a *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestLoginEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "jdoe", "correct horse", []string{"teacher"})

	rec := app.do(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Username: "jdoe",
		Password: "correct horse",
	}, "")

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[models.LoginResponse](t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "jdoe", resp.Username)
	assert.Equal(t, []string{"teacher"}, resp.Roles)
}

func TestLoginFailureBodyIsGeneric(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "jdoe", "correct horse", []string{"student"})

	wrongPassword := app.do(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Username: "jdoe",
		Password: "nope",
	}, "")
	unknownUser := app.do(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Username: "ghost",
		Password: "nope",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	// Identical bodies; the response must not leak whether the user exists.
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestLoginMalformedBody(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshFlow(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "jdoe", "correct horse", []string{"student"})

	login := decodeBody[models.LoginResponse](t, app.do(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Username: "jdoe",
		Password: "correct horse",
	}, ""))

	rec := app.do(t, http.MethodPost, "/api/v1/auth/refresh", models.RefreshRequest{
		RefreshToken: login.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rotated := decodeBody[models.LoginResponse](t, rec)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// The spent token is rejected on replay.
	replay := app.do(t, http.MethodPost, "/api/v1/auth/refresh", models.RefreshRequest{
		RefreshToken: login.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestRefreshUnknownToken(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/auth/refresh", models.RefreshRequest{
		RefreshToken: "never-issued",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "jdoe", "correct horse", []string{"student"})

	login := decodeBody[models.LoginResponse](t, app.do(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Username: "jdoe",
		Password: "correct horse",
	}, ""))

	first := app.do(t, http.MethodPost, "/api/v1/auth/logout", models.LogoutRequest{
		RefreshToken: login.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusNoContent, first.Code)

	// Logout is idempotent.
	second := app.do(t, http.MethodPost, "/api/v1/auth/logout", models.LogoutRequest{
		RefreshToken: login.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusNoContent, second.Code)

	// The revoked token no longer rotates.
	refresh := app.do(t, http.MethodPost, "/api/v1/auth/refresh", models.RefreshRequest{
		RefreshToken: login.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)
}

func TestMeEndpoint(t *testing.T) {
	app := newTestApp(t)
	user := app.seedUser(t, "jdoe", "correct horse", []string{"teacher"})

	token, err := app.tokens.GenerateAccessToken(user.ID, user.Username, user.Email, user.Roles)
	require.NoError(t, err)

	rec := app.do(t, http.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, user.ID, body["user_id"])
	assert.Equal(t, "jdoe", body["username"])
}

func TestMeRequiresToken(t *testing.T) {
	app := newTestApp(t)

	noToken := app.do(t, http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, noToken.Code)

	badToken := app.do(t, http.MethodGet, "/api/v1/auth/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, badToken.Code)
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	admin := app.seedUser(t, "boss", "correct horse", []string{"admin"})
	teacher := app.seedUser(t, "prof", "correct horse", []string{"teacher"})

	adminToken, err := app.tokens.GenerateAccessToken(admin.ID, admin.Username, admin.Email, admin.Roles)
	require.NoError(t, err)
	teacherToken, err := app.tokens.GenerateAccessToken(teacher.ID, teacher.Username, teacher.Email, teacher.Roles)
	require.NoError(t, err)

	req := models.CreateUserRequest{
		Username: "newkid",
		Email:    "newkid@example.com",
		Password: "battery staple",
	}

	forbidden := app.do(t, http.MethodPost, "/api/v1/users", req, teacherToken)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	created := app.do(t, http.MethodPost, "/api/v1/users", req, adminToken)
	require.Equal(t, http.StatusCreated, created.Code)

	user := decodeBody[models.User](t, created)
	assert.Equal(t, "newkid", user.Username)
	assert.Equal(t, []string{"student"}, user.Roles)
	assert.Empty(t, user.PasswordHash, "password hash must not serialize")

	duplicate := app.do(t, http.MethodPost, "/api/v1/users", req, adminToken)
	assert.Equal(t, http.StatusConflict, duplicate.Code)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	app := newTestApp(t)
	admin := app.seedUser(t, "boss", "correct horse", []string{"admin"})
	token, err := app.tokens.GenerateAccessToken(admin.ID, admin.Username, admin.Email, admin.Roles)
	require.NoError(t, err)

	rec := app.do(t, http.MethodPost, "/api/v1/users", models.CreateUserRequest{
		Username: "eve",
		Email:    "eve@example.com",
		Password: "battery staple",
		Roles:    []string{"superuser"},
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUserSelfOrAdmin(t *testing.T) {
	app := newTestApp(t)
	admin := app.seedUser(t, "boss", "correct horse", []string{"admin"})
	alice := app.seedUser(t, "alice", "correct horse", []string{"student"})
	bob := app.seedUser(t, "bob", "correct horse", []string{"student"})

	adminToken, _ := app.tokens.GenerateAccessToken(admin.ID, admin.Username, admin.Email, admin.Roles)
	aliceToken, _ := app.tokens.GenerateAccessToken(alice.ID, alice.Username, alice.Email, alice.Roles)

	// Self read works.
	self := app.do(t, http.MethodGet, "/api/v1/users/"+alice.ID, nil, aliceToken)
	assert.Equal(t, http.StatusOK, self.Code)

	// Reading someone else is forbidden for non-admins.
	other := app.do(t, http.MethodGet, "/api/v1/users/"+bob.ID, nil, aliceToken)
	assert.Equal(t, http.StatusForbidden, other.Code)

	// Admin reads anyone.
	asAdmin := app.do(t, http.MethodGet, "/api/v1/users/"+bob.ID, nil, adminToken)
	assert.Equal(t, http.StatusOK, asAdmin.Code)

	missing := app.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString(), nil, adminToken)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
}
