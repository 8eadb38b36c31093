package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timi/timi-go/internal/crypto"
	"github.com/timi/timi-go/internal/middleware"
	"github.com/timi/timi-go/internal/model"
	"github.com/timi/timi-go/internal/repository"
	"github.com/timi/timi-go/internal/service"
)

const testSecret = "handler-test-secret"

type testServer struct {
	handler http.Handler
	tokens  *crypto.TokenIssuer
}

func newTestServer(t *testing.T, rateLimit func(http.Handler) http.Handler) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	tokens := crypto.NewTokenIssuer(testSecret, time.Hour)

	auth := service.NewAuthService(store.Users(), crypto.NewBcryptHasher(4), tokens, logger)
	_, err := auth.SeedUser(context.Background(), "demo@example.com", "password123")
	require.NoError(t, err)

	return &testServer{
		handler: NewRouter(RouterConfig{
			Auth:        auth,
			Tasks:       service.NewTaskService(store.Tasks(), logger),
			Logger:      logger,
			CORSOrigins: []string{"http://localhost:5173"},
			RateLimit:   rateLimit,
		}),
		tokens: tokens,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp model.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.AccessToken
}

func (s *testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{"email": email, "password": "Password1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return s.login(t, email, "Password1")
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorBody {
	t.Helper()
	var body middleware.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, rec.Code, body.StatusCode)
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestRegisterEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"email":    "new@example.com",
		"password": "Password1",
		"name":     "New User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "bearer", resp["token_type"])
	assert.NotEmpty(t, resp["access_token"])
	user, ok := resp["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, "New User", user["name"])
	assert.NotContains(t, user, "password_hash")

	subject, err := s.tokens.Verify(resp["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", subject)
}

func TestRegisterEndpointErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantDetail string
	}{
		{
			name:       "duplicate email",
			body:       map[string]string{"email": "demo@example.com", "password": "Password1"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "email already registered",
		},
		{
			name:       "no uppercase",
			body:       map[string]string{"email": "weak@example.com", "password": "alllowercase1"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "password does not meet requirements: password must contain at least one uppercase letter",
		},
		{
			name:       "no digit",
			body:       map[string]string{"email": "weak@example.com", "password": "NoDigitsHere"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "password does not meet requirements: password must contain at least one digit",
		},
		{
			name:       "malformed json",
			body:       `{"email": `,
			wantStatus: http.StatusBadRequest,
			wantDetail: "invalid request body",
		},
		{
			name:       "invalid email",
			body:       map[string]string{"email": "not-an-email", "password": "Password1"},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "email: value is not a valid email address",
		},
		{
			name:       "missing password",
			body:       map[string]string{"email": "a@example.com"},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "password: field required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/register", "", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantDetail, decodeErrorBody(t, rec).Detail)
		})
	}
}

func TestRegisterEndpointBodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"email":"big@example.com","password":"Password1","name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := s.do(t, http.MethodPost, "/register", "", body)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request body too large", decodeErrorBody(t, rec).Detail)
}

func TestLoginEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	token := s.login(t, "demo@example.com", "password123")
	subject, err := s.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", subject)

	wrong := s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "demo@example.com", "password": "nope"})
	unknown := s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "who@example.com", "password": "password123"})

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String(), "login failures must not reveal which part was wrong")
}

func TestMeEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.registerAndLogin(t, "me@example.com")

	rec := s.do(t, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.MeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, "me@example.com", me.Email)
	assert.Nil(t, me.Name)
	assert.False(t, me.CreatedAt.IsZero())

	rec = s.do(t, http.MethodPatch, "/me", token, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	require.NotNil(t, me.Name)
	assert.Equal(t, "Renamed", *me.Name)

	rec = s.do(t, http.MethodDelete, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	expired, _, err := s.tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).Issue("demo@example.com")
	require.NoError(t, err)
	forged, _, err := crypto.NewTokenIssuer("other-secret", time.Hour).Issue("demo@example.com")
	require.NoError(t, err)

	for _, path := range []string{"/me", "/tasks"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		for _, token := range []string{expired, forged} {
			rec := s.do(t, http.MethodGet, path, token, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code, path)
			assert.Equal(t, "could not validate credentials", decodeErrorBody(t, rec).Detail)
		}
	}
}

func TestLogoutEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Successfully logged out", resp.Message)
}

func TestTaskEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.login(t, "demo@example.com", "password123")
	other := s.registerAndLogin(t, "other@example.com")

	rec := s.do(t, http.MethodGet, "/tasks", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = s.do(t, http.MethodPost, "/tasks", owner, map[string]any{"title": "Ship release", "description": "v1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.TaskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "Ship release", created.Title)
	assert.False(t, created.Completed)

	rec = s.do(t, http.MethodGet, "/tasks/"+created.ID, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/tasks/"+created.ID, owner, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.TaskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.True(t, updated.Completed)
	assert.Equal(t, "Ship release", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "v1", *updated.Description)

	rec = s.do(t, http.MethodPut, "/tasks/"+created.ID, owner, map[string]any{"description": strings.Repeat("x", 2001)})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPut, "/tasks/"+created.ID, owner, map[string]any{"description": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated = model.TaskResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Nil(t, updated.Description)
	assert.True(t, updated.Completed)

	rec = s.do(t, http.MethodGet, "/tasks", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = s.do(t, method, "/tasks/"+created.ID, other, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, method)
		assert.Equal(t, "task not found", decodeErrorBody(t, rec).Detail)
	}
	rec = s.do(t, http.MethodPut, "/tasks/"+created.ID, other, map[string]any{"title": "hijack"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/tasks/not-a-uuid", owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/tasks", owner, map[string]any{"title": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title must not be empty", decodeErrorBody(t, rec).Detail)

	rec = s.do(t, http.MethodPost, "/tasks", owner, map[string]any{"description": "no title"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodDelete, "/tasks/"+created.ID, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msg model.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Equal(t, "Task deleted successfully", msg.Message)

	rec = s.do(t, http.MethodGet, "/tasks", owner, nil)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestLoginEndpointRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestServer(t, middleware.NewRateLimiter(ctx, 0.5, 1).Handler)

	rec := s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "demo@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "demo@example.com", "password": "password123"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many requests", decodeErrorBody(t, rec).Detail)

	rec = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "only credential endpoints are limited")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decodeErrorBody(t, rec).Detail)
}
