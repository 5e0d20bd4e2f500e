package accountservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/apperr"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/tokens"
)

var (
	plainUser = &models.User{ID: 1, Username: "bob", Email: "bob@x.com", Role: models.RoleUser, IsActive: true, IsAuthenticated: true}
	adminUser = &models.User{ID: 2, Username: "root", Email: "root@x.com", Role: models.RoleAdmin, IsActive: true, IsAuthenticated: true}
)

type stubResolver map[string]*models.User

func (s stubResolver) Resolve(_ context.Context, accessToken string) (*models.User, error) {
	if u, ok := s[accessToken]; ok {
		return u, nil
	}
	return nil, tokens.ErrUnresolved
}

type stubChecker struct{}

func (stubChecker) CheckDatabaseReady(context.Context) error { return nil }

// stubAccounts отвечает фиксированными значениями
type stubAccounts struct {
	loggedOut []int64
}

func (s *stubAccounts) Signup(_ context.Context, username, email, _ string) (*models.User, error) {
	return &models.User{ID: 10, Username: username, Email: email, Role: models.RoleUser}, nil
}

func (s *stubAccounts) VerifyAccount(_ context.Context, _, token string) (*models.User, error) {
	if token != "good" {
		return nil, apperr.ErrInvalidVerification
	}
	return plainUser, nil
}

func (s *stubAccounts) Login(_ context.Context, email, _ string) (*models.LoginResult, error) {
	return &models.LoginResult{
		TokenPair: models.TokenPair{AccessToken: "user-token", RefreshToken: "r", TokenType: models.TokenTypeBearer},
		Email:     email,
	}, nil
}

func (s *stubAccounts) Refresh(_ context.Context, refreshToken string) (*models.TokenPair, error) {
	return &models.TokenPair{AccessToken: "a-" + refreshToken}, nil
}

func (s *stubAccounts) Logout(_ context.Context, user *models.User) error {
	s.loggedOut = append(s.loggedOut, user.ID)
	return nil
}

func (s *stubAccounts) ResetPassword(context.Context, string, string, string) error { return nil }

func (s *stubAccounts) GetUser(_ context.Context, id int64) (*models.User, error) {
	if id == plainUser.ID {
		return plainUser, nil
	}
	return nil, apperr.UserNotFound(id)
}

func (s *stubAccounts) ListUsers(context.Context) ([]*models.User, error) {
	return []*models.User{plainUser, adminUser}, nil
}

func (s *stubAccounts) Block(_ context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, IsActive: false}, nil
}

func (s *stubAccounts) Unblock(_ context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, IsActive: true}, nil
}

func (s *stubAccounts) UpdateDetails(_ context.Context, id int64, username, role string) (*models.User, error) {
	return &models.User{ID: id, Username: username, Role: role}, nil
}

func newTestRouter(t *testing.T, burst int) (http.Handler, *stubAccounts) {
	t.Helper()
	accounts := &stubAccounts{}
	registry := prometheus.NewRegistry()
	router := chi.NewRouter()
	RegisterRoutes(router, slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Accounts: accounts,
		Resolver: stubResolver{"user-token": plainUser, "admin-token": adminUser},
		Health:   stubChecker{},
		Limiter:  middlewarectx.NewRateLimiter(0.0001, burst),
		Metrics:  metrics.New("test", registry),
		Gatherer: registry,
	})
	return router, accounts
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes_Gates(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{"регистрация открыта", http.MethodPost, "/users/signup", "", `{"username":"neo","email":"neo@x.com","password":"p"}`, http.StatusCreated, `"username":"neo"`},
		{"подтверждение открыто", http.MethodPost, "/users/verify-account", "", `{"email":"bob@x.com","token":"good"}`, http.StatusOK, `Account is activated successfully.`},
		{"me без токена", http.MethodGet, "/users/me", "", "", http.StatusUnauthorized, `Not authorised.`},
		{"me с неизвестным токеном", http.MethodGet, "/users/me", "forged", "", http.StatusUnauthorized, `Not authorised.`},
		{"me с токеном", http.MethodGet, "/users/me", "user-token", "", http.StatusOK, `"username":"bob"`},
		{"пользователь по id", http.MethodGet, "/users/1", "user-token", "", http.StatusOK, `"email":"bob@x.com"`},
		{"пользователь по id не найден", http.MethodGet, "/users/77", "user-token", "", http.StatusNotFound, `User with ID=77 not found.`},
		{"список для не администратора", http.MethodGet, "/users/list-users", "user-token", "", http.StatusUnauthorized, `Not an Admin thus not authorized.`},
		{"список для администратора", http.MethodGet, "/users/list-users", "admin-token", "", http.StatusOK, `"username":"root"`},
		{"блокировка не администратором", http.MethodPut, "/users/block-user-account", "user-token", `{"user_id":1}`, http.StatusUnauthorized, `Not an Admin thus not authorized.`},
		{"блокировка администратором", http.MethodPut, "/users/block-user-account", "admin-token", `{"user_id":1}`, http.StatusOK, `"is_active":false`},
		{"разблокировка администратором", http.MethodPut, "/users/unblock-user-account", "admin-token", `{"user_id":1}`, http.StatusOK, `"is_active":true`},
		{"смена роли администратором", http.MethodPut, "/users/update-user-details", "admin-token", `{"user_id":1,"username":"bobby","role":"Admin"}`, http.StatusOK, `"role":"Admin"`},
		{"вход открыт", http.MethodPost, "/auth/login", "", `{"email":"bob@x.com","password":"p"}`, http.StatusOK, `"access_token":"user-token"`},
		{"выход без токена", http.MethodPost, "/auth/logout", "", "", http.StatusUnauthorized, `Not authorised.`},
		{"смена пароля открыта", http.MethodPut, "/auth/reset-password", "", `{"username":"bob","email":"bob@x.com","new_password":"x"}`, http.StatusOK, `Your password has been updated.`},
		{"health", http.MethodGet, "/health", "", "", http.StatusOK, `"message":"ok"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestRoutes_RefreshUsesHeader(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set("Refresh-Token", "abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"a-abc"`)
}

func TestRoutes_LogoutPassesCaller(t *testing.T) {
	router, accounts := newTestRouter(t, 100)

	w := do(router, http.MethodPost, "/auth/logout", "admin-token", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{adminUser.ID}, accounts.loggedOut)
}

func TestRoutes_RateLimit(t *testing.T) {
	router, _ := newTestRouter(t, 2)
	body := `{"email":"bob@x.com","password":"p"}`

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/auth/login", "", body).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/auth/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodPost, "/auth/login", "", body).Code)

	// подтверждение email не ограничивается
	w := do(router, http.MethodPost, "/users/verify-account", "", `{"email":"bob@x.com","token":"good"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_RateLimit_ForwardedHeadersDoNotResetBucket(t *testing.T) {
	router, _ := newTestRouter(t, 2)
	body := `{"email":"bob@x.com","password":"p"}`

	accepted := 0
	for i := range 50 {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusTooManyRequests {
			accepted++
		}
	}

	assert.Equal(t, 2, accepted)
}

func TestRoutes_Metrics(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	do(router, http.MethodGet, "/users/me", "user-token", "")
	w := do(router, http.MethodGet, "/metrics", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `test_http_requests_total{method="GET",route="/users/me",status="200"} 1`), body)
}
