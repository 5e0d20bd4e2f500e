package signup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/apperr"
	"github.com/magabrotheeeer/account-service/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	args := m.Called(ctx, username, email, password)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSignupHandler(t *testing.T) {
	created := &models.User{ID: 1, Username: "bob", Email: "bob@x.com", PasswordHash: "secret-hash", Role: models.RoleUser}

	tests := []struct {
		name           string
		body           string
		setupMock      func(m *MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная регистрация",
			body: `{"username":"bob","email":"bob@x.com","password":"Strong1$pass"}`,
			setupMock: func(m *MockService) {
				m.On("Signup", mock.Anything, "bob", "bob@x.com", "Strong1$pass").Return(created, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"username":"bob"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{invalid`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "некорректный email",
			body:           `{"username":"bob","email":"bob","password":"Strong1$pass"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Email must be a valid email`,
		},
		{
			name: "email уже зарегистрирован",
			body: `{"username":"bob","email":"bob@x.com","password":"Strong1$pass"}`,
			setupMock: func(m *MockService) {
				m.On("Signup", mock.Anything, "bob", "bob@x.com", "Strong1$pass").Return(nil, apperr.ErrDuplicateEmail)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"A user with this email already exists."}`,
		},
		{
			name: "слабый пароль",
			body: `{"username":"bob","email":"bob@x.com","password":"weak"}`,
			setupMock: func(m *MockService) {
				m.On("Signup", mock.Anything, "bob", "bob@x.com", "weak").Return(nil, apperr.ErrWeakPassword)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"Password isn't strong enough."}`,
		},
		{
			name: "ошибка хранилища",
			body: `{"username":"bob","email":"bob@x.com","password":"Strong1$pass"}`,
			setupMock: func(m *MockService) {
				m.On("Signup", mock.Anything, "bob", "bob@x.com", "Strong1$pass").Return(nil, errors.New("db"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/users/signup", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestSignupHandler_HidesPasswordHash(t *testing.T) {
	svc := new(MockService)
	svc.On("Signup", mock.Anything, "bob", "bob@x.com", "Strong1$pass").
		Return(&models.User{ID: 1, Username: "bob", Email: "bob@x.com", PasswordHash: "secret-hash"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/users/signup",
		bytes.NewBufferString(`{"username":"bob","email":"bob@x.com","password":"Strong1$pass"}`))
	w := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-hash")

	var resp struct {
		Status string      `json:"status"`
		Data   models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, int64(1), resp.Data.ID)
}
