package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *UserRepoMock) ActivateUser(ctx context.Context, id int64, updatedAt time.Time) (*models.User, error) {
	args := m.Called(ctx, id, updatedAt)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	args := m.Called(ctx, id, passwordHash, updatedAt)
	return args.Error(0)
}

func (m *UserRepoMock) SetActive(ctx context.Context, id int64, active bool, updatedAt time.Time) (*models.User, error) {
	args := m.Called(ctx, id, active, updatedAt)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) BlockUser(ctx context.Context, id int64, updatedAt time.Time) (*models.User, error) {
	args := m.Called(ctx, id, updatedAt)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) UpdateDetails(ctx context.Context, id int64, username, role string, updatedAt time.Time) (*models.User, error) {
	args := m.Called(ctx, id, username, role, updatedAt)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

// Мок для TokenService
type TokenServiceMock struct {
	mock.Mock
}

func (m *TokenServiceMock) Issue(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	args := m.Called(ctx, user)
	p, _ := args.Get(0).(*models.TokenPair)
	return p, args.Error(1)
}

func (m *TokenServiceMock) Rotate(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	p, _ := args.Get(0).(*models.TokenPair)
	return p, args.Error(1)
}

func (m *TokenServiceMock) RevokeAll(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// Мок для UsersCache
type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// recordingNotifier запоминает отправленные письма
type recordingNotifier struct {
	mu        sync.Mutex
	tokens    map[string]string
	activated []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{tokens: make(map[string]string)}
}

func (n *recordingNotifier) SendVerification(_ context.Context, user *models.User, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[user.Email] = token
}

func (n *recordingNotifier) SendActivationConfirmation(_ context.Context, user *models.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activated = append(n.activated, user.Email)
}

func (n *recordingNotifier) token(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[email]
}

type eventCounter struct {
	mu     sync.Mutex
	events map[string]int
}

func (e *eventCounter) AuthEvent(operation, result string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events == nil {
		e.events = make(map[string]int)
	}
	e.events[operation+"/"+result]++
}

// memStore хранилище пользователей и токенов в памяти для сценарных тестов
type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
	tokens []models.Token
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]*models.User)}
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}

func (s *memStore) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return nil, repository.ErrEmailTaken
		}
		if u.Username == user.Username {
			return nil, repository.ErrUsernameTaken
		}
	}
	s.nextID++
	now := time.Now().UTC()
	user.ID = s.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = &user
	return clone(&user), nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *memStore) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*models.User, 0, len(s.users))
	for id := int64(1); id <= s.nextID; id++ {
		if u, ok := s.users[id]; ok {
			result = append(result, clone(u))
		}
	}
	return result, nil
}

func (s *memStore) update(id int64, fn func(u *models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	fn(u)
	return clone(u), nil
}

func (s *memStore) ActivateUser(_ context.Context, id int64, updatedAt time.Time) (*models.User, error) {
	return s.update(id, func(u *models.User) {
		u.IsActive = true
		u.IsAuthenticated = true
		u.UpdatedAt = updatedAt
	})
}

func (s *memStore) UpdatePassword(_ context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	_, err := s.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.UpdatedAt = updatedAt
	})
	return err
}

func (s *memStore) SetActive(_ context.Context, id int64, active bool, updatedAt time.Time) (*models.User, error) {
	return s.update(id, func(u *models.User) {
		u.IsActive = active
		u.UpdatedAt = updatedAt
	})
}

func (s *memStore) BlockUser(_ context.Context, id int64, updatedAt time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.IsActive = false
	u.UpdatedAt = updatedAt
	now := time.Now()
	for i := range s.tokens {
		if s.tokens[i].UserID == id && s.tokens[i].ExpiresAt.After(now) {
			s.tokens[i].ExpiresAt = now
		}
	}
	return clone(u), nil
}

func (s *memStore) UpdateDetails(_ context.Context, id int64, username, role string, updatedAt time.Time) (*models.User, error) {
	return s.update(id, func(u *models.User) {
		u.Username = username
		u.Role = role
		u.UpdatedAt = updatedAt
	})
}

func (s *memStore) CreateToken(_ context.Context, token models.Token) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token.ID = int64(len(s.tokens) + 1)
	token.CreatedAt = time.Now().UTC()
	s.tokens = append(s.tokens, token)
	return token.ID, nil
}

func (s *memStore) RotateToken(_ context.Context, userID int64, refreshKey, accessKey string,
	next models.Token) (*models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for i := range s.tokens {
		t := &s.tokens[i]
		if t.UserID == userID && t.RefreshKey == refreshKey && t.AccessKey == accessKey && t.ExpiresAt.After(now) {
			t.ExpiresAt = now
			u, ok := s.users[userID]
			if !ok {
				return nil, 0, repository.ErrUserNotFound
			}
			next.ID = int64(len(s.tokens) + 1)
			s.tokens = append(s.tokens, next)
			return clone(u), next.ID, nil
		}
	}
	return nil, 0, repository.ErrTokenNotFound
}

func (s *memStore) FindUserByAccess(_ context.Context, accessKey string, tokenID, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, t := range s.tokens {
		if t.ID == tokenID && t.AccessKey == accessKey && t.UserID == userID && t.ExpiresAt.After(now) {
			if u, ok := s.users[userID]; ok {
				return clone(u), nil
			}
		}
	}
	return nil, repository.ErrTokenNotFound
}

func (s *memStore) ExpireUserTokens(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for i := range s.tokens {
		if s.tokens[i].UserID == userID && s.tokens[i].ExpiresAt.After(now) {
			s.tokens[i].ExpiresAt = now
			n++
		}
	}
	return n, nil
}
