package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mangala_backend/internal/domain/user"
	errs "mangala_backend/internal/errors"
	authUC "mangala_backend/internal/usecase/auth"
)

type memUserStorage struct {
	byID map[string]user.User
}

func (m *memUserStorage) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, errs.ErrUserNotFound
}

func (m *memUserStorage) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, errs.ErrUserNotFound
}

func (m *memUserStorage) GetUserByID(_ context.Context, id string) (user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return user.User{}, errs.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserStorage) CreateUser(_ context.Context, newUser user.User) error {
	m.byID[newUser.ID] = newUser
	return nil
}

type envelope struct {
	Status int             `json:"Status"`
	Body   json.RawMessage `json:"Body"`
}

func newTestAuthHandler() *AuthHandler {
	usecase := authUC.NewAuthUsecaseHandler(&memUserStorage{byID: make(map[string]user.User)}, "test-secret")
	return NewAuthHandlerWithUsecase(usecase, zap.NewNop().Sugar())
}

func do(t *testing.T, handler http.HandlerFunc, method, target, token string, body any) envelope {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestRegisterLoginMe(t *testing.T) {
	handler := newTestAuthHandler()

	env := do(t, handler.Register, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	require.Equal(t, http.StatusOK, env.Status)

	var registered RegisterResponse
	require.NoError(t, json.Unmarshal(env.Body, &registered))
	require.NotEmpty(t, registered.UserID)

	env = do(t, handler.Login, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	require.Equal(t, http.StatusOK, env.Status)

	var tokenResp TokenResponse
	require.NoError(t, json.Unmarshal(env.Body, &tokenResp))
	require.NotEmpty(t, tokenResp.AccessToken)
	require.Equal(t, "bearer", tokenResp.TokenType)

	env = do(t, handler.Me, http.MethodGet, "/auth/me", tokenResp.AccessToken, nil)
	require.Equal(t, http.StatusOK, env.Status)

	var me MeResponse
	require.NoError(t, json.Unmarshal(env.Body, &me))
	require.Equal(t, registered.UserID, me.UserID)
	require.Equal(t, "alice", me.Username)
	require.Equal(t, "alice@example.com", me.Email)
}

func TestRegister_Validation(t *testing.T) {
	handler := newTestAuthHandler()

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)

		var env envelope
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
		require.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("missing fields", func(t *testing.T) {
		env := do(t, handler.Register, http.MethodPost, "/auth/register", "", RegisterRequest{
			Username: "alice",
		})
		require.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("duplicate user", func(t *testing.T) {
		request := RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "pw"}
		env := do(t, handler.Register, http.MethodPost, "/auth/register", "", request)
		require.Equal(t, http.StatusOK, env.Status)

		env = do(t, handler.Register, http.MethodPost, "/auth/register", "", request)
		require.Equal(t, http.StatusBadRequest, env.Status)
	})
}

func TestLogin_Errors(t *testing.T) {
	handler := newTestAuthHandler()

	env := do(t, handler.Register, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	require.Equal(t, http.StatusOK, env.Status)

	t.Run("unknown email", func(t *testing.T) {
		env := do(t, handler.Login, http.MethodPost, "/auth/login", "", LoginRequest{
			Email:    "bob@example.com",
			Password: "hunter22",
		})
		require.Equal(t, http.StatusNotFound, env.Status)
	})

	t.Run("wrong password", func(t *testing.T) {
		env := do(t, handler.Login, http.MethodPost, "/auth/login", "", LoginRequest{
			Email:    "alice@example.com",
			Password: "nope",
		})
		require.Equal(t, http.StatusBadRequest, env.Status)
	})
}

func TestMe_Unauthorized(t *testing.T) {
	handler := newTestAuthHandler()

	env := do(t, handler.Me, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, env.Status)

	env = do(t, handler.Me, http.MethodGet, "/auth/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, env.Status)
}
