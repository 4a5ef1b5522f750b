package httptransport_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/infrastructure/memory"
	"github.com/ErlanBelekov/authgate/internal/password"
	"github.com/ErlanBelekov/authgate/internal/ratelimit"
	"github.com/ErlanBelekov/authgate/internal/token"
	httptransport "github.com/ErlanBelekov/authgate/internal/transport/http"
	"github.com/ErlanBelekov/authgate/internal/transport/http/handler"
	"github.com/ErlanBelekov/authgate/internal/transport/http/middleware"
	"github.com/ErlanBelekov/authgate/internal/usecase"
)

const routerSecret = "router-test-secret-with-32-chars!"

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	tokens *token.Service
}

func newServer(t *testing.T, limit int) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := token.NewService([]byte(routerSecret))
	require.NoError(t, err)

	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	limiter, err := ratelimit.New(store, limit, time.Minute)
	require.NoError(t, err)

	users := memory.NewUserRepository()
	policy := password.NewPolicy()
	hasher := password.NewHasher(bcrypt.MinCost, 2)

	authUC := usecase.NewAuthUsecase(users, policy, hasher, tokens, nil, logger)
	userUC := usecase.NewUserUsecase(users, policy, hasher, tokens, nil, logger)

	engine := httptransport.NewRouter(
		logger,
		handler.NewAuthHandler(authUC, logger),
		handler.NewUserHandler(userUC, logger),
		tokens,
		httptransport.RateLimit{Limiter: limiter, Key: middleware.GlobalKey},
		[]string{"*"},
	)
	return &server{t: t, engine: engine, tokens: tokens}
}

func (s *server) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type creds struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func TestScenario_RegisterLoginProtected(t *testing.T) {
	s := newServer(t, 1000)
	alice := creds{Email: "alice@example.com", Password: "Abcdef1!"}

	// ---- register ----

	w := s.do(http.MethodPost, "/auth/register", "", alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode(t, w)
	assert.Equal(t, "alice@example.com", reg["email"])
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(http.MethodPost, "/auth/register", "", alice)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User already exists", decode(t, w)["error"])

	w = s.do(http.MethodPost, "/auth/register", "", creds{Email: "bob@example.com", Password: "abcdefgh"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password does not meet requirements", decode(t, w)["error"])

	// ---- login ----

	w = s.do(http.MethodPost, "/auth/login", "", alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode(t, w)
	tok, _ := login["token"].(string)
	require.NotEmpty(t, tok)
	assert.Equal(t, reg["user_id"], login["user_id"])
	assert.Equal(t, "alice@example.com", login["email"])

	claims, err := s.tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(reg["user_id"].(float64)), claims.Subject)
	assert.Equal(t, 24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt))

	wrongPassword := s.do(http.MethodPost, "/auth/login", "", creds{Email: alice.Email, Password: "Wrong1!x"})
	unknownEmail := s.do(http.MethodPost, "/auth/login", "", creds{Email: "nobody@example.com", Password: alice.Password})
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	// ---- protected ----

	w = s.do(http.MethodGet, "/protected", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	prot := decode(t, w)
	assert.Equal(t, "This is a protected endpoint", prot["message"])
	assert.Equal(t, reg["user_id"], prot["user_id"])

	w = s.do(http.MethodGet, "/protected", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forger, err := token.NewService([]byte("some-other-secret-with-32-chars!!"))
	require.NoError(t, err)
	forged, err := forger.Generate(claims.Subject, domain.RoleUser)
	require.NoError(t, err)
	w = s.do(http.MethodGet, "/protected", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication failed", decode(t, w)["error"])
}

func TestScenario_UserLifecycle(t *testing.T) {
	s := newServer(t, 1000)
	alice := creds{Email: "alice@example.com", Password: "Abcdef1!"}

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/auth/register", "", alice).Code)
	require.Equal(t, http.StatusCreated,
		s.do(http.MethodPost, "/auth/register", "", creds{Email: "bob@example.com", Password: "Bcdefg2@"}).Code)

	login := decode(t, s.do(http.MethodPost, "/auth/login", "", alice))
	tok := login["token"].(string)
	id := int64(login["user_id"].(float64))
	self := fmt.Sprintf("/users/%d", id)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/users", "", nil).Code)

	w := s.do(http.MethodGet, "/users", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = s.do(http.MethodGet, self, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice@example.com", decode(t, w)["email"])

	// another user's record is indistinguishable from a missing one
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/users/%d", id+1), tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/users/abc", tok, nil).Code)

	newPassword := "Zyxwvu9?"
	w = s.do(http.MethodPut, self, tok, map[string]string{"password": newPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/auth/login", "", alice).Code)
	assert.Equal(t, http.StatusOK,
		s.do(http.MethodPost, "/auth/login", "", creds{Email: alice.Email, Password: newPassword}).Code)

	assert.Equal(t, http.StatusConflict,
		s.do(http.MethodPut, self, tok, map[string]string{"email": "bob@example.com"}).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, self, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, self, tok, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		s.do(http.MethodPost, "/auth/login", "", creds{Email: alice.Email, Password: newPassword}).Code)
}

func TestScenario_RateLimited(t *testing.T) {
	s := newServer(t, 3)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
	}

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded", decode(t, w)["error"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// the limiter is global: protected routes are throttled before the auth check
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodGet, "/protected", "", nil).Code)
}

func TestHealth(t *testing.T) {
	s := newServer(t, 10)

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
	assert.NoError(t, err)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
