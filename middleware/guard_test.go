package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionauth "github.com/baxter-io/sessionauth"
	"github.com/baxter-io/sessionauth/store/memory"
)

func newEngine(t *testing.T) *sessionauth.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := sessionauth.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Cost = 4

	engine, err := sessionauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithStore(memory.New("ROLE_USER", "ROLE_ADMIN")).
		Build()
	require.NoError(t, err)
	return engine
}

func accessToken(t *testing.T, engine *sessionauth.Engine, roles ...string) string {
	t.Helper()
	ctx := context.Background()
	_, err := engine.Register(ctx, sessionauth.RegisterRequest{Username: "alice@example.com", Password: "Secret#123", Roles: roles})
	require.NoError(t, err)
	res, err := engine.Login(ctx, "alice@example.com", "Secret#123")
	require.NoError(t, err)
	return res.AccessToken
}

func protected(engine *sessionauth.Engine, role string) http.Handler {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(res.Subject))
	})
	return Guard(engine)(RequireRole(role)(final))
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuardAcceptsValidToken(t *testing.T) {
	engine := newEngine(t)
	token := accessToken(t, engine, "ROLE_USER")

	rec := serve(protected(engine, "ROLE_USER"), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", rec.Body.String())
}

func TestGuardRejectsMissingAndBadTokens(t *testing.T) {
	engine := newEngine(t)
	h := protected(engine, "ROLE_USER")

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer not-a-jwt"} {
		rec := serve(h, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	}
}

func TestRequireRoleForbidden(t *testing.T) {
	engine := newEngine(t)
	token := accessToken(t, engine, "ROLE_USER")

	rec := serve(protected(engine, "ROLE_ADMIN"), "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleWithoutGuard(t *testing.T) {
	h := RequireRole("ROLE_USER")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
}

func TestGuardNilEngine(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, serve(protected(nil, "ROLE_USER"), "Bearer x").Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearerToken("Bear")
	assert.False(t, ok)
}
