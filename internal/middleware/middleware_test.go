package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shoe_market_backend/internal/auth"
	"shoe_market_backend/internal/common"
	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/platform/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuthenticator struct {
	principal *auth.Principal
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, header string) (*auth.Principal, error) {
	switch {
	case header == "":
		return nil, nil
	case header == "Bearer good":
		return f.principal, nil
	default:
		return nil, common.ErrInvalidToken
	}
}

func newRouter(t *testing.T, m *metrics.Metrics) (*gin.Engine, *auth.Principal) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	principal := &auth.Principal{UserID: uuid.New(), Email: "alice@example.com", Username: "alice@example.com"}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(ZapLogger(zap.NewNop(), &config.Config{GinMode: "test"}), Metrics(m), ErrorHandler(zap.NewNop()))
	r.Use(Authenticate(&fakeAuthenticator{principal: principal}, zap.NewNop()))

	r.GET("/whoami", func(c *gin.Context) {
		actor := common.GetActorFromContext(c)
		if actor == nil {
			c.JSON(http.StatusOK, gin.H{"user": ""})
			return
		}
		_, hasLogger := c.Get(common.LoggerKey)
		c.JSON(http.StatusOK, gin.H{"user": actor.String(), "username": common.GetUsernameFromContext(c), "logger": hasLogger})
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("db exploded")) })
	r.GET("/gone", func(c *gin.Context) { _ = c.Error(common.ErrNotFound) })
	return r, principal
}

func do(r http.Handler, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate_AnonymousPassesThrough(t *testing.T) {
	r, _ := newRouter(t, nil)
	rec := do(r, http.MethodGet, "/whoami", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":""}`, rec.Body.String())
}

func TestAuthenticate_ValidTokenSetsIdentity(t *testing.T) {
	r, principal := newRouter(t, nil)
	rec := do(r, http.MethodGet, "/whoami", "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, principal.UserID.String(), body["user"])
	assert.Equal(t, "alice@example.com", body["username"])
	assert.Equal(t, true, body["logger"])
}

func TestAuthenticate_InvalidTokenIs401(t *testing.T) {
	r, _ := newRouter(t, nil)
	for _, header := range []string{"Bearer bad", "Token good"} {
		rec := do(r, http.MethodGet, "/whoami", header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Contains(t, rec.Body.String(), "Invalid token")
	}
}

func TestRequireAuth(t *testing.T) {
	r, _ := newRouter(t, nil)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/private", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/private", "Bearer good").Code)
}

func TestErrorHandler(t *testing.T) {
	r, _ := newRouter(t, nil)

	rec := do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")
	assert.NotContains(t, rec.Body.String(), "db exploded")

	rec = do(r, http.MethodGet, "/gone", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = do(r, http.MethodGet, "/no/such/route", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "The requested endpoint does not exist.")

	rec = do(r, http.MethodPost, "/whoami", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestZapLogger_RequestID(t *testing.T) {
	r, _ := newRouter(t, nil)

	rec := do(r, http.MethodGet, "/whoami", "")
	generated := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r, _ := newRouter(t, m)
	r.GET("/shoes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, http.MethodGet, "/shoes/"+uuid.NewString(), "")
	do(r, http.MethodGet, "/shoes/"+uuid.NewString(), "")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/shoes/:id",status="200"} 2`)
}
