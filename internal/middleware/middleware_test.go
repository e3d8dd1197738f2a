package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protected(tokens *Tokens) *gin.Engine {
	r := gin.New()
	r.GET("/me", tokens.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"employee_id": EmployeeID(c)})
	})
	return r
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour, nil)
	tok, err := tokens.GenerateToken("EMP-7")
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "EMP-7", claims.EmployeeID)

	_, err = NewTokens("other-secret", time.Hour, nil).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens("test-secret", time.Minute, nil)
	tokens.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	tok, err := tokens.GenerateToken("EMP-7")
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	_, err = tokens.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireAuth(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour, nil)
	r := protected(tokens)
	tok, err := tokens.GenerateToken("EMP-7")
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"employee_id":"EMP-7"}`, w.Body.String())
	})

	t.Run("query token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAuth_RevokedToken(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour, nil)
	r := gin.New()
	r.GET("/me", tokens.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"employee_id": EmployeeID(c)})
	})
	r.POST("/logout", tokens.RequireAuth(), func(c *gin.Context) {
		require.NoError(t, tokens.Revoke(c.Request.Context(), ClaimsFrom(c)))
		c.Status(http.StatusOK)
	})

	tok, err := tokens.GenerateToken("EMP-7")
	require.NoError(t, err)
	other, err := tokens.GenerateToken("EMP-7")
	require.NoError(t, err)

	call := func(method, path, token string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call(http.MethodPost, "/logout", tok))
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/me", tok))
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/me", other), "other sessions stay valid")
}

type brokenList struct{}

func (brokenList) Revoke(context.Context, string, time.Duration) error { return errors.New("down") }

func (brokenList) IsRevoked(context.Context, string) (bool, error) { return false, errors.New("down") }

func TestRequireAuth_RevocationUnavailable(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour, brokenList{})
	tok, err := tokens.GenerateToken("EMP-7")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	protected(tokens).ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://attend.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://attend.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://attend.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
