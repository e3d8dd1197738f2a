package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"attendance_gate/internal/revocation"
)

// Gin context keys set by RequireAuth.
const (
	ContextEmployeeID = "employee_id"
	ContextClaims     = "claims"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the session token claims.
type Claims struct {
	EmployeeID string `json:"employee_id"`
	jwt.RegisteredClaims
}

// Tokens signs and checks HS256 session tokens. A logged-out token stays
// on the revocation list until it would have expired anyway.
type Tokens struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	revoked revocation.List
}

// NewTokens uses a process-local revocation list when revoked is nil.
func NewTokens(secret string, ttl time.Duration, revoked revocation.List) *Tokens {
	if revoked == nil {
		revoked = revocation.NewMemory(nil)
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now, revoked: revoked}
}

func (t *Tokens) GenerateToken(employeeID string) (string, error) {
	now := t.now()
	claims := Claims{
		EmployeeID: employeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   employeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *Tokens) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid || claims.EmployeeID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RequireAuth ensures a valid JWT is present. Browsers cannot set headers on
// a WebSocket handshake, so a token query parameter is accepted as well.
func (t *Tokens) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := t.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		revoked, err := t.revoked.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			logrus.WithError(err).Error("Failed to check token revocation.")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "could not verify session"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session has been logged out"})
			return
		}

		c.Set(ContextEmployeeID, claims.EmployeeID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// Revoke ends a session before its token expires.
func (t *Tokens) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return t.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Sub(t.now()))
}

// ClaimsFrom returns the claims RequireAuth accepted, or nil.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// EmployeeID returns the authenticated employee of the request.
func EmployeeID(c *gin.Context) string {
	return c.GetString(ContextEmployeeID)
}
