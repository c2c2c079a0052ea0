// Package auth resolves the acting session's authority. The engine only
// needs to know whether the session may seed the aggregate; the HTTP
// layer also gates reads and writes on the same claims.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/rbac"
)

// Session identifies an authenticated actor and their role.
type Session struct {
	UserID string
	Role   string
}

// Can reports whether the session holds permission.
func (s Session) Can(permission string) bool {
	return rbac.HasPermission(s.Role, permission)
}

// CanSeed reports whether the session may run the seeding procedure.
func (s Session) CanSeed() bool {
	return s.Can(rbac.PermissionSeedObjective)
}

// GenerateToken creates a session token. Used by tests and tooling.
func GenerateToken(userID, role, secret string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a token and extracts the session.
func ParseToken(tokenStr, secret string) (Session, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return Session{}, err
	}
	if !token.Valid {
		return Session{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, jwt.ErrTokenMalformed
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return Session{}, jwt.ErrTokenMalformed
	}
	role, ok := claims["role"].(string)
	if !ok || !rbac.ValidRole(role) {
		return Session{}, jwt.ErrTokenMalformed
	}

	return Session{UserID: userID, Role: role}, nil
}

// ExtractToken pulls the bearer token from an Authorization header.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
