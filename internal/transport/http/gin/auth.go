package httpgin

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxAccountID = "account_id"
	ctxRole      = "role"

	RoleAdmin = "admin"
	// RoleAgent is a gate agent allowed to redeem credentials.
	RoleAgent = "agent"
)

// Auth verifies HS256 bearer tokens. The sub claim carries the account id.
type Auth struct {
	Secret []byte
}

func (a Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortErr(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.Secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			abortErr(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			abortErr(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid claims")
			return
		}

		accountID, ok := subject(claims["sub"])
		if !ok {
			abortErr(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid subject")
			return
		}

		role, _ := claims["role"].(string)

		c.Set(ctxAccountID, accountID)
		c.Set(ctxRole, role)

		c.Next()
	}
}

// AdminOnly must run after Middleware.
func AdminOnly() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}

// RequireRole admits tokens whose role claim is one of roles. It must run
// after Middleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		abortErr(c, http.StatusForbidden, "FORBIDDEN", strings.Join(roles, " or ")+" role required")
	}
}

// IssueToken signs a token for the account. Tests and local tooling use it.
func (a Auth) IssueToken(accountID int64, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(accountID, 10),
	}
	if role != "" {
		claims["role"] = role
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// subject accepts the account id as a decimal string or a JSON number.
func subject(v any) (int64, bool) {
	switch s := v.(type) {
	case string:
		id, err := strconv.ParseInt(s, 10, 64)
		return id, err == nil && id > 0
	case float64:
		id := int64(s)
		return id, float64(id) == s && id > 0
	default:
		return 0, false
	}
}

func accountID(c *gin.Context) int64 {
	return c.GetInt64(ctxAccountID)
}

func abortErr(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Code: code})
}
