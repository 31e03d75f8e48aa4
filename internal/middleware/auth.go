package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crms/pkg/jwt"
	"crms/pkg/response"
)

// Context keys set by JWTAuth
const (
	ContextUserID = "userID"
	ContextRole   = "userRole"
	ContextClaims = "claims"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// RevocationChecker reports whether a token id was revoked by logout
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTAuth validates the access token from the Authorization header or the
// access_token cookie and stores the caller in the context.
// A nil checker skips the revocation lookup.
func JWTAuth(jwtMgr *jwt.Manager, checker RevocationChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		claims, err := jwtMgr.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}
		if claims.TokenType != jwt.TokenTypeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token type"))
			return
		}

		if checker != nil {
			revoked, err := checker.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// redis outage degrades to signature-only validation
				logger.Warn("Token revocation check failed", zap.Error(err))
			} else if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Token has been revoked"))
				return
			}
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := c.Cookie(accessCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// RequireRole lets the request through only when the caller's role is one
// of allowedRoles. It must run after JWTAuth.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
			return
		}

		for _, r := range allowedRoles {
			if role == r {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// UserID returns the authenticated user id, 0 when absent
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

func Role(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// Claims returns the parsed access token claims, nil when absent
func Claims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

// CookieOptions controls the token cookies
type CookieOptions struct {
	Secure     bool
	AccessTTL  int // seconds
	RefreshTTL int // seconds
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies.
// Secure deployments are cross-origin and need SameSite=None.
func SetTokenCookies(c *gin.Context, opts CookieOptions, accessToken, refreshToken string) {
	c.SetSameSite(sameSite(opts.Secure))
	c.SetCookie(accessCookie, accessToken, opts.AccessTTL, "/", "", opts.Secure, true)
	c.SetCookie(refreshCookie, refreshToken, opts.RefreshTTL, "/", "", opts.Secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(sameSite(opts.Secure))
	c.SetCookie(accessCookie, "", -1, "/", "", opts.Secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", opts.Secure, true)
}

// RefreshTokenCookie returns the refresh_token cookie value, if any
func RefreshTokenCookie(c *gin.Context) string {
	v, _ := c.Cookie(refreshCookie)
	return v
}

func sameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
