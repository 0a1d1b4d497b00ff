package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/moon4656/skyboot-core/internal/domain"
	"github.com/moon4656/skyboot-core/internal/service"
	"github.com/moon4656/skyboot-core/pkg/logger"
	"go.uber.org/zap"
)

// SessionKey is the gin context key holding the verified session claims
const SessionKey = "session_claims"

// GuardConfig is the immutable bypass configuration, snapshotted at
// startup. The guard itself holds no other state.
type GuardConfig struct {
	exemptPaths    map[string]struct{}
	exemptPrefixes []string
}

// NewGuardConfig builds a GuardConfig from exact paths and path prefixes
func NewGuardConfig(paths, prefixes []string) GuardConfig {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return GuardConfig{
		exemptPaths:    set,
		exemptPrefixes: append([]string(nil), prefixes...),
	}
}

// Exempt reports whether path bypasses authentication
func (g GuardConfig) Exempt(path string) bool {
	if _, ok := g.exemptPaths[path]; ok {
		return true
	}
	for _, prefix := range g.exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func authError(c *gin.Context, errText string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   errText,
		"message": "Authentication required",
		"detail":  "invalid or missing credentials",
	})
}

// AuthGuard enforces bearer-token authentication on every request whose
// path is not exempt. OPTIONS requests always pass (CORS preflight).
// Verified claims are bound to the request under SessionKey.
func AuthGuard(cfg GuardConfig, auth service.AuthService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || cfg.Exempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			log.Warn("authorization header missing",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			authError(c, "Authorization header missing")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			log.Warn("authorization header not a bearer token",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			authError(c, "Invalid authorization format")
			return
		}

		claims, err := auth.Introspect(c.Request.Context(), parts[1])
		if err != nil {
			// The precise failure kind stays in the service logs;
			// the response wording never varies.
			log.Warn("authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			authError(c, "Authentication failed")
			return
		}

		c.Set(SessionKey, claims)
		log.Info("authentication succeeded",
			zap.String("user_id", claims.UserID),
			zap.String("path", c.Request.URL.Path))

		c.Next()
	}
}

// SessionFromContext returns the claims bound by AuthGuard, or nil
func SessionFromContext(c *gin.Context) *domain.SessionClaims {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*domain.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
