package http

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/internal/logctx"
	"github.com/ANAVHEOBA/dumzfun/ports"
	"github.com/ANAVHEOBA/dumzfun/service"
)

// Context keys set by AuthMiddleware.
const (
	ctxUserAddress = "userAddress"
	ctxUserClaims  = "userClaims"
	ctxAccessToken = "accessToken"
)

const rateLimitPrefix = "ratelimit:"

// AuthMiddleware validates the bearer token cryptographically and then
// against the session store. Both must pass: a well-signed token whose
// session was revoked is rejected.
func AuthMiddleware(issuer ports.TokenIssuer, authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if len(auth) < 8 || !strings.EqualFold(auth[:7], "Bearer ") {
			abortErr(c, core.AuthenticationError("missing or malformed authorization header"))
			return
		}
		token := auth[7:]

		claims, err := issuer.Verify(token)
		if err != nil {
			abortErr(c, core.AuthenticationError("invalid or expired token"))
			return
		}

		if _, err := authService.ValidateSession(c.Request.Context(), token); err != nil {
			abortErr(c, err)
			return
		}

		c.Set(ctxUserAddress, claims.Address)
		c.Set(ctxUserClaims, claims)
		c.Set(ctxAccessToken, token)
		c.Next()
	}
}

// RequireRole gates a route group on a role carried in the token claims.
// Must run after AuthMiddleware.
func RequireRole(role core.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil {
			abortErr(c, core.AuthenticationError("not authenticated"))
			return
		}
		for _, r := range claims.Roles {
			if r == role {
				c.Next()
				return
			}
		}
		abortErr(c, core.AuthorizationError("insufficient permissions"))
	}
}

// RateLimit caps requests per client IP over a fixed window. The counter
// lives in the cache, so with Redis behind it the limit is shared across
// instances.
func RateLimit(cache ports.Cache, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitPrefix + c.ClientIP()

		count, windowLeft, err := cache.Incr(c.Request.Context(), key, window)
		if err != nil {
			// A broken cache should not take auth down with it.
			logctx.From(c.Request.Context()).Warn("rate limit counter unavailable", "err", err)
			c.Next()
			return
		}

		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		reset := time.Now().Add(windowLeft).Unix()
		c.Header("X-RateLimit-Limit", strconv.FormatInt(max, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if count > max {
			c.Header("Retry-After", strconv.Itoa(int(windowLeft.Seconds())))
			abortErr(c, core.RateLimitError(fmt.Sprintf("too many requests, retry in %s", windowLeft.Round(time.Second))))
			return
		}
		c.Next()
	}
}

// RequestLogger attaches a request-scoped logger to the request context
// and logs one line per completed request.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := log.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
		)
		c.Request = c.Request.WithContext(logctx.Into(c.Request.Context(), reqLog))

		start := time.Now()
		c.Next()

		reqLog.Info("request completed",
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func claimsFrom(c *gin.Context) *ports.Claims {
	v, ok := c.Get(ctxUserClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*ports.Claims)
	if !ok {
		return nil
	}
	return claims
}

func addressFrom(c *gin.Context) string {
	v, ok := c.Get(ctxUserAddress)
	if !ok {
		return ""
	}
	addr, _ := v.(string)
	return addr
}
