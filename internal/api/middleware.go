package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/session"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

const sessionKey = "session"

// RequestLogger attaches a request-scoped logger and logs every request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		l := logger.WithFields("request_id", requestID, "method", c.Request.Method, "path", c.FullPath())
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), l))

		c.Next()

		l.Info("Request handled",
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// bearerToken reads the Authorization header, falling back to ?token= for
// websocket clients that cannot set headers.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// resolveSession returns the live session named by the request token
func resolveSession(c *gin.Context, tokens *TokenIssuer, sessions *session.Registry) (*session.Session, error) {
	raw := bearerToken(c)
	if raw == "" {
		return nil, apperrors.FromSentinel(apperrors.ErrNotAuthenticated).WithContext("reason", "missing token")
	}
	id, err := tokens.Parse(raw)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypePermission, "INVALID_TOKEN", "Invalid or expired token")
	}
	sess, ok := sessions.Get(id)
	if !ok {
		// Expired sessions are reported as a login problem, not a missing resource.
		return nil, apperrors.FromSentinel(apperrors.ErrNotAuthenticated).WithContext("session_id", id)
	}
	return sess, nil
}

// AuthMiddleware resolves the session of the bearer token and puts its store
// into the request context.
func AuthMiddleware(tokens *TokenIssuer, sessions *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := resolveSession(c, tokens, sessions)
		if err != nil {
			abortWithError(c, err)
			return
		}
		sessions.Touch(sess)

		ctx := store.NewContext(c.Request.Context(), sess.Store)
		ctx = logger.IntoContext(ctx, logger.WithContext(ctx).With("session_id", sess.ID))
		c.Request = c.Request.WithContext(ctx)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// RequireLogin rejects sessions that are logged out
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := store.MustFromContext(c.Request.Context())
		if !st.Snapshot().Profile.IsAuthenticated {
			abortWithError(c, apperrors.FromSentinel(apperrors.ErrNotAuthenticated))
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}
