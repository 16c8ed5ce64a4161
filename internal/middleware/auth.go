package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/auth"
)

const sessionKey = "session"

// OptionalAuth classifies the request and stores the session. Requests
// without a token continue as anonymous; malformed or expired tokens are
// rejected so the client can refresh instead of silently losing its identity.
func OptionalAuth(inspector *auth.Inspector) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := inspect(c, inspector)
		if !ok {
			return
		}
		if session.State == auth.StateExpired {
			abort(c, http.StatusUnauthorized, "token expired")
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// UserAuth requires an authenticated session of any role.
func UserAuth(inspector *auth.Inspector) gin.HandlerFunc {
	return guard(inspector, false)
}

// AdminAuth requires an authenticated session with the admin role.
func AdminAuth(inspector *auth.Inspector) gin.HandlerFunc {
	return guard(inspector, true)
}

func guard(inspector *auth.Inspector, adminOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := inspect(c, inspector)
		if !ok {
			return
		}

		switch session.State {
		case auth.StateExpired:
			abort(c, http.StatusUnauthorized, "token expired")
			return
		case auth.StateAnonymous:
			abort(c, http.StatusUnauthorized, "missing token")
			return
		}

		if adminOnly && !session.IsAdmin() {
			log.Printf("[AUTH] [WARN] forbidden %s %s for role=%s", c.Request.Method, c.FullPath(), session.Claims.Role)
			abort(c, http.StatusForbidden, "forbidden")
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func inspect(c *gin.Context, inspector *auth.Inspector) (auth.Session, bool) {
	session, err := inspector.Inspect(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		status := apperror.HTTPStatus(apperror.KindOf(err))
		message := "unauthorized"
		if appErr, ok := apperror.As(err); ok {
			message = appErr.Message
		}
		if status >= http.StatusInternalServerError {
			log.Println("[AUTH] [ERROR] session check failed:", err)
		}
		abort(c, status, message)
		return auth.Session{}, false
	}
	return session, true
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// SessionFrom returns the session stored by one of the auth middlewares, or
// an anonymous session.
func SessionFrom(c *gin.Context) auth.Session {
	if value, ok := c.Get(sessionKey); ok {
		if session, ok := value.(auth.Session); ok {
			return session
		}
	}
	return auth.Session{State: auth.StateAnonymous}
}

// UserID returns the authenticated user's id, if any.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	session := SessionFrom(c)
	if session.State != auth.StateAuthenticated || session.Claims == nil {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(session.Claims.UserID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
