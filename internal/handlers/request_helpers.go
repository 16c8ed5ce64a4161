package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondError maps err onto its HTTP status. Details of classified errors
// are passed through; infrastructure failures carry a retry hint and their
// cause only goes to the log.
func respondError(c *gin.Context, route string, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)

	body := gin.H{"error": "service unavailable, please retry"}
	appErr, classified := apperror.As(err)
	if classified && kind != apperror.KindInfrastructure {
		body["error"] = appErr.Message
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
	}

	if kind == apperror.KindInfrastructure {
		c.Header("Retry-After", "5")
		log.Printf("[%s] returning error %d: %v", route, status, err)
		c.AbortWithStatusJSON(status, body)
		return
	}

	log.Printf("[%s] returning error %d: %s", route, status, body["error"])
	c.AbortWithStatusJSON(status, body)
}

// bindJSON only decodes the request body into dst. Field rules run in the
// services, after inputs have been trimmed.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := json.NewDecoder(c.Request.Body).Decode(dst); err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "invalid request body")
	}
	return nil
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, apperror.InvalidArgument("invalid " + name)
	}
	return id, nil
}

func sanitizeLogValue(value string, max int) string {
	trimmed := strings.TrimSpace(value)
	if max <= 0 {
		max = 80
	}
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max] + "..."
}
