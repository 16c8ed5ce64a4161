package database

import (
	"context"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/apperror"
)

// translate maps driver errors onto the application taxonomy. what names the
// entity for not-found and conflict messages.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperror.NotFound(what + " not found")
	case mongo.IsDuplicateKeyError(err):
		return apperror.Wrap(apperror.KindConflict, err, what+" already exists")
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return apperror.Infrastructure(err, "database unavailable, please retry")
	default:
		return apperror.Infrastructure(err, "database error, please retry")
	}
}
