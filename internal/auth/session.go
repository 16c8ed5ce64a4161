package auth

import (
	"context"
	"log"
	"strings"

	"github.com/go-faster/errors"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
	StateExpired       State = "expired"
)

type Session struct {
	State  State
	Claims *Claims
}

func (s Session) IsAdmin() bool {
	return s.State == StateAuthenticated && s.Claims != nil && s.Claims.Role == models.RoleAdmin
}

// Inspector classifies the Authorization header of a request.
type Inspector struct {
	issuer   *Issuer
	denylist Denylist
}

func NewInspector(issuer *Issuer, denylist Denylist) *Inspector {
	return &Inspector{issuer: issuer, denylist: denylist}
}

// Inspect returns anonymous for a missing or logged-out token, expired for a
// token past its exp and authenticated otherwise. Malformed headers and bad
// signatures are unauthorized errors.
func (i *Inspector) Inspect(ctx context.Context, header string) (Session, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Session{State: StateAnonymous}, nil
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return Session{}, apperror.Unauthorized("invalid authorization header")
	}

	claims, err := i.issuer.Parse(strings.TrimSpace(parts[1]))
	if errors.Is(err, ErrTokenExpired) {
		return Session{State: StateExpired, Claims: claims}, nil
	}
	if err != nil {
		log.Println("[AUTH] [WARN] token rejected:", err)
		return Session{}, apperror.Unauthorized("invalid token")
	}

	if i.denylist != nil {
		denied, err := i.denylist.Denied(ctx, claims.ID)
		if err != nil {
			return Session{}, apperror.Infrastructure(err, "token denylist unavailable")
		}
		if denied {
			return Session{State: StateAnonymous}, nil
		}
	}
	return Session{State: StateAuthenticated, Claims: claims}, nil
}
