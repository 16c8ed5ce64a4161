package auth

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/validation"
)

type UserRepository interface {
	Insert(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type RefreshTokenRepository interface {
	Insert(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) (bool, error)
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateMeInput struct {
	Name            *string `json:"name"`
	Password        *string `json:"password"`
	CurrentPassword string  `json:"current_password"`
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Service struct {
	users      UserRepository
	tokens     RefreshTokenRepository
	issuer     *Issuer
	denylist   Denylist
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(users UserRepository, tokens RefreshTokenRepository, issuer *Issuer, denylist Denylist, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		issuer:     issuer,
		denylist:   denylist,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

/* =========================
   ACCOUNTS
========================= */

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.CreateUser(ctx, in, models.RoleUser)
}

// CreateUser stores a new active account with the given role.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperror.Validation("role must be user or admin")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, apperror.Infrastructure(err, "password hash failed")
	}

	now := s.now().UTC()
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if apperror.Is(err, apperror.KindConflict) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, err
	}

	log.Println("[AUTH] [INFO] user registered:", user.Email)
	return user, nil
}

func (s *Service) Me(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

// UpdateMe changes the display name and, given the current password, the
// password.
func (s *Service) UpdateMe(ctx context.Context, id primitive.ObjectID, in UpdateMeInput) (*models.User, error) {
	set := bson.M{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.Validation("name cannot be empty")
		}
		set["name"] = name
	}

	if in.Password != nil {
		if err := ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !checkPassword(user.PasswordHash, in.CurrentPassword) {
			return nil, apperror.Unauthorized("current password is incorrect")
		}
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, apperror.Infrastructure(err, "password hash failed")
		}
		set["password_hash"] = hash
	}

	if len(set) == 0 {
		return nil, apperror.Validation("no fields to update")
	}
	return s.users.Update(ctx, id, set)
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *Service) Role(ctx context.Context, id primitive.ObjectID) (string, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

/* =========================
   SESSIONS
========================= */

func (s *Service) Login(ctx context.Context, email, password string) (*Tokens, *models.User, error) {
	return s.login(ctx, email, password, false)
}

// AdminLogin is Login for the admin panel: valid credentials of a non-admin
// account are refused before any token is issued.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*Tokens, *models.User, error) {
	return s.login(ctx, email, password, true)
}

func (s *Service) login(ctx context.Context, email, password string, adminOnly bool) (*Tokens, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, apperror.Validation("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			log.Println("[AUTH] [WARN] login invalid credentials")
			return nil, nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, nil, err
	}
	if !user.Active {
		log.Println("[AUTH] [WARN] login for inactive user:", user.Email)
		return nil, nil, apperror.Forbidden("user is inactive")
	}
	if !checkPassword(user.PasswordHash, password) {
		log.Println("[AUTH] [WARN] login invalid credentials")
		return nil, nil, apperror.Unauthorized("invalid credentials")
	}
	if adminOnly && !user.IsAdmin() {
		log.Println("[AUTH] [WARN] admin login refused for role:", user.Role)
		return nil, nil, apperror.Forbidden("admin access required")
	}

	tokens, err := s.issueTokens(ctx, *user, primitive.NewObjectID())
	if err != nil {
		return nil, nil, err
	}
	log.Println("[AUTH] [INFO] login succeeded:", user.Email)
	return tokens, user, nil
}

// Refresh rotates a refresh token. The old token is revoked and linked to
// its replacement; a token that was already rotated is rejected.
func (s *Service) Refresh(ctx context.Context, plain string) (*Tokens, *models.User, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return nil, nil, apperror.Validation("refresh_token is required")
	}

	token, err := s.findRefreshToken(ctx, plain)
	if err != nil {
		return nil, nil, err
	}
	if s.now().After(token.ExpiresAt) {
		if _, err := s.tokens.Revoke(ctx, token.ID, nil); err != nil {
			log.Println("[AUTH] [ERROR] revoke expired refresh token failed:", err)
		}
		return nil, nil, apperror.Unauthorized("refresh token expired")
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, nil, apperror.Unauthorized("user not found")
		}
		return nil, nil, err
	}
	if !user.Active {
		return nil, nil, apperror.Forbidden("user is inactive")
	}

	replacement := primitive.NewObjectID()
	revoked, err := s.tokens.Revoke(ctx, token.ID, &replacement)
	if err != nil {
		return nil, nil, err
	}
	if !revoked {
		log.Println("[AUTH] [WARN] refresh token reused for user:", user.Email)
		return nil, nil, apperror.Unauthorized("invalid refresh token")
	}

	tokens, err := s.issueTokens(ctx, *user, replacement)
	if err != nil {
		return nil, nil, err
	}
	return tokens, user, nil
}

// Logout revokes the refresh token and deny-lists the access token until it
// would have expired. Either may be absent but not both.
func (s *Service) Logout(ctx context.Context, plain string, claims *Claims) error {
	plain = strings.TrimSpace(plain)
	if plain == "" && claims == nil {
		return apperror.Validation("refresh_token is required")
	}

	if plain != "" {
		token, err := s.findRefreshToken(ctx, plain)
		if err != nil {
			return err
		}
		revoked, err := s.tokens.Revoke(ctx, token.ID, nil)
		if err != nil {
			return err
		}
		if !revoked {
			return apperror.Unauthorized("invalid refresh token")
		}
	}

	if claims != nil && claims.ExpiresAt != nil && s.denylist != nil {
		if err := s.denylist.Deny(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return apperror.Infrastructure(err, "token denylist unavailable")
		}
	}

	log.Println("[AUTH] [INFO] logout completed")
	return nil
}

func (s *Service) findRefreshToken(ctx context.Context, plain string) (*models.RefreshToken, error) {
	token, err := s.tokens.FindByHash(ctx, hashToken(plain))
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, err
	}
	if token.Revoked {
		return nil, apperror.Unauthorized("invalid refresh token")
	}
	return token, nil
}

func (s *Service) issueTokens(ctx context.Context, user models.User, refreshID primitive.ObjectID) (*Tokens, error) {
	accessToken, _, err := s.issuer.Issue(user)
	if err != nil {
		return nil, apperror.Infrastructure(err, "token generation failed")
	}

	refreshPlain, err := generateRefreshString()
	if err != nil {
		return nil, apperror.Infrastructure(err, "token generation failed")
	}

	now := s.now().UTC()
	record := &models.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: hashToken(refreshPlain),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.tokens.Insert(ctx, record); err != nil {
		return nil, err
	}

	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshPlain,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.issuer.TTL().Seconds()),
	}, nil
}
