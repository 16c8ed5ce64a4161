package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/memstore"
	"storefront/internal/models"
)

const testSecret = "test-secret"

func testUser() models.User {
	return models.User{ID: primitive.NewObjectID(), Email: "ada@example.com", Role: models.RoleUser}
}

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	user := testUser()

	raw, issued, err := issuer.Issue(user)
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)
}

func TestParseExpired(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := issuer.Issue(testUser())
	require.NoError(t, err)

	issuer.now = time.Now
	claims, err := issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
	require.NotNil(t, claims)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	other, _, err := NewIssuer("other-secret", time.Hour).Issue(testUser())
	require.NoError(t, err)
	_, err = issuer.Parse(other)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(unsigned)
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	issuer := NewIssuer(testSecret, time.Hour)
	denylist := NewMemoryDenylist()
	inspector := NewInspector(issuer, denylist)

	valid, _, err := issuer.Issue(testUser())
	require.NoError(t, err)

	revoked, revokedClaims, err := issuer.Issue(testUser())
	require.NoError(t, err)
	require.NoError(t, denylist.Deny(ctx, revokedClaims.ID, revokedClaims.ExpiresAt.Time))

	past := NewIssuer(testSecret, time.Minute)
	past.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := past.Issue(testUser())
	require.NoError(t, err)

	foreign, _, err := NewIssuer("other-secret", time.Hour).Issue(testUser())
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		want    State
		wantErr bool
	}{
		{name: "no header", header: "", want: StateAnonymous},
		{name: "valid bearer", header: "Bearer " + valid, want: StateAuthenticated},
		{name: "lower-case scheme", header: "bearer " + valid, want: StateAuthenticated},
		{name: "logged out", header: "Bearer " + revoked, want: StateAnonymous},
		{name: "expired", header: "Bearer " + expired, want: StateExpired},
		{name: "bad signature", header: "Bearer " + foreign, wantErr: true},
		{name: "wrong scheme", header: "Token " + valid, wantErr: true},
		{name: "missing token", header: "Bearer ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := inspector.Inspect(ctx, tt.header)
			if tt.wantErr {
				assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, session.State)
		})
	}
}

func TestRedisDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	denylist := NewRedisDenylist(client)

	require.NoError(t, denylist.Deny(ctx, "jti-1", time.Now().Add(time.Minute)))
	require.NoError(t, denylist.Deny(ctx, "jti-old", time.Now().Add(-time.Minute)))

	denied, err := denylist.Denied(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, denied)

	denied, err = denylist.Denied(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, denied, "already expired tokens are not stored")

	mr.FastForward(2 * time.Minute)
	denied, err = denylist.Denied(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, denied, "entries expire with the token")
}

func TestMemoryDenylistExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	denylist := NewMemoryDenylist()
	denylist.now = func() time.Time { return now }

	require.NoError(t, denylist.Deny(ctx, "jti", now.Add(time.Minute)))
	denied, _ := denylist.Denied(ctx, "jti")
	assert.True(t, denied)

	now = now.Add(2 * time.Minute)
	denied, _ = denylist.Denied(ctx, "jti")
	assert.False(t, denied)
}

func TestValidatePassword(t *testing.T) {
	tests := map[string]bool{
		"Secret123":    true,
		"Sh0rt":        false,
		"alllower123":  false,
		"ALLUPPER123":  false,
		"NoDigitsHere": false,
		"":             false,
	}
	for password, ok := range tests {
		err := ValidatePassword(password)
		if ok {
			assert.NoError(t, err, password)
		} else {
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err), password)
		}
	}
}

/* =========================
   SERVICE
========================= */

type fixture struct {
	svc       *Service
	store     *memstore.Store
	inspector *Inspector
}

func newFixture() fixture {
	store := memstore.New()
	issuer := NewIssuer(testSecret, time.Hour)
	denylist := NewMemoryDenylist()
	return fixture{
		svc:       NewService(store.Users(), store.RefreshTokens(), issuer, denylist, 24*time.Hour),
		store:     store,
		inspector: NewInspector(issuer, denylist),
	}
}

func register(t *testing.T, f fixture) *models.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Name:     " Ada ",
		Email:    " Ada@Example.com ",
		Password: "Secret123",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := register(t, f)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, "Secret123", user.PasswordHash)

	_, err := f.svc.Register(ctx, RegisterInput{Name: "Other", Email: "ADA@example.com", Password: "Secret123"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = f.svc.Register(ctx, RegisterInput{Name: "Weak", Email: "weak@example.com", Password: "password"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.svc.Register(ctx, RegisterInput{Name: "Bad", Email: "not-an-email", Password: "Secret123"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := register(t, f)

	tokens, loggedIn, err := f.svc.Login(ctx, "ADA@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)
	assert.Len(t, tokens.RefreshToken, 64)

	session, err := f.inspector.Inspect(ctx, "Bearer "+tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, session.State)
	assert.Equal(t, user.ID.Hex(), session.Claims.UserID)

	_, _, err = f.svc.Login(ctx, "ada@example.com", "Wrong1234")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, _, err = f.svc.Login(ctx, "nobody@example.com", "Secret123")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = f.store.Users().Update(ctx, user.ID, bson.M{"active": false})
	require.NoError(t, err)
	_, _, err = f.svc.Login(ctx, "ada@example.com", "Secret123")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestAdminLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	register(t, f)
	_, err := f.svc.CreateUser(ctx, RegisterInput{Name: "Root", Email: "root@example.com", Password: "Admin1234"}, models.RoleAdmin)
	require.NoError(t, err)

	_, _, err = f.svc.AdminLogin(ctx, "ada@example.com", "Secret123")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	tokens, admin, err := f.svc.AdminLogin(ctx, "root@example.com", "Admin1234")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	session, err := f.inspector.Inspect(ctx, "Bearer "+tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, session.IsAdmin())
}

func TestRefreshRotatesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	register(t, f)

	first, _, err := f.svc.Login(ctx, "ada@example.com", "Secret123")
	require.NoError(t, err)

	second, _, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	old, err := f.store.RefreshTokens().FindByHash(ctx, hashToken(first.RefreshToken))
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	current, err := f.store.RefreshTokens().FindByHash(ctx, hashToken(second.RefreshToken))
	require.NoError(t, err)
	require.NotNil(t, old.ReplacedByToken)
	assert.Equal(t, current.ID, *old.ReplacedByToken)

	_, _, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err), "a rotated token cannot be reused")

	_, _, err = f.svc.Refresh(ctx, "")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestRefreshExpired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	register(t, f)

	tokens, _, err := f.svc.Login(ctx, "ada@example.com", "Secret123")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, _, err = f.svc.Refresh(ctx, tokens.RefreshToken)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	record, err := f.store.RefreshTokens().FindByHash(ctx, hashToken(tokens.RefreshToken))
	require.NoError(t, err)
	assert.True(t, record.Revoked)
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	register(t, f)

	tokens, _, err := f.svc.Login(ctx, "ada@example.com", "Secret123")
	require.NoError(t, err)
	session, err := f.inspector.Inspect(ctx, "Bearer "+tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, tokens.RefreshToken, session.Claims))

	session, err = f.inspector.Inspect(ctx, "Bearer "+tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, session.State)

	_, _, err = f.svc.Refresh(ctx, tokens.RefreshToken)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	err = f.svc.Logout(ctx, tokens.RefreshToken, nil)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	err = f.svc.Logout(ctx, "", nil)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestUpdateMe(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := register(t, f)

	name := "Ada Lovelace"
	updated, err := f.svc.UpdateMe(ctx, user.ID, UpdateMeInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)

	password := "Better456"
	_, err = f.svc.UpdateMe(ctx, user.ID, UpdateMeInput{Password: &password, CurrentPassword: "nope"})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = f.svc.UpdateMe(ctx, user.ID, UpdateMeInput{Password: &password, CurrentPassword: "Secret123"})
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, "ada@example.com", "Secret123")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
	_, _, err = f.svc.Login(ctx, "ada@example.com", "Better456")
	assert.NoError(t, err)

	_, err = f.svc.UpdateMe(ctx, user.ID, UpdateMeInput{})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	admin, err := f.svc.CreateUser(ctx, RegisterInput{Name: "Root", Email: "root@example.com", Password: "Secret123"}, models.RoleAdmin)
	require.NoError(t, err)

	role, err := f.svc.Role(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	_, err = f.svc.Role(ctx, primitive.NewObjectID())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
