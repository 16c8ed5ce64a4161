package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/mailer"
	"storefront/internal/seed"
	"storefront/internal/storage"
)

func memoryConfig() config.Config {
	return config.Config{
		StoreDriver:     config.DriverMemory,
		JWTSecret:       "app-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		ServiceName:     "storefront-test",
		CORSOrigins:     []string{"*"},
	}
}

func TestNewWithMemoryStore(t *testing.T) {
	a, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	deps := a.RouterDeps()
	assert.Nil(t, deps.Database)
	assert.Nil(t, a.redis)

	f, err := seed.LoadFile("../../cmd/seed/sample.yaml")
	require.NoError(t, err)
	report, err := seed.Apply(context.Background(), a.SeedServices(), f)
	require.NoError(t, err)
	assert.Equal(t, 12, report.Created)

	w := httptest.NewRecorder()
	handlers.NewRouter(deps).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products?category=Shirts", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Linen Shirt")
}

func TestNewUsesRedisDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, a.redis)
	a.Close(context.Background())
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	cfg := memoryConfig()
	cfg.RedisURL = "not a url"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOptionalBackends(t *testing.T) {
	images, err := openImageStore(context.Background(), memoryConfig())
	require.NoError(t, err)
	assert.IsType(t, storage.Disabled{}, images)

	assert.IsType(t, mailer.Nop{}, openMailer(memoryConfig()))

	cfg := memoryConfig()
	cfg.EmailUser, cfg.EmailPass, cfg.StoreEmail = "shop@example.com", "secret", "shop@example.com"
	assert.IsType(t, &mailer.SMTPMailer{}, openMailer(cfg))
}
