package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"storefront/internal/auth"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	issuer   *auth.Issuer
	denylist *auth.MemoryDenylist
	router   *gin.Engine
}

func newHarness() harness {
	h := harness{
		issuer:   auth.NewIssuer("middleware-secret", time.Hour),
		denylist: auth.NewMemoryDenylist(),
	}
	inspector := auth.NewInspector(h.issuer, h.denylist)

	whoami := func(c *gin.Context) {
		body := gin.H{"state": middleware.SessionFrom(c).State}
		if id, ok := middleware.UserID(c); ok {
			body["userId"] = id.Hex()
		}
		c.JSON(http.StatusOK, body)
	}

	r := gin.New()
	r.GET("/optional", middleware.OptionalAuth(inspector), whoami)
	r.GET("/user", middleware.UserAuth(inspector), whoami)
	r.GET("/admin", middleware.AdminAuth(inspector), whoami)
	h.router = r
	return h
}

func (h harness) token(t *testing.T, role string) (string, *auth.Claims) {
	t.Helper()
	raw, claims, err := h.issuer.Issue(models.User{ID: primitive.NewObjectID(), Email: "a@example.com", Role: role})
	require.NoError(t, err)
	return raw, claims
}

func (h harness) get(path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestAuthGuards(t *testing.T) {
	h := newHarness()
	userToken, _ := h.token(t, models.RoleUser)
	adminToken, _ := h.token(t, models.RoleAdmin)
	loggedOut, loggedOutClaims := h.token(t, models.RoleAdmin)
	require.NoError(t, h.denylist.Deny(context.Background(), loggedOutClaims.ID, loggedOutClaims.ExpiresAt.Time))

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "optional without token", path: "/optional", status: http.StatusOK, body: `"state":"anonymous"`},
		{name: "optional with token", path: "/optional", header: "Bearer " + userToken, status: http.StatusOK, body: `"state":"authenticated"`},
		{name: "optional with garbage", path: "/optional", header: "Bearer nope", status: http.StatusUnauthorized, body: "invalid token"},
		{name: "user without token", path: "/user", status: http.StatusUnauthorized, body: "missing token"},
		{name: "user wrong scheme", path: "/user", header: "Basic abc", status: http.StatusUnauthorized, body: "invalid authorization header"},
		{name: "user ok", path: "/user", header: "Bearer " + userToken, status: http.StatusOK},
		{name: "admin as user", path: "/admin", header: "Bearer " + userToken, status: http.StatusForbidden, body: "forbidden"},
		{name: "admin ok", path: "/admin", header: "bearer " + adminToken, status: http.StatusOK},
		{name: "admin after logout", path: "/admin", header: "Bearer " + loggedOut, status: http.StatusUnauthorized, body: "missing token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.get(tt.path, tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Contains(t, w.Body.String(), tt.body)
			}
		})
	}
}

func TestExpiredTokenIsReported(t *testing.T) {
	h := newHarness()
	expired := auth.NewIssuer("middleware-secret", -time.Minute)
	raw, _, err := expired.Issue(models.User{ID: primitive.NewObjectID(), Role: models.RoleUser})
	require.NoError(t, err)

	for _, path := range []string{"/optional", "/user", "/admin"} {
		w := h.get(path, "Bearer "+raw)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Contains(t, w.Body.String(), "token expired", path)
	}
}

func TestUserIDFromSession(t *testing.T) {
	h := newHarness()
	raw, claims := h.token(t, models.RoleUser)

	w := h.get("/user", "Bearer "+raw)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), claims.UserID)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("requestId")) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	generated := w.Header().Get(middleware.RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}

func TestMetricsUseRouteTemplate(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	m, err := metrics.New(provider.Meter("test"))
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Metrics(m))
	r.GET("/products/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/products/a", "/products/b", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name != "http.server.request.count" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value(attribute.Key("http.route"))
				counts[route.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"/products/:id": 2, "unmatched": 1}, counts)
}
