package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/handlers"
	"storefront/internal/inventory"
	"storefront/internal/mailer"
	"storefront/internal/memstore"
	"storefront/internal/models"
	"storefront/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	t      *testing.T
	router *gin.Engine
	admin  string
}

func newServer(t *testing.T) *server {
	t.Helper()
	store := memstore.New()

	issuer := auth.NewIssuer("router-secret", time.Hour)
	denylist := auth.NewMemoryDenylist()
	accounts := auth.NewService(store.Users(), store.RefreshTokens(), issuer, denylist, 24*time.Hour)

	categories := catalog.NewCategoryService(store.Categories())
	stock := inventory.NewService(store.Products(), nil)

	router := handlers.NewRouter(handlers.Deps{
		Products:    catalog.NewProductService(store.Products(), categories, storage.Disabled{}, nil),
		Categories:  categories,
		Sizes:       catalog.NewReferenceService(models.ReferenceSizes, store.References(models.ReferenceSizes)),
		Colors:      catalog.NewReferenceService(models.ReferenceColors, store.References(models.ReferenceColors)),
		Stock:       stock,
		Accounts:    accounts,
		Sessions:    auth.NewInspector(issuer, denylist),
		Orders:      checkout.NewService(store.Products(), stock, store.Orders(), mailer.Nop{}, nil),
		CORSOrigins: []string{"*"},
	})

	_, err := accounts.CreateUser(context.Background(), auth.RegisterInput{
		Name: "Root", Email: "root@example.com", Password: "Admin1234",
	}, models.RoleAdmin)
	require.NoError(t, err)

	s := &server{t: t, router: router}
	var login handlers.AuthResponse
	s.mustDo(http.MethodPost, "/admin/login", "", map[string]string{"email": "root@example.com", "password": "Admin1234"}, http.StatusOK, &login)
	s.admin = login.AccessToken
	return s
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) mustDo(method, path, token string, body interface{}, status int, out interface{}) {
	s.t.Helper()
	w := s.do(method, path, token, body)
	require.Equal(s.t, status, w.Code, w.Body.String())
	if out != nil {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out))
	}
}

func (s *server) createProduct(body map[string]interface{}) models.Product {
	s.t.Helper()
	var product models.Product
	s.mustDo(http.MethodPost, "/admin/api/products", s.admin, body, http.StatusCreated, &product)
	return product
}

type errorBody struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details"`
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestProductStockOverHTTP(t *testing.T) {
	s := newServer(t)

	var category models.Category
	s.mustDo(http.MethodPost, "/admin/api/categories", s.admin, map[string]string{"name": "Shirts"}, http.StatusCreated, &category)

	product := s.createProduct(map[string]interface{}{
		"name":          "Linen Shirt",
		"current_price": 19.99,
		"category":      "Shirts",
		"sizes":         []string{"M", "L"},
		"colors": []map[string]interface{}{
			{"name": " Blue ", "quantity": "3"},
			{"name": "White", "quantity": 2, "stock": 0},
		},
	})
	assert.True(t, product.Available)
	assert.Equal(t, "Shirts", product.CategoryName)
	assert.Equal(t, []models.ColorVariant{{Name: "Blue", Quantity: 3, Stock: 3}, {Name: "White", Quantity: 2, Stock: 0}}, product.Colors)

	path := "/admin/api/products/" + product.ID.Hex() + "/decrement"

	var after models.Product
	s.mustDo(http.MethodPost, path, s.admin, map[string]interface{}{"color": "Blue", "quantity": 3}, http.StatusOK, &after)
	assert.False(t, after.Available)

	var conflict errorBody
	s.mustDo(http.MethodPost, path, s.admin, map[string]interface{}{"color": "Blue", "quantity": 1}, http.StatusConflict, &conflict)
	assert.Equal(t, float64(0), conflict.Details["available"])

	s.mustDo(http.MethodPost, path, s.admin, map[string]interface{}{"color": "Green", "quantity": 1}, http.StatusNotFound, nil)
	s.mustDo(http.MethodPost, path, s.admin, map[string]interface{}{"color": "White", "quantity": 0}, http.StatusBadRequest, nil)
	s.mustDo(http.MethodPost, path, s.admin, map[string]interface{}{"quantity": 1}, http.StatusBadRequest, nil)

	var colors []models.ColorVariant
	s.mustDo(http.MethodGet, "/products/"+product.ID.Hex()+"/colors", "", nil, http.StatusOK, &colors)
	assert.Equal(t, 0, colors[0].Stock)

	var sizes []string
	s.mustDo(http.MethodGet, "/products/"+product.ID.Hex()+"/sizes", "", nil, http.StatusOK, &sizes)
	assert.Equal(t, []string{"M", "L"}, sizes)

	var dup errorBody
	s.mustDo(http.MethodPost, "/admin/api/products", s.admin, map[string]interface{}{"name": "Linen Shirt"}, http.StatusConflict, &dup)

	var patched models.Product
	s.mustDo(http.MethodPatch, "/admin/api/products/"+product.ID.Hex(), s.admin,
		map[string]interface{}{"colors": []map[string]interface{}{{"name": "Blue", "quantity": 5}}},
		http.StatusOK, &patched)
	assert.True(t, patched.Available)

	s.mustDo(http.MethodDelete, "/admin/api/products/"+product.ID.Hex(), s.admin, nil, http.StatusOK, nil)
	s.mustDo(http.MethodGet, "/products/"+product.ID.Hex(), "", nil, http.StatusNotFound, nil)
}

func TestProductListing(t *testing.T) {
	s := newServer(t)
	for _, name := range []string{"Alpha Tee", "Beta Tee", "Gamma Tee"} {
		s.createProduct(map[string]interface{}{"name": name, "colors": []map[string]interface{}{{"name": "Red", "quantity": 1}}})
	}
	s.createProduct(map[string]interface{}{"name": "Hidden Tee", "status": "Inactive"})

	var all []models.Product
	s.mustDo(http.MethodGet, "/products", "", nil, http.StatusOK, &all)
	assert.Len(t, all, 3)

	var page struct {
		Data       []models.Product `json:"data"`
		Pagination struct {
			Page       int64 `json:"page"`
			Limit      int64 `json:"limit"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"totalPages"`
		} `json:"pagination"`
	}
	s.mustDo(http.MethodGet, "/products?page=2&limit=2", "", nil, http.StatusOK, &page)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, int64(2), page.Pagination.TotalPages)

	s.mustDo(http.MethodGet, "/admin/api/products?status=Inactive&page=1", s.admin, nil, http.StatusOK, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Hidden Tee", page.Data[0].Name)

	s.mustDo(http.MethodGet, "/products?page=0", "", nil, http.StatusBadRequest, nil)
	s.mustDo(http.MethodGet, "/products?available=maybe", "", nil, http.StatusBadRequest, nil)
	s.mustDo(http.MethodGet, "/products/not-an-id", "", nil, http.StatusBadRequest, nil)
}

func TestCheckoutOverHTTP(t *testing.T) {
	s := newServer(t)
	product := s.createProduct(map[string]interface{}{
		"name":          "Sun Hat",
		"current_price": 12.5,
		"colors":        []map[string]interface{}{{"name": "Straw", "quantity": 2}},
	})

	customer := map[string]string{
		"name": "Ada", "email": "ada@example.com", "phone": "555", "address": "1 Loop Rd",
		"city": "Springfield", "postal_code": "12345",
	}
	line := map[string]interface{}{"product_id": product.ID.Hex(), "color": "Straw", "quantity": 2}

	var order models.Order
	s.mustDo(http.MethodPost, "/checkout", "", map[string]interface{}{
		"customer": customer, "payment_method": "cash", "items": []interface{}{line},
	}, http.StatusCreated, &order)
	assert.Equal(t, 25.0, order.Total)
	assert.False(t, order.EmailSent, "no mailer configured")
	assert.Nil(t, order.UserID)

	var sold models.Product
	s.mustDo(http.MethodGet, "/products/"+product.ID.Hex(), "", nil, http.StatusOK, &sold)
	assert.False(t, sold.Available)

	var insufficient errorBody
	s.mustDo(http.MethodPost, "/checkout", "", map[string]interface{}{
		"customer": customer, "payment_method": "cash", "items": []interface{}{line},
	}, http.StatusConflict, &insufficient)

	badCustomer := map[string]string{"name": "Ada", "email": "nope"}
	var invalid errorBody
	s.mustDo(http.MethodPost, "/checkout", "", map[string]interface{}{
		"customer": badCustomer, "payment_method": "cash", "items": []interface{}{line},
	}, http.StatusBadRequest, &invalid)
	assert.Contains(t, invalid.Details["fields"], "customer.email must be a valid email address")

	var orders struct {
		Data []models.Order `json:"data"`
	}
	s.mustDo(http.MethodGet, "/admin/api/orders", s.admin, nil, http.StatusOK, &orders)
	assert.Len(t, orders.Data, 1)
}

func TestAccountFlowOverHTTP(t *testing.T) {
	s := newServer(t)

	s.mustDo(http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "Secret123",
	}, http.StatusCreated, nil)
	s.mustDo(http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada", "email": "ADA@example.com", "password": "Secret123",
	}, http.StatusConflict, nil)

	var login handlers.AuthResponse
	s.mustDo(http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "Secret123"}, http.StatusOK, &login)
	require.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "ada@example.com", login.User.Email)

	var me models.User
	s.mustDo(http.MethodGet, "/auth/me", login.AccessToken, nil, http.StatusOK, &me)
	assert.Equal(t, "Ada", me.Name)

	s.mustDo(http.MethodPatch, "/auth/me", login.AccessToken, map[string]string{"name": "Ada L."}, http.StatusOK, &me)
	assert.Equal(t, "Ada L.", me.Name)

	s.mustDo(http.MethodGet, "/admin/api/products", login.AccessToken, nil, http.StatusForbidden, nil)
	s.mustDo(http.MethodGet, "/admin/api/products", "", nil, http.StatusUnauthorized, nil)
	s.mustDo(http.MethodPost, "/admin/login", "", map[string]string{"email": "ada@example.com", "password": "Secret123"}, http.StatusForbidden, nil)

	var role struct {
		Role string `json:"role"`
	}
	s.mustDo(http.MethodGet, "/admin/api/users/"+me.ID.Hex()+"/role", s.admin, nil, http.StatusOK, &role)
	assert.Equal(t, models.RoleUser, role.Role)

	var refreshed handlers.AuthResponse
	s.mustDo(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": login.RefreshToken}, http.StatusOK, &refreshed)
	s.mustDo(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": login.RefreshToken}, http.StatusUnauthorized, nil)

	s.mustDo(http.MethodPost, "/auth/logout", refreshed.AccessToken, map[string]string{"refresh_token": refreshed.RefreshToken}, http.StatusOK, nil)
	s.mustDo(http.MethodGet, "/auth/me", refreshed.AccessToken, nil, http.StatusUnauthorized, nil)
}

func TestReferenceRoutes(t *testing.T) {
	s := newServer(t)

	s.mustDo(http.MethodPost, "/admin/api/sizes/bulk", s.admin, []map[string]string{{"name": "S"}, {"name": "M"}}, http.StatusCreated, nil)
	s.mustDo(http.MethodPost, "/admin/api/sizes", s.admin, map[string]string{"name": "XXXL"}, http.StatusBadRequest, nil)
	s.mustDo(http.MethodPost, "/admin/api/colors", s.admin, map[string]string{"name": "Teal"}, http.StatusCreated, nil)
	s.mustDo(http.MethodPost, "/admin/api/colors/bulk", s.admin, []map[string]string{{"name": "Navy"}, {"name": "Teal"}}, http.StatusConflict, nil)

	var sizes []models.Reference
	s.mustDo(http.MethodGet, "/sizes", "", nil, http.StatusOK, &sizes)
	assert.Len(t, sizes, 2)

	var colors []models.Reference
	s.mustDo(http.MethodGet, "/colors", "", nil, http.StatusOK, &colors)
	require.Len(t, colors, 1)
	s.mustDo(http.MethodGet, "/colors/"+colors[0].ID.Hex(), "", nil, http.StatusOK, nil)
}

func TestCategoryRoutes(t *testing.T) {
	s := newServer(t)

	var created []models.Category
	s.mustDo(http.MethodPost, "/admin/api/categories/bulk", s.admin,
		[]map[string]string{{"name": "Hats"}, {"name": "Bags"}}, http.StatusCreated, &created)
	require.Len(t, created, 2)

	s.mustDo(http.MethodDelete, "/admin/api/categories/"+created[0].ID.Hex(), s.admin, nil, http.StatusOK, nil)

	var public []models.Category
	s.mustDo(http.MethodGet, "/categories", "", nil, http.StatusOK, &public)
	assert.Len(t, public, 1)
	s.mustDo(http.MethodGet, "/categories/"+created[0].ID.Hex(), "", nil, http.StatusNotFound, nil)

	var all struct {
		Data []models.Category `json:"data"`
	}
	s.mustDo(http.MethodGet, "/admin/api/categories", s.admin, nil, http.StatusOK, &all)
	assert.Len(t, all.Data, 2)

	s.mustDo(http.MethodPut, "/admin/api/categories/"+created[1].ID.Hex(), s.admin, map[string]string{"name": "Hats"}, http.StatusConflict, nil)
}
