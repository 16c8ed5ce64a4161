package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
)

// AdminLogin signs in to the admin panel. Accounts without the admin role
// get 403 and no tokens.
func AdminLogin(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		tokens, admin, err := accounts.AdminLogin(ctx, req.Email, req.Password)
		if err != nil {
			respondError(c, route, err)
			return
		}
		log.Println("[AUTH] [INFO] admin login succeeded:", admin.Email)
		c.JSON(http.StatusOK, AuthResponse{Tokens: tokens, User: admin})
	}
}
