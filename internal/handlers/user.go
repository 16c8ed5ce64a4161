package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
)

// GET /admin/api/users
func ListUsers(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/users"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		users, err := accounts.ListUsers(ctx)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": users})
	}
}

// GET /admin/api/users/:id/role
func GetUserRole(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/users/:id/role"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		role, err := accounts.Role(ctx, id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "role": role})
	}
}
