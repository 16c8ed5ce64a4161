package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
)

// GET /categories returns active categories only.
func GetCategories(categories *catalog.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories"
		defer handlePanic(c, route)

		log.Printf("[%s] hit", route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := categories.List(ctx, true)
		if err != nil {
			respondError(c, route, err)
			return
		}

		log.Printf("[%s] returning %d categories", route, len(list))
		c.JSON(http.StatusOK, list)
	}
}

func GetCategory(categories *catalog.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		category, err := categories.Get(ctx, id, true)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, category)
	}
}
