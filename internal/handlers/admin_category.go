package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
)

/*
GET /admin/api/categories
- every category, active or not
- ?is_active=true narrows to active ones
*/
func GetAllCategories(categories *catalog.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/categories"
		defer handlePanic(c, route)

		activeOnly := false
		if v := strings.TrimSpace(c.Query("is_active")); v != "" {
			parsed, err := parseBoolValue(v)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "is_active must be boolean")
				return
			}
			activeOnly = parsed
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := categories.List(ctx, activeOnly)
		if err != nil {
			respondError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": list,
		})
	}
}

/*
POST /admin/api/categories
- a category name can only be used once
*/
func CreateCategory(categories *catalog.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/categories"
		defer handlePanic(c, route)

		var req catalog.CategoryInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		category, err := categories.Create(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

// POST /admin/api/categories/bulk stores every category or none.
func CreateCategoriesBulk(categories *catalog.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/categories/bulk"
		defer handlePanic(c, route)

		var req []catalog.CategoryInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		created, err := categories.CreateMany(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		log.Printf("[%s] created %d categories", route, len(created))
		c.JSON(http.StatusCreated, created)
	}
}

func UpdateCategory(categories *catalog.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/categories/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		var req catalog.CategoryPatch
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		category, err := categories.Update(ctx, id, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

/*
DELETE /admin/api/categories/:id
- soft delete: the category is deactivated and products keep their reference
*/
func DeleteCategory(categories *catalog.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/categories/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := categories.Deactivate(ctx, id); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "category deactivated"})
	}
}
