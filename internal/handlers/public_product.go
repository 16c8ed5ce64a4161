package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
)

/*
GET /products
- only Active products
- pagination is optional: without page and limit every match is returned
  as a plain array
*/
func GetProducts(products *catalog.ProductService) gin.HandlerFunc {
	return listProducts(products, catalog.ScopePublic, "GET /products")
}

func listProducts(products *catalog.ProductService, scope catalog.Scope, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		log.Printf(
			"[%s] hit page=%s limit=%s category=%s search=%s",
			route,
			c.Query("page"),
			c.Query("limit"),
			sanitizeLogValue(c.Query("category"), 60),
			sanitizeLogValue(c.Query("search"), 60),
		)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := products.List(ctx, scope, catalog.ProductQuery{
			CategoryID: c.Query("category_id"),
			Category:   c.Query("category"),
			Search:     c.Query("search"),
			Status:     c.Query("status"),
			Intake:     c.Query("intake"),
			Available:  c.Query("available"),
			Page:       page,
			Limit:      limit,
		})
		if err != nil {
			respondError(c, route, err)
			return
		}

		log.Printf("[%s] returning %d of %d products", route, len(result.Items), result.Total)
		if limit == 0 {
			c.JSON(http.StatusOK, result.Items)
			return
		}
		c.JSON(http.StatusOK, paginated(result.Items, page, limit, result.Total))
	}
}

// GET /products/:id
func GetProduct(products *catalog.ProductService) gin.HandlerFunc {
	return getProduct(products, catalog.ScopePublic, "GET /products/:id")
}

func getProduct(products *catalog.ProductService, scope catalog.Scope, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := products.Get(ctx, scope, id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// GET /products/:id/colors
func GetProductColors(products *catalog.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id/colors"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		colors, err := products.Colors(ctx, id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, colors)
	}
}

// GET /products/:id/sizes
func GetProductSizes(products *catalog.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id/sizes"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		sizes, err := products.Sizes(ctx, id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, sizes)
	}
}
