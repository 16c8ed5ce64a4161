package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
	"storefront/internal/inventory"
	"storefront/internal/validation"
)

/* =======================
   REQUEST MODELS
======================= */

type DecrementStockRequest struct {
	Color    string `json:"color" binding:"required"`
	Quantity int    `json:"quantity"`
}

/* =======================
   GET (ADMIN)
======================= */

// GetAllProducts lists products of every status.
func GetAllProducts(products *catalog.ProductService) gin.HandlerFunc {
	return listProducts(products, catalog.ScopeAdmin, "GET /admin/api/products")
}

func GetAdminProduct(products *catalog.ProductService) gin.HandlerFunc {
	return getProduct(products, catalog.ScopeAdmin, "GET /admin/api/products/:id")
}

/* =======================
   CREATE
======================= */

// CreateProduct accepts JSON or a multipart form with an optional image.
func CreateProduct(products *catalog.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products"
		defer handlePanic(c, route)

		var (
			input catalog.ProductInput
			form  MultipartProductInput
			err   error
		)
		if isMultipart(c) {
			form, err = parseMultipartProductRequest(c)
			input = form.toInput()
		} else {
			err = bindJSON(c, &input)
		}
		if err != nil {
			respondError(c, route, err)
			return
		}

		image, closeImage, err := openImage(form.Image)
		if err != nil {
			respondError(c, route, err)
			return
		}
		defer closeImage()

		log.Printf("[%s] creating name=%q colors=%d image=%t",
			route, sanitizeLogValue(input.Name, 60), len(input.Colors), image != nil)

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := products.Create(ctx, input, image)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// CreateProductsBulk stores a JSON array of products, all or none.
func CreateProductsBulk(products *catalog.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products/bulk"
		defer handlePanic(c, route)

		var inputs []catalog.ProductInput
		if err := bindJSON(c, &inputs); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		created, err := products.CreateMany(ctx, inputs)
		if err != nil {
			respondError(c, route, err)
			return
		}
		log.Printf("[%s] created %d products", route, len(created))
		c.JSON(http.StatusCreated, created)
	}
}

/* =======================
   UPDATE
======================= */

// UpdateProduct applies a partial update from JSON or a multipart form.
func UpdateProduct(products *catalog.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /admin/api/products/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		var (
			patch catalog.ProductPatch
			form  MultipartProductInput
		)
		if isMultipart(c) {
			form, err = parseMultipartProductRequest(c)
			patch = form.toPatch()
		} else {
			err = bindJSON(c, &patch)
		}
		if err != nil {
			respondError(c, route, err)
			return
		}

		image, closeImage, err := openImage(form.Image)
		if err != nil {
			respondError(c, route, err)
			return
		}
		defer closeImage()

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := products.Update(ctx, id, patch, image)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

/* =======================
   STOCK
======================= */

// DecrementStock takes units of one color out of sellable stock.
func DecrementStock(stock *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products/:id/decrement"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		var req DecrementStockRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		req.Color = strings.TrimSpace(req.Color)
		if err := validation.Struct(req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := stock.Decrement(ctx, id, req.Color, req.Quantity)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

/* =======================
   DELETE
======================= */

func DeleteProduct(products *catalog.ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/products/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := products.Delete(ctx, id); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}
