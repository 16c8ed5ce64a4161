package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
)

// Size and color catalogs share these handlers; the route names the kind.

func GetReferences(refs *catalog.ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := "GET /" + string(refs.Kind())
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := refs.List(ctx)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetReference(refs *catalog.ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := "GET /" + string(refs.Kind()) + "/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		ref, err := refs.Get(ctx, id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, ref)
	}
}

func CreateReference(refs *catalog.ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := "POST /admin/api/" + string(refs.Kind())
		defer handlePanic(c, route)

		var req catalog.ReferenceInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		ref, err := refs.Create(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, ref)
	}
}

func CreateReferencesBulk(refs *catalog.ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := "POST /admin/api/" + string(refs.Kind()) + "/bulk"
		defer handlePanic(c, route)

		var req []catalog.ReferenceInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		created, err := refs.CreateMany(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		log.Printf("[%s] created %d entries", route, len(created))
		c.JSON(http.StatusCreated, created)
	}
}
