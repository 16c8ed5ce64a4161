package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/checkout"
)

func GetOrders(orders *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := orders.List(ctx)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list})
	}
}

func DeleteOrder(orders *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/orders/:id"
		defer handlePanic(c, route)

		orderID, err := objectIDParam(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := orders.Delete(ctx, orderID); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
	}
}
