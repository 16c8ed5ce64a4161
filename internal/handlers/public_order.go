package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/checkout"
	"storefront/internal/middleware"
)

/* =========================
   CHECKOUT
========================= */

// Checkout confirms an order. Guests may check out; a signed-in customer's
// order is linked to the account.
func Checkout(orders *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout"
		defer handlePanic(c, route)

		var req checkout.Request
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		var userID *primitive.ObjectID
		if id, ok := middleware.UserID(c); ok {
			userID = &id
		}

		log.Printf("[%s] hit items=%d signed_in=%t", route, len(req.Items), userID != nil)

		// Confirm bounds its own email step; the stock writes share the request timeout.
		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.Confirm(ctx, req, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}
