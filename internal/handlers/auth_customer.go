package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is the body of every call that hands out tokens.
type AuthResponse struct {
	*auth.Tokens
	User *models.User `json:"user"`
}

func Register(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/register"
		defer handlePanic(c, route)

		var req auth.RegisterInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := accounts.Register(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func Login(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		tokens, user, err := accounts.Login(ctx, req.Email, req.Password)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Tokens: tokens, User: user})
	}
}

func Refresh(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/refresh"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		tokens, user, err := accounts.Refresh(ctx, req.RefreshToken)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Tokens: tokens, User: user})
	}
}

// Logout revokes the posted refresh token and, when the request carries a
// live access token, deny-lists that token as well. The body may be empty
// when only the access token is being ended.
func Logout(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/logout"
		defer handlePanic(c, route)

		var req RefreshRequest
		if c.Request.ContentLength != 0 {
			if err := bindJSON(c, &req); err != nil {
				respondError(c, route, err)
				return
			}
		}

		var claims *auth.Claims
		if session := middleware.SessionFrom(c); session.State == auth.StateAuthenticated {
			claims = session.Claims
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := accounts.Logout(ctx, req.RefreshToken, claims); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func GetMe(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/me"
		defer handlePanic(c, route)

		userID, ok := middleware.UserID(c)
		if !ok {
			log.Println("[AUTH] [ERROR] userId missing in context")
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := accounts.Me(ctx, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateMe(accounts *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /auth/me"
		defer handlePanic(c, route)

		userID, ok := middleware.UserID(c)
		if !ok {
			log.Println("[AUTH] [ERROR] userId missing in context")
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req auth.UpdateMeInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := accounts.UpdateMe(ctx, userID, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
