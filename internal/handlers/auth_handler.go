package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"notu/backend/internal/models"
	"notu/backend/internal/repository"
	"notu/backend/internal/token"

	"github.com/gin-gonic/gin"
)

type RegisterPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type LoginPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshPayload struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func userResponse(user *models.User) gin.H {
	return gin.H{"id": user.ID.Hex(), "email": user.Email, "name": user.Name}
}

// Register creates the account and signs the new user straight in.
func Register(users *repository.UserRepository, tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload RegisterPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		user, err := users.Create(ctx, payload.Email, payload.Password, payload.Name)
		if err != nil {
			if errors.Is(err, repository.ErrEmailTaken) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
				return
			}
			log.Printf("[AuthHandler] Register failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		issueSession(c, ctx, users, tokens, user, http.StatusCreated)
	}
}

// Login verifies credentials and issues a fresh token pair. The refresh
// token is stored on the user so it can be rotated and revoked.
func Login(users *repository.UserRepository, tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload LoginPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		user, err := users.Authenticate(ctx, payload.Email, payload.Password)
		if err != nil {
			if errors.Is(err, repository.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
				return
			}
			log.Printf("[AuthHandler] Login failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
			return
		}

		issueSession(c, ctx, users, tokens, user, http.StatusOK)
	}
}

func issueSession(c *gin.Context, ctx context.Context, users *repository.UserRepository, tokens *token.Service, user *models.User, status int) {
	accessToken, err := tokens.IssueAccessToken(user.ID.Hex())
	if err != nil {
		log.Printf("[AuthHandler] Could not issue access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	refreshToken, err := tokens.IssueRefreshToken(user.ID.Hex())
	if err != nil {
		log.Printf("[AuthHandler] Could not issue refresh token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	if err := users.SetRefreshToken(ctx, user.ID.Hex(), refreshToken); err != nil {
		log.Printf("[AuthHandler] Could not store refresh token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(status, gin.H{
		"user":         userResponse(user),
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

// Refresh trades a valid refresh token for a new access token. The
// presented token must match the one stored on the user, so a stolen token
// dies the moment the user logs in again.
func Refresh(users *repository.UserRepository, tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload RefreshPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token is required"})
			return
		}

		userID, err := tokens.Verify(payload.RefreshToken, token.TypeRefresh)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired"})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		user, err := users.FindByID(ctx, userID)
		if err != nil || user.RefreshToken != payload.RefreshToken {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}

		accessToken, err := tokens.IssueAccessToken(userID)
		if err != nil {
			log.Printf("[AuthHandler] Could not issue access token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
	}
}
