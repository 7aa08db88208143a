package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salon-manager/auth"
	"salon-manager/models"
)

type AuthHandler struct {
	Deps
}

func NewAuthHandler(d Deps) *AuthHandler {
	return &AuthHandler{Deps: d}
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.Repo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.Log.WithField("email", user.Email).Warn("failed login")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.MakeToken(user.ID, user.Email, h.JWTSecret, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": user.ID, "name": user.Name})
}

// SeedAdmin creates the staff account when no user holds the email yet.
func SeedAdmin(ctx context.Context, users models.UserStore, email, password string, log logrus.FieldLogger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		log.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin account")
		return nil
	}
	_, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := users.CreateUser(ctx, &models.User{Email: email, PasswordHash: hash, Name: "Admin"}); err != nil {
		return err
	}
	log.WithField("email", email).Info("admin account created")
	return nil
}
