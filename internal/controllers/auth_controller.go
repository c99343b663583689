package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/services"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

func (ac *AuthController) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := ac.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, "auth_controller", err)
		return
	}

	logger.WithUser(result.User.ID, "auth_controller").Info("User logged in")
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Đăng nhập thành công",
		"token":     result.Token,
		"user":      result.User,
		"expiresAt": result.Session.ExpiresAt,
	})
}

func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.auth.Logout(c.Request.Context(), middleware.CurrentSession(c)); err != nil {
		respondError(c, "auth_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ac *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	result, err := ac.auth.ChangePassword(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, "auth_controller", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Đổi mật khẩu thành công!",
		"activity": result,
	})
}
