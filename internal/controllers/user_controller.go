package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/services"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// GetUsers lists the staff the caller can see.
func (uc *UserController) GetUsers(c *gin.Context) {
	users, err := uc.users.Visible(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, "user_controller", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (uc *UserController) CreateUser(c *gin.Context) {
	var req services.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	saved, err := uc.users.Create(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		respondError(c, "user_controller", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Thêm nhân sự thành công!",
		"user":     saved.Item,
		"activity": saved.Activity,
	})
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	var req services.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	saved, err := uc.users.Update(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), req)
	if err != nil {
		respondError(c, "user_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Cập nhật thành công!",
		"user":     saved.Item,
		"activity": saved.Activity,
	})
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	result, err := uc.users.Delete(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, "user_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"activity": result,
	})
}

// GetLifetimeRevenue returns the carried-over plus recorded revenue of :id.
func (uc *UserController) GetLifetimeRevenue(c *gin.Context) {
	total, err := uc.users.Lifetime(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, "user_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": c.Param("id"), "lifetimeRevenue": total})
}
