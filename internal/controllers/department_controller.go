package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/services"
)

type DepartmentController struct {
	departments *services.DepartmentService
}

func NewDepartmentController(departments *services.DepartmentService) *DepartmentController {
	return &DepartmentController{departments: departments}
}

// HQDeletionRequest names the headquarters to delete. An empty DepartmentID
// means the system HQ.
type HQDeletionRequest struct {
	DepartmentID string `json:"departmentId"`
	Password     string `json:"password"`
}

func (dc *DepartmentController) GetDepartments(c *gin.Context) {
	nodes, err := dc.departments.List(c.Request.Context())
	if err != nil {
		respondError(c, "department_controller", err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func (dc *DepartmentController) GetOrphans(c *gin.Context) {
	orphans, err := dc.departments.Orphans(c.Request.Context())
	if err != nil {
		respondError(c, "department_controller", err)
		return
	}
	c.JSON(http.StatusOK, orphans)
}

// GetParentCandidates lists the valid parents for ?level=.
func (dc *DepartmentController) GetParentCandidates(c *gin.Context) {
	level := models.DepartmentLevel(c.Query("level"))
	parents, err := dc.departments.ParentCandidates(c.Request.Context(), level)
	if err != nil {
		respondError(c, "department_controller", err)
		return
	}
	c.JSON(http.StatusOK, parents)
}

func (dc *DepartmentController) CreateDepartment(c *gin.Context) {
	var req services.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	dept, result, err := dc.departments.Create(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		respondError(c, "department_controller", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"department": dept,
		"activity":   result,
	})
}

// UpdateDepartment saves the form for :id. A different id in the body renames
// the department and moves its members and children.
func (dc *DepartmentController) UpdateDepartment(c *gin.Context) {
	var req services.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	dept, result, err := dc.departments.Update(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), req)
	if err != nil {
		respondError(c, "department_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"department": dept,
		"activity":   result,
	})
}

func (dc *DepartmentController) DeleteDepartment(c *gin.Context) {
	result, err := dc.departments.Delete(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, "department_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"activity": result,
	})
}

// RequestHQDeletion starts the cancellable countdown after re-checking the
// caller's password.
func (dc *DepartmentController) RequestHQDeletion(c *gin.Context) {
	var req HQDeletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	status, err := dc.departments.RequestHQDeletion(c.Request.Context(), middleware.CurrentUser(c).ID, req.DepartmentID, req.Password)
	if err != nil {
		respondError(c, "department_controller", err)
		return
	}
	c.JSON(http.StatusAccepted, status)
}

func (dc *DepartmentController) CancelHQDeletion(c *gin.Context) {
	cancelled := dc.departments.CancelHQDeletion()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"cancelled": cancelled,
	})
}

func (dc *DepartmentController) GetHQDeletionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, dc.departments.HQDeletionStatus())
}
