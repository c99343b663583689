package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/services"
)

type TargetController struct {
	targets *services.TargetService
}

func NewTargetController(targets *services.TargetService) *TargetController {
	return &TargetController{targets: targets}
}

// GetTargets returns the defaults plus the stored months for ?userId=.
func (tc *TargetController) GetTargets(c *gin.Context) {
	user := middleware.CurrentUser(c)
	targets, err := tc.targets.List(c.Request.Context(), user.ID, c.Query("userId"))
	if err != nil {
		respondError(c, "target_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"defaults": tc.targets.Defaults(),
		"targets":  targets,
	})
}

func (tc *TargetController) SaveTarget(c *gin.Context) {
	var req services.TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	target, err := tc.targets.Save(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, "target_controller", err)
		return
	}

	logger.WithUser(user.ID, "target_controller").WithField("target_id", target.ID).Info("Monthly target saved")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"target":  target,
	})
}
