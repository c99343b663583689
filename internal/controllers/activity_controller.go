package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/services"
)

type ActivityController struct {
	activities *services.ActivityService
}

func NewActivityController(activities *services.ActivityService) *ActivityController {
	return &ActivityController{activities: activities}
}

// GetActivities returns the audit trail. ?actorId= narrows a director's view.
func (ac *ActivityController) GetActivities(c *gin.Context) {
	logs, err := ac.activities.Recent(c.Request.Context(), middleware.CurrentUser(c), c.Query("actorId"))
	if err != nil {
		respondError(c, "activity_controller", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
