package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/hierarchy"
	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/reporting"
	"github.com/saleflow/backend/internal/services"
)

type DashboardController struct {
	dashboards *services.DashboardService
}

func NewDashboardController(dashboards *services.DashboardService) *DashboardController {
	return &DashboardController{dashboards: dashboards}
}

type CascadeRequest struct {
	Prev hierarchy.Filter `json:"prev"`
	Next hierarchy.Filter `json:"next"`
}

type timelineQuery struct {
	reporting.DateRange
	Search string `form:"search"`
}

// GetDashboard builds the manager dashboard for the selectors and range in
// the query string.
func (dc *DashboardController) GetDashboard(c *gin.Context) {
	var q services.DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	d, err := dc.dashboards.Manager(c.Request.Context(), middleware.CurrentUser(c).ID, q)
	if err != nil {
		respondError(c, "dashboard_controller", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (dc *DashboardController) GetStaffTree(c *gin.Context) {
	nodes, err := dc.dashboards.Tree(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, "dashboard_controller", err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func (dc *DashboardController) GetFilters(c *gin.Context) {
	var f hierarchy.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}

	state, err := dc.dashboards.Filters(c.Request.Context(), middleware.CurrentUser(c).ID, f)
	if err != nil {
		respondError(c, "dashboard_controller", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (dc *DashboardController) CascadeFilters(c *gin.Context) {
	var req CascadeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	state, err := dc.dashboards.Cascade(c.Request.Context(), middleware.CurrentUser(c).ID, req.Prev, req.Next)
	if err != nil {
		respondError(c, "dashboard_controller", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetKPI scores :id, or the caller when the path has no id.
func (dc *DashboardController) GetKPI(c *gin.Context) {
	var rng reporting.DateRange
	if err := c.ShouldBindQuery(&rng); err != nil {
		badRequest(c, err)
		return
	}

	kpi, err := dc.dashboards.KPI(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), rng)
	if err != nil {
		respondError(c, "dashboard_controller", err)
		return
	}
	c.JSON(http.StatusOK, kpi)
}

func (dc *DashboardController) GetTimeline(c *gin.Context) {
	var q timelineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	days, err := dc.dashboards.Timeline(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), q.DateRange, q.Search)
	if err != nil {
		respondError(c, "dashboard_controller", err)
		return
	}
	c.JSON(http.StatusOK, days)
}
