package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RecordController struct {
	records *services.RecordService
	exports *services.ExportService
}

func NewRecordController(records *services.RecordService, exports *services.ExportService) *RecordController {
	return &RecordController{records: records, exports: exports}
}

// GetRecords lists the caller's appointments, consultations and revenues.
func (rc *RecordController) GetRecords(c *gin.Context) {
	rec, err := rc.records.Records(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// SaveAppointment handles both POST /appointments and PUT /appointments/:id.
func (rc *RecordController) SaveAppointment(c *gin.Context) {
	var a models.Appointment
	if err := c.ShouldBindJSON(&a); err != nil {
		badRequest(c, err)
		return
	}
	a.ID = c.Param("id")

	saved, err := rc.records.SaveAppointment(c.Request.Context(), middleware.CurrentUser(c), a)
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(savedStatus(a.ID), saved)
}

func (rc *RecordController) DeleteAppointment(c *gin.Context) {
	result, err := rc.records.DeleteAppointment(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activity": result})
}

func (rc *RecordController) SaveConsultation(c *gin.Context) {
	var cons models.Consultation
	if err := c.ShouldBindJSON(&cons); err != nil {
		badRequest(c, err)
		return
	}
	cons.ID = c.Param("id")

	saved, err := rc.records.SaveConsultation(c.Request.Context(), middleware.CurrentUser(c), cons)
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(savedStatus(cons.ID), saved)
}

func (rc *RecordController) DeleteConsultation(c *gin.Context) {
	result, err := rc.records.DeleteConsultation(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activity": result})
}

func (rc *RecordController) SaveRevenue(c *gin.Context) {
	var r models.Revenue
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	r.ID = c.Param("id")

	saved, err := rc.records.SaveRevenue(c.Request.Context(), middleware.CurrentUser(c), r)
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(savedStatus(r.ID), saved)
}

func (rc *RecordController) DeleteRevenue(c *gin.Context) {
	result, err := rc.records.DeleteRevenue(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activity": result})
}

// GetHandoverCandidates lists the caller's new contracts for the handover form.
func (rc *RecordController) GetHandoverCandidates(c *gin.Context) {
	revs, err := rc.records.HandoverCandidates(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, revs)
}

func (rc *RecordController) GetProjects(c *gin.Context) {
	ledger, err := rc.records.Projects(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, ledger)
}

func (rc *RecordController) SaveProject(c *gin.Context) {
	var p models.ProjectProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	if code := c.Param("code"); code != "" {
		p.ContractCode = code
	}

	saved, err := rc.records.SaveProject(c.Request.Context(), middleware.CurrentUser(c), p)
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (rc *RecordController) DeleteProject(c *gin.Context) {
	result, err := rc.records.DeleteProject(c.Request.Context(), middleware.CurrentUser(c), c.Param("code"))
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activity": result})
}

// ExportProjects streams the caller's project ledger as an xlsx workbook.
func (rc *RecordController) ExportProjects(c *gin.Context) {
	user := middleware.CurrentUser(c)
	f, filename, err := rc.exports.ProjectsWorkbook(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		logger.WithError(err, "record_controller").Error("Failed to write project workbook")
	}
}

// LookupCustomer prefills a form from ?phone=. An unknown phone returns
// found=false rather than 404.
func (rc *RecordController) LookupCustomer(c *gin.Context) {
	info, err := rc.records.LookupCustomer(c.Request.Context(), c.Query("phone"))
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": info != nil, "customer": info})
}

func (rc *RecordController) GetLatestAppointment(c *gin.Context) {
	match, err := rc.records.LatestAppointment(c.Request.Context(), c.Query("phone"))
	if err != nil {
		respondError(c, "record_controller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": match != nil, "match": match})
}

func savedStatus(id string) int {
	if id == "" {
		return http.StatusCreated
	}
	return http.StatusOK
}
