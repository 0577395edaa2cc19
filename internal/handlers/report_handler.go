package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spendtrack/internal/pagination"
	"spendtrack/internal/services"
)

// ReportHandler handles report snapshots.
type ReportHandler struct {
	reportService services.ReportServicer
	auditService  services.AuditServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer, auditService services.AuditServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService, auditService: auditService}
}

// GenerateReportRequest represents the request payload for a new report.
type GenerateReportRequest struct {
	StartDate string `json:"start_date" binding:"required,date"`
	EndDate   string `json:"end_date" binding:"required,date"`
}

// GenerateReport snapshots the caller's spending over a window.
// @Summary     Generate a report
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body GenerateReportRequest true "Report window"
// @Success     201 {object} models.Report "Report generated"
// @Failure     400 {object} ErrorResponse "Invalid input or no expenses in range"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GenerateReport(c.Request.Context(), userID, *start, *end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionGenerate, services.ResourceReport, report.ID, c.ClientIP(),
		map[string]interface{}{"start_date": req.StartDate, "end_date": req.EndDate})

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// GetLatestReport returns the most recent report, fully resolved.
// @Summary     Latest report
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Report "Report"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No report yet"
// @Router      /reports [get]
func (h *ReportHandler) GetLatestReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetLatestReport(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GetReportHistory lists report headers, newest first.
// @Summary     Report history
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Report] "Paginated reports"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /reports/history [get]
func (h *ReportHandler) GetReportHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.reportService.GetReportHistory(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
