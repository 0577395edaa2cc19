package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spendtrack/internal/services"
)

// TotalsHandler serves spending aggregates.
type TotalsHandler struct {
	totalsService services.TotalsServicer
}

// NewTotalsHandler creates a new TotalsHandler.
func NewTotalsHandler(totalsService services.TotalsServicer) *TotalsHandler {
	return &TotalsHandler{totalsService: totalsService}
}

// SpendingQuery holds the optional window of a totals request.
type SpendingQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,date"`
	EndDate   string `form:"end_date" binding:"omitempty,date"`
}

// GetSpending returns the caller's total and per-category spending.
// @Summary     Spending totals
// @Description Sum expenses over a window, defaulting to the current month
// @Tags        totals
// @Produce     json
// @Security    BearerAuth
// @Param       start_date query string false "Window start (YYYY-MM-DD)"
// @Param       end_date   query string false "Window end, inclusive (YYYY-MM-DD)"
// @Success     200 {object} services.SpendingTotals "Totals"
// @Failure     400 {object} ErrorResponse "Invalid date range"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /totals/spending [get]
func (h *TotalsHandler) GetSpending(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query SpendingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	start, err := parseDate("start_date", query.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseDate("end_date", query.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	totals, err := h.totalsService.GetSpending(c.Request.Context(), userID, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, totals)
}
