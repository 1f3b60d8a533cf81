package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/domain/models"
	"github.com/mamadbah2/farmbook/internal/service/reporting"
)

// Reporter computes dashboard counters and range reports.
type Reporter interface {
	Today() time.Time
	Dashboard(ctx context.Context, date time.Time) (models.DashboardSummary, error)
	RangeReport(ctx context.Context, category models.Category, start, end time.Time) (models.RangeReport, error)
}

// DashboardHandler serves the dashboard and range reports.
type DashboardHandler struct {
	reporting Reporter
	logger    *zap.Logger
}

// NewDashboardHandler constructs the HTTP handler adapter.
func NewDashboardHandler(reporting Reporter, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{reporting: reporting, logger: logger}
}

// Dashboard returns the counters for ?date=YYYY-MM-DD, defaulting to today.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	date, ok := h.dayParam(c, "date")
	if !ok {
		return
	}

	summary, err := h.reporting.Dashboard(c.Request.Context(), date)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Report returns the records of a category between ?start= and ?end=.
func (h *DashboardHandler) Report(c *gin.Context) {
	category, err := categoryParam(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	start, ok := h.dayParam(c, "start")
	if !ok {
		return
	}
	end, ok := h.dayParam(c, "end")
	if !ok {
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not be before start"})
		return
	}

	report, err := h.reporting.RangeReport(c.Request.Context(), category, start, end)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *DashboardHandler) dayParam(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return h.reporting.Today(), true
	}

	day, err := reporting.ParseDay(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be formatted as YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}
