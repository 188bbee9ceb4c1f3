package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"salonflow-backend/config"
	"salonflow-backend/models"
	"salonflow-backend/services"
	"salonflow-backend/utils"
)

type DashboardController struct {
	Inventory *services.InventoryService
	Aftercare *services.AftercareService
	Leads     *services.LeadService
	Reports   *services.ReportService
}

type alert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // info/warning/error
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Link     string `json:"link"`
	Count    int    `json:"count,omitempty"`
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// Alerts is the aggregated attention panel: low stock, lapsed clients,
// overdue follow-ups, due aftercare, calendar conflicts, recent no-shows.
func (ctl *DashboardController) Alerts(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()
	alerts := []alert{}

	lowStock, err := ctl.Inventory.StockAlerts(ctx)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build alerts")
		return
	}
	for _, item := range lowStock {
		alerts = append(alerts, alert{
			Type:     "low_stock",
			Severity: "warning",
			Title:    "Low stock: " + item.Name,
			Detail:   fmt.Sprintf("%g %s remaining (threshold: %g)", item.CurrentStock, item.StockUnit, item.ReorderThreshold),
			Link:     "/inventory",
		})
	}

	var lapsedCount int64
	if err := config.DB.Model(&models.Client{}).Where("is_lapsed = ?", true).Count(&lapsedCount).Error; err == nil && lapsedCount > 0 {
		alerts = append(alerts, alert{
			Type:     "lapsed_clients",
			Severity: "info",
			Title:    fmt.Sprintf("%d lapsed client%s", lapsedCount, plural(int(lapsedCount))),
			Detail:   "Haven't visited in 90+ days - consider sending outreach",
			Link:     "/clients?filter=lapsed",
			Count:    int(lapsedCount),
		})
	}

	overdue, err := ctl.Leads.OverdueFollowUps(ctx)
	if err == nil && len(overdue) > 0 {
		alerts = append(alerts, alert{
			Type:     "lead_followup",
			Severity: "warning",
			Title:    fmt.Sprintf("%d lead follow-up%s due", len(overdue), plural(len(overdue))),
			Detail:   "Leads awaiting your follow-up contact",
			Link:     "/leads",
			Count:    len(overdue),
		})
	}

	if d3, err := ctl.Aftercare.DueD3(ctx); err == nil && len(d3) > 0 {
		alerts = append(alerts, alert{
			Type:     "aftercare_d3",
			Severity: "info",
			Title:    fmt.Sprintf("%d day-3 aftercare due", len(d3)),
			Detail:   "Clients who had appointments 3+ days ago haven't received their check-in",
			Link:     "/aftercare",
			Count:    len(d3),
		})
	}
	if w2, err := ctl.Aftercare.DueW2(ctx); err == nil && len(w2) > 0 {
		alerts = append(alerts, alert{
			Type:     "aftercare_w2",
			Severity: "info",
			Title:    fmt.Sprintf("%d week-2 aftercare due", len(w2)),
			Detail:   "Clients due for their 2-week follow-up and upsell message",
			Link:     "/aftercare",
			Count:    len(w2),
		})
	}

	var conflicts int64
	if err := config.DB.Model(&models.Appointment{}).
		Where("status = ?", models.AppointmentNeedsReview).
		Count(&conflicts).Error; err == nil && conflicts > 0 {
		alerts = append(alerts, alert{
			Type:     "calendar_conflict",
			Severity: "error",
			Title:    fmt.Sprintf("%d calendar conflict%s", conflicts, plural(int(conflicts))),
			Detail:   "Appointments that drifted from the external calendar need review",
			Link:     "/appointments",
			Count:    int(conflicts),
		})
	}

	var noShows int64
	if err := config.DB.Model(&models.Appointment{}).
		Where("status = ? AND start_datetime >= ?", models.AppointmentNoShow, now.AddDate(0, 0, -7)).
		Count(&noShows).Error; err == nil && noShows > 0 {
		alerts = append(alerts, alert{
			Type:     "no_show",
			Severity: "warning",
			Title:    fmt.Sprintf("%d recent no-show%s", noShows, plural(int(noShows))),
			Detail:   "Consider sending re-engagement messages",
			Link:     "/appointments?status=no_show",
			Count:    int(noShows),
		})
	}

	hasErrors := false
	for _, a := range alerts {
		if a.Severity == "error" {
			hasErrors = true
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts":     alerts,
		"total":      len(alerts),
		"has_errors": hasErrors,
	})
}

// Stats returns the real-time KPI numbers.
func (ctl *DashboardController) Stats(c *gin.Context) {
	stats, err := ctl.Reports.DashboardStats(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
