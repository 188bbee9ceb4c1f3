package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"salonflow-backend/config"
	"salonflow-backend/services"
	"salonflow-backend/utils"
)

type CalendarController struct {
	Calendar services.Calendar
	Settings *config.Settings
}

// Status reports whether an external calendar is connected.
func (ctl *CalendarController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected": ctl.Calendar.IsConfigured(),
	})
}

// Slots returns open times for a given day and duration.
func (ctl *CalendarController) Slots(c *gin.Context) {
	dateStr := c.Query("date")
	day, err := time.ParseInLocation("2006-01-02", dateStr, ctl.Settings.Timezone)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}
	duration, _ := strconv.Atoi(c.DefaultQuery("duration", "60"))
	if duration <= 0 || duration > 12*60 {
		duration = 60
	}

	if !ctl.Calendar.IsConfigured() {
		c.JSON(http.StatusOK, gin.H{"date": dateStr, "slots": []time.Time{}, "connected": false})
		return
	}

	slots, err := ctl.Calendar.AvailableSlots(c.Request.Context(), day, duration)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": dateStr, "slots": slots, "connected": true})
}
