package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"salonflow-backend/config"
	"salonflow-backend/models"
	"salonflow-backend/services"
	"salonflow-backend/utils"
)

type AppointmentController struct {
	Appointments *services.AppointmentService
	Settings     *config.Settings
}

type CreateAppointmentRequest struct {
	ClientID        string    `json:"client_id" binding:"required"`
	ServiceType     string    `json:"service_type" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required"`
	Price           float64   `json:"price"`
	StartDatetime   time.Time `json:"start_datetime" binding:"required"`
	Notes           string    `json:"notes"`
	DepositPaid     bool      `json:"deposit_paid"`
	DepositAmount   float64   `json:"deposit_amount"`
}

type UpdateAppointmentRequest struct {
	ServiceType     *string    `json:"service_type"`
	DurationMinutes *int       `json:"duration_minutes"`
	Price           *float64   `json:"price"`
	StartDatetime   *time.Time `json:"start_datetime"`
	Notes           *string    `json:"notes"`
	DepositPaid     *bool      `json:"deposit_paid"`
	DepositAmount   *float64   `json:"deposit_amount"`
}

func (ctl *AppointmentController) Create(c *gin.Context) {
	var input CreateAppointmentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	clientID, err := parseUUID(input.ClientID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid client_id format")
		return
	}

	appt, err := ctl.Appointments.Create(c.Request.Context(), services.CreateAppointmentInput{
		ClientID:        clientID,
		ServiceType:     input.ServiceType,
		DurationMinutes: input.DurationMinutes,
		Price:           input.Price,
		StartDatetime:   input.StartDatetime,
		Notes:           input.Notes,
		DepositPaid:     input.DepositPaid,
		DepositAmount:   input.DepositAmount,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// Today lists appointments in the salon's local day.
func (ctl *AppointmentController) Today(c *gin.Context) {
	start, end := utils.DayWindow(time.Now().In(ctl.Settings.Timezone), 0)

	var appts []models.Appointment
	if err := config.DB.Preload("Client").
		Where("start_datetime >= ? AND start_datetime < ?", start, end).
		Order("start_datetime asc").
		Find(&appts).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}
	c.JSON(http.StatusOK, appts)
}

func (ctl *AppointmentController) Upcoming(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days <= 0 || days > 90 {
		days = 7
	}
	now := time.Now()

	var appts []models.Appointment
	if err := config.DB.Preload("Client").
		Where("status = ? AND start_datetime >= ? AND start_datetime <= ?",
			models.AppointmentScheduled, now, now.AddDate(0, 0, days)).
		Order("start_datetime asc").
		Find(&appts).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}
	c.JSON(http.StatusOK, appts)
}

func (ctl *AppointmentController) List(c *gin.Context) {
	q := config.DB.Preload("Client")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			q = q.Where("start_datetime >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			q = q.Where("start_datetime <= ?", t)
		}
	}

	var appts []models.Appointment
	if err := q.Order("start_datetime desc").Limit(200).Find(&appts).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}
	c.JSON(http.StatusOK, appts)
}

func (ctl *AppointmentController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var appt models.Appointment
	if err := config.DB.Preload("Client").First(&appt, "id = ?", id).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Appointment not found")
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (ctl *AppointmentController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	appt, err := ctl.Appointments.Update(c.Request.Context(), id, services.UpdateAppointmentInput{
		ServiceType:     input.ServiceType,
		DurationMinutes: input.DurationMinutes,
		Price:           input.Price,
		StartDatetime:   input.StartDatetime,
		Notes:           input.Notes,
		DepositPaid:     input.DepositPaid,
		DepositAmount:   input.DepositAmount,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (ctl *AppointmentController) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&input)

	if err := ctl.Appointments.Cancel(c.Request.Context(), id, input.Reason); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled"})
}

func (ctl *AppointmentController) Complete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.Appointments.Complete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment completed"})
}

func (ctl *AppointmentController) NoShow(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.Appointments.MarkNoShow(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment marked as no-show"})
}

// Sync reconciles upcoming appointments against the external calendar.
func (ctl *AppointmentController) Sync(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "14"))
	if days <= 0 || days > 90 {
		days = 14
	}
	result, err := ctl.Appointments.SyncCalendar(c.Request.Context(), days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ctl *AppointmentController) ResolveReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.Appointments.ResolveReview(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment restored to scheduled"})
}
