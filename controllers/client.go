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

type ClientController struct {
	Clients   *services.ClientService
	Messaging *services.MessagingService
}

type CreateClientRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	Email       string `json:"email"`
	Notes       string `json:"notes"`
	GdprConsent bool   `json:"gdpr_consent"`
}

type UpdateClientRequest struct {
	FullName    *string `json:"full_name"`
	Email       *string `json:"email"`
	Notes       *string `json:"notes"`
	GdprConsent *bool   `json:"gdpr_consent"`
	HairProfile *map[string]interface{} `json:"hair_profile"`
}

func (ctl *ClientController) Create(c *gin.Context) {
	var input CreateClientRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	client, err := ctl.Clients.Create(c.Request.Context(), services.CreateClientInput{
		FullName:    input.FullName,
		Phone:       input.Phone,
		Email:       input.Email,
		Notes:       input.Notes,
		GdprConsent: input.GdprConsent,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (ctl *ClientController) List(c *gin.Context) {
	search := c.Query("search")
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := config.DB.Model(&models.Client{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("full_name LIKE ? OR phone LIKE ? OR email LIKE ?", like, like, like)
	}

	var clients []models.Client
	if err := q.Order("full_name").Offset(skip).Limit(limit).Find(&clients).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve clients")
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (ctl *ClientController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	client, err := ctl.Clients.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (ctl *ClientController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input UpdateClientRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	client, err := ctl.Clients.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	updates := map[string]interface{}{}
	if input.FullName != nil {
		updates["full_name"] = *input.FullName
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.GdprConsent != nil {
		updates["gdpr_consent"] = *input.GdprConsent
	}
	if input.HairProfile != nil {
		updates["hair_profile"] = toJSON(*input.HairProfile)
	}
	if len(updates) > 0 {
		if err := config.DB.Model(client).Updates(updates).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update client")
			return
		}
	}
	c.JSON(http.StatusOK, client)
}

// Timeline returns the client's profile with recent appointments and
// messages for the detail view.
func (ctl *ClientController) Timeline(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	client, err := ctl.Clients.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var appointments []models.Appointment
	if err := config.DB.Where("client_id = ?", id).
		Order("start_datetime desc").
		Limit(20).
		Find(&appointments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}

	messages, err := ctl.Messaging.History(c.Request.Context(), id, 30)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client":       client,
		"appointments": appointments,
		"sms_messages": messages,
	})
}

func (ctl *ClientController) ListLapsed(c *gin.Context) {
	clients, err := ctl.Clients.LapsedClients(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve lapsed clients")
		return
	}
	c.JSON(http.StatusOK, clients)
}

// SendOutreach sends the AI re-engagement message to a lapsed client.
func (ctl *ClientController) SendOutreach(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	body, err := ctl.Clients.SendLapsedOutreach(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Outreach sent", "body": body})
}

type WaitlistRequest struct {
	ClientID         string     `json:"client_id" binding:"required"`
	DesiredService   string     `json:"desired_service" binding:"required"`
	DesiredDateFrom  *time.Time `json:"desired_date_from"`
	DesiredDateTo    *time.Time `json:"desired_date_to"`
	FlexibilityNotes string     `json:"flexibility_notes"`
}

func (ctl *ClientController) AddToWaitlist(c *gin.Context) {
	var input WaitlistRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	clientID, err := parseUUID(input.ClientID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid client_id format")
		return
	}

	entry, err := ctl.Clients.AddToWaitlist(c.Request.Context(), clientID, input.DesiredService,
		input.DesiredDateFrom, input.DesiredDateTo, input.FlexibilityNotes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (ctl *ClientController) ListWaitlist(c *gin.Context) {
	entries, err := ctl.Clients.Waitlist(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve waitlist")
		return
	}
	c.JSON(http.StatusOK, entries)
}
