package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salonflow-backend/config"
	"salonflow-backend/models"
	"salonflow-backend/services"
	"salonflow-backend/utils"
)

type AftercareController struct {
	Aftercare *services.AftercareService
}

// List returns recent aftercare sequences with their appointment context.
func (ctl *AftercareController) List(c *gin.Context) {
	type row struct {
		models.AftercareSequence
		ServiceType string `json:"service_type"`
		FullName    string `json:"full_name"`
	}
	var rows []row
	err := config.DB.
		Table("aftercare_sequences AS s").
		Select("s.*, a.service_type, c.full_name").
		Joins("JOIN appointments a ON a.id = s.appointment_id").
		Joins("JOIN clients c ON c.id = s.client_id").
		Where("a.deleted_at IS NULL AND c.deleted_at IS NULL").
		Order("s.created_at desc").
		Limit(100).
		Scan(&rows).Error
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve sequences")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Pending returns the check-ins currently due, split by stage.
func (ctl *AftercareController) Pending(c *gin.Context) {
	d3, err := ctl.Aftercare.DueD3(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute due check-ins")
		return
	}
	w2, err := ctl.Aftercare.DueW2(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute due check-ins")
		return
	}
	c.JSON(http.StatusOK, gin.H{"d3_due": d3, "w2_due": w2})
}

func (ctl *AftercareController) SendD3(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	body, err := ctl.Aftercare.SendD3(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Day-3 check-in sent", "body": body})
}

func (ctl *AftercareController) SendW2(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	body, err := ctl.Aftercare.SendW2(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Week-2 check-in sent", "body": body})
}

type AftercareResponseRequest struct {
	ResponseType string `json:"response_type" binding:"required"` // d3 or w2
	Text         string `json:"text" binding:"required"`
}

func (ctl *AftercareController) RecordResponse(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input AftercareResponseRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if err := ctl.Aftercare.RecordResponse(c.Request.Context(), id, input.ResponseType, input.Text); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Response recorded"})
}

func (ctl *AftercareController) MarkUpsellConverted(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.Aftercare.MarkUpsellConverted(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Upsell marked converted"})
}
