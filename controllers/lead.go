package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"salonflow-backend/config"
	"salonflow-backend/models"
	"salonflow-backend/services"
	"salonflow-backend/utils"
)

type LeadController struct {
	Leads *services.LeadService
}

type CreateLeadRequest struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Email         string `json:"email"`
	Source        string `json:"source"`
	HairLength    string `json:"hair_length"`
	HairTexture   string `json:"hair_texture"`
	DesiredLength string `json:"desired_length"`
	DesiredColor  string `json:"desired_color"`
	ExtensionType string `json:"extension_type"`
	BudgetRange   string `json:"budget_range"`
	Timeline      string `json:"timeline"`
	Notes         string `json:"notes"`
}

func (ctl *LeadController) Create(c *gin.Context) {
	var input CreateLeadRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	lead, err := ctl.Leads.Create(c.Request.Context(), services.CreateLeadInput{
		Name:          input.Name,
		Phone:         input.Phone,
		Email:         input.Email,
		Source:        input.Source,
		HairLength:    input.HairLength,
		HairTexture:   input.HairTexture,
		DesiredLength: input.DesiredLength,
		DesiredColor:  input.DesiredColor,
		ExtensionType: input.ExtensionType,
		BudgetRange:   input.BudgetRange,
		Timeline:      input.Timeline,
		Notes:         input.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (ctl *LeadController) List(c *gin.Context) {
	q := config.DB.Model(&models.ExtensionLead{})
	if stage := c.Query("stage"); stage != "" {
		q = q.Where("pipeline_stage = ?", stage)
	}
	if tier := c.Query("tier"); tier != "" {
		q = q.Where("qualification_tier = ?", tier)
	}

	var leads []models.ExtensionLead
	if err := q.Order("created_at desc").Limit(200).Find(&leads).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve leads")
		return
	}
	c.JSON(http.StatusOK, leads)
}

func (ctl *LeadController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	lead, err := ctl.Leads.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (ctl *LeadController) SetStage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		Stage string `json:"stage" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if err := ctl.Leads.SetStage(c.Request.Context(), id, models.PipelineStage(input.Stage)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stage updated"})
}

func (ctl *LeadController) Qualify(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	qualification, err := ctl.Leads.Qualify(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, qualification)
}

// GenerateQuote streams the drafted quote as server-sent events and persists
// the full text once the stream completes.
func (ctl *LeadController) GenerateQuote(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	_, err := ctl.Leads.GenerateQuote(c.Request.Context(), id, func(chunk string) error {
		payload, err := json.Marshal(gin.H{"type": "text", "content": chunk})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		payload, _ := json.Marshal(gin.H{"type": "error", "message": err.Error()})
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		c.Writer.Flush()
		return
	}

	fmt.Fprint(c.Writer, "data: {\"type\": \"done\"}\n\n")
	c.Writer.Flush()
}

type SendQuoteRequest struct {
	QuoteText   string   `json:"quote_text" binding:"required"`
	QuoteAmount *float64 `json:"quote_amount"`
}

func (ctl *LeadController) SendQuote(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input SendQuoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if err := ctl.Leads.SendQuote(c.Request.Context(), id, input.QuoteText, input.QuoteAmount); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quote sent"})
}

func (ctl *LeadController) SendFollowUp(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	body, err := ctl.Leads.SendFollowUp(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Follow-up sent", "body": body})
}

func (ctl *LeadController) PipelineSummary(c *gin.Context) {
	summary, err := ctl.Leads.PipelineSummary(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute pipeline summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (ctl *LeadController) OverdueFollowUps(c *gin.Context) {
	leads, err := ctl.Leads.OverdueFollowUps(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve overdue follow-ups")
		return
	}
	c.JSON(http.StatusOK, leads)
}
