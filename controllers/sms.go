package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"salonflow-backend/services"
	"salonflow-backend/utils"
)

type SmsController struct {
	Messaging *services.MessagingService
	Sender    services.Sender
}

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// Webhook receives inbound messages from Twilio. The signature is verified
// before anything is read or written; replies go out via the REST API, so
// the TwiML response stays empty.
func (ctl *SmsController) Webhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Malformed form body")
		return
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for key := range c.Request.PostForm {
		params[key] = c.Request.PostForm.Get(key)
	}

	scheme := "https"
	if c.Request.TLS == nil && c.GetHeader("X-Forwarded-Proto") == "" {
		scheme = "http"
	}
	url := scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
	signature := c.GetHeader("X-Twilio-Signature")
	if !ctl.Sender.ValidateSignature(url, params, signature) {
		utils.RespondWithError(c, http.StatusForbidden, "Invalid Twilio signature")
		return
	}

	from := params["From"]
	body := params["Body"]
	if from == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing From parameter")
		return
	}

	if err := ctl.Messaging.ProcessInbound(c.Request.Context(), from, body); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/xml", []byte(emptyTwiML))
}

type SendSmsRequest struct {
	To          string  `json:"to" binding:"required"`
	Body        string  `json:"body" binding:"required"`
	MessageType string  `json:"message_type"`
	ClientID    *string `json:"client_id"`
	LeadID      *string `json:"lead_id"`
}

// Send is the internal endpoint for one-off outbound messages.
func (ctl *SmsController) Send(c *gin.Context) {
	var input SendSmsRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var clientID, leadID *uuid.UUID
	if input.ClientID != nil {
		id, err := uuid.Parse(*input.ClientID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid client_id format")
			return
		}
		clientID = &id
	}
	if input.LeadID != nil {
		id, err := uuid.Parse(*input.LeadID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid lead_id format")
			return
		}
		leadID = &id
	}

	msg, err := ctl.Messaging.SendManual(c.Request.Context(), input.To, input.Body, input.MessageType, clientID, leadID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "SMS sent", "sid": msg.ProviderSID})
}

// History lists a client's recent messages, newest first.
func (ctl *SmsController) History(c *gin.Context) {
	id, ok := parseIDParam(c, "clientId")
	if !ok {
		return
	}
	msgs, err := ctl.Messaging.History(c.Request.Context(), id, 50)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}
