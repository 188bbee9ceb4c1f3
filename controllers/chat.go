package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"salonflow-backend/config"
	"salonflow-backend/models"
	"salonflow-backend/services"
	"salonflow-backend/utils"
)

// ChatController serves the public web chat widget.
type ChatController struct {
	Messaging *services.MessagingService
}

func newSessionToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "web_fallback"
	}
	return "web_" + hex.EncodeToString(buf)
}

func (ctl *ChatController) CreateSession(c *gin.Context) {
	session := models.ChatSession{
		SessionToken: newSessionToken(),
		Channel:      "web",
		Messages:     []byte("[]"),
	}
	if err := config.DB.Create(&session).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_token": session.SessionToken,
		"channel":       session.Channel,
	})
}

func (ctl *ChatController) History(c *gin.Context) {
	token := c.Param("token")
	var session models.ChatSession
	if err := config.DB.Where("session_token = ?", token).First(&session).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_token": session.SessionToken,
		"channel":       session.Channel,
		"messages":      session.Messages,
	})
}

type ChatMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (ctl *ChatController) Message(c *gin.Context) {
	var input ChatMessageRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	reply, err := ctl.Messaging.WebChat(c.Request.Context(), c.Param("token"), input.Message)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (ctl *ChatController) EndSession(c *gin.Context) {
	res := config.DB.Where("session_token = ?", c.Param("token")).Delete(&models.ChatSession{})
	if res.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to end session")
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session ended"})
}
