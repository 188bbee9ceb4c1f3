package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"salonflow-backend/config"
	"salonflow-backend/models"
	"salonflow-backend/services"
)

type webhookSender struct {
	validSignature bool
	sent           []string
}

func (s *webhookSender) Send(to, body string) (string, error) {
	s.sent = append(s.sent, body)
	return "SM0001", nil
}

func (s *webhookSender) IsConfigured() bool { return true }

func (s *webhookSender) ValidateSignature(string, map[string]string, string) bool {
	return s.validSignature
}

func webhookTestRouter(t *testing.T, sender services.Sender) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Client{}, &models.SmsMessage{}, &models.ChatSession{}))

	settings := &config.Settings{
		SalonName:   "Luxe Lengths",
		StylistName: "Dana",
		BookingLink: "https://book.example.com",
		Timezone:    time.UTC,
	}
	narrator := services.NewTemplateNarrator(settings.StylistName, settings.SalonName)
	clients := services.NewClientService(db, sender, narrator, settings)
	messaging := services.NewMessagingService(db, sender, narrator, clients, settings)
	ctl := &SmsController{Messaging: messaging, Sender: sender}

	r := gin.New()
	r.POST("/api/sms/webhook", ctl.Webhook)
	return r, db
}

func postWebhook(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sms/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "sig")
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsInvalidSignatureBeforeAnyWrite(t *testing.T) {
	sender := &webhookSender{validSignature: false}
	router, db := webhookTestRouter(t, sender)

	w := postWebhook(router, url.Values{"From": {"+15550000001"}, "Body": {"HELP"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Nothing was logged and nothing was sent.
	var count int64
	db.Model(&models.SmsMessage{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, sender.sent)
}

func TestWebhookRequiresFromNumber(t *testing.T) {
	sender := &webhookSender{validSignature: true}
	router, _ := webhookTestRouter(t, sender)

	w := postWebhook(router, url.Values{"Body": {"HELP"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookProcessesMessageAndReturnsEmptyTwiML(t *testing.T) {
	sender := &webhookSender{validSignature: true}
	router, db := webhookTestRouter(t, sender)

	w := postWebhook(router, url.Values{"From": {"+15550000001"}, "Body": {"HELP"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	assert.Equal(t, emptyTwiML, w.Body.String())

	// One inbound row and one auto-reply row.
	var count int64
	db.Model(&models.SmsMessage{}).Count(&count)
	assert.Equal(t, int64(2), count)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Dana's assistant")
}
