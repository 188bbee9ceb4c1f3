package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"salonflow-backend/config"
	"salonflow-backend/models"
)

// Twilio caps message bodies at 1600 characters.
const maxSmsBody = 1600

// Transcripts keep only the newest turns so the AI context stays bounded.
const transcriptLimit = 20

// MessagingService handles inbound SMS routing, manual sends and history.
type MessagingService struct {
	db       *gorm.DB
	sender   Sender
	narrator Narrator
	clients  *ClientService
	settings *config.Settings
	log      zerolog.Logger
}

func NewMessagingService(db *gorm.DB, sender Sender, narrator Narrator, clients *ClientService, settings *config.Settings) *MessagingService {
	return &MessagingService{
		db:       db,
		sender:   sender,
		narrator: narrator,
		clients:  clients,
		settings: settings,
		log:      log.With().Str("component", "messaging").Logger(),
	}
}

// ProcessInbound logs an incoming message, routes it through the keyword
// handlers or the AI assistant, sends exactly one reply and logs it. The
// caller must validate the webhook signature before calling; this method
// assumes the message is authentic.
func (s *MessagingService) ProcessInbound(ctx context.Context, from, body string) error {
	from = strings.TrimSpace(from)
	body = strings.TrimSpace(body)

	client, err := s.clients.FindByPhone(ctx, from)
	if err != nil {
		return err
	}
	var clientID *uuid.UUID
	if client != nil {
		clientID = &client.ID
	}

	inbound := models.SmsMessage{
		ClientID:    clientID,
		PhoneNumber: from,
		Direction:   models.DirectionInbound,
		Body:        body,
		Status:      models.SmsStatusReceived,
		MessageType: models.MessageTypeInbound,
	}
	if err := s.db.WithContext(ctx).Create(&inbound).Error; err != nil {
		return err
	}

	reply, err := s.routeInbound(ctx, clientID, from, body)
	if err != nil {
		return err
	}
	if reply == "" {
		return nil
	}
	if len(reply) > maxSmsBody {
		reply = reply[:maxSmsBody]
	}

	sid, err := s.sender.Send(from, reply)
	status := models.SmsStatusSent
	if err != nil {
		s.log.Error().Err(err).Str("to", from).Msg("Auto-reply send failed")
		status = models.SmsStatusFailed
	}
	return s.db.WithContext(ctx).Create(&models.SmsMessage{
		ClientID:    clientID,
		PhoneNumber: from,
		Direction:   models.DirectionOutbound,
		Body:        reply,
		ProviderSID: sid,
		Status:      status,
		MessageType: models.MessageTypeAutoReply,
	}).Error
}

func (s *MessagingService) routeInbound(ctx context.Context, clientID *uuid.UUID, from, body string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(body)) {
	case "CANCEL", "STOP", "UNSUBSCRIBE":
		return fmt.Sprintf("Got it! To cancel your appointment, please call or text %s directly. Reply HELP for more options.",
			s.settings.StylistName), nil
	case "BOOK", "REBOOK", "SCHEDULE":
		link := s.settings.BookingLink
		if link == "" {
			link = fmt.Sprintf("Contact %s to book", s.settings.StylistName)
		}
		return fmt.Sprintf("Hi! To book an appointment: %s\nOr reply with your preferred date and I'll check availability for you!", link), nil
	case "HELP":
		return fmt.Sprintf("Hi! I'm %s's assistant for %s.\nReply: BOOK to schedule • CANCEL to cancel • or ask me anything about services & pricing!",
			s.settings.StylistName, s.settings.SalonName), nil
	}
	return s.chatReply(ctx, clientID, from, body)
}

// chatReply runs one AI turn against the phone number's stored transcript.
// The transcript is truncated to the newest turns after each exchange.
func (s *MessagingService) chatReply(ctx context.Context, clientID *uuid.UUID, from, body string) (string, error) {
	token := "sms_" + strings.ReplaceAll(from, "+", "")

	var session models.ChatSession
	err := s.db.WithContext(ctx).Where("session_token = ?", token).First(&session).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return "", err
		}
		session = models.ChatSession{
			SessionToken: token,
			ClientID:     clientID,
			Channel:      "sms",
			Messages:     []byte("[]"),
		}
		if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
			return "", err
		}
	}

	var transcript []ChatTurn
	if len(session.Messages) > 0 {
		if err := json.Unmarshal(session.Messages, &transcript); err != nil {
			s.log.Warn().Err(err).Str("session", token).Msg("Discarding unreadable transcript")
			transcript = nil
		}
	}
	transcript = append(transcript, ChatTurn{Role: "user", Content: body})

	reply, err := s.narrator.ChatReply(ctx, transcript)
	if err != nil {
		s.log.Error().Err(err).Str("session", token).Msg("AI reply failed, using fallback")
		reply, _ = NewTemplateNarrator(s.settings.StylistName, s.settings.SalonName).ChatReply(ctx, transcript)
	}
	transcript = append(transcript, ChatTurn{Role: "assistant", Content: reply})

	if len(transcript) > transcriptLimit {
		transcript = transcript[len(transcript)-transcriptLimit:]
	}
	raw, err := json.Marshal(transcript)
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Model(&session).Update("messages", raw).Error; err != nil {
		return "", err
	}
	return reply, nil
}

// SendManual sends a one-off message and logs it.
func (s *MessagingService) SendManual(ctx context.Context, to, body, messageType string, clientID, leadID *uuid.UUID) (*models.SmsMessage, error) {
	if messageType == "" {
		messageType = models.MessageTypeManual
	}
	sid, err := s.sender.Send(to, body)
	status := models.SmsStatusSent
	if err != nil {
		status = models.SmsStatusFailed
	}
	msg := models.SmsMessage{
		ClientID:    clientID,
		LeadID:      leadID,
		PhoneNumber: to,
		Direction:   models.DirectionOutbound,
		Body:        body,
		ProviderSID: sid,
		Status:      status,
		MessageType: messageType,
	}
	if dbErr := s.db.WithContext(ctx).Create(&msg).Error; dbErr != nil {
		return nil, dbErr
	}
	if err != nil {
		return &msg, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return &msg, nil
}

// History returns a client's most recent messages, newest first.
func (s *MessagingService) History(ctx context.Context, clientID uuid.UUID, limit int) ([]models.SmsMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var msgs []models.SmsMessage
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at desc").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// WebChat runs one AI turn for the web widget, keyed by an arbitrary
// session token supplied by the frontend.
func (s *MessagingService) WebChat(ctx context.Context, token, message string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", &ValidationError{Field: "session_token", Reason: "is required"}
	}

	var session models.ChatSession
	err := s.db.WithContext(ctx).Where("session_token = ?", token).First(&session).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return "", err
		}
		session = models.ChatSession{SessionToken: token, Channel: "web", Messages: []byte("[]")}
		if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
			return "", err
		}
	}

	var transcript []ChatTurn
	if len(session.Messages) > 0 {
		_ = json.Unmarshal(session.Messages, &transcript)
	}
	transcript = append(transcript, ChatTurn{Role: "user", Content: message})

	reply, err := s.narrator.ChatReply(ctx, transcript)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	transcript = append(transcript, ChatTurn{Role: "assistant", Content: reply})
	if len(transcript) > transcriptLimit {
		transcript = transcript[len(transcript)-transcriptLimit:]
	}
	raw, _ := json.Marshal(transcript)
	if err := s.db.WithContext(ctx).Model(&session).Updates(map[string]interface{}{
		"messages":   raw,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return "", err
	}
	return reply, nil
}
