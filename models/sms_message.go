package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message type tags. The outreach log is the system's history; the
// idempotency witness for aftercare lives on AftercareSequence, but the log
// and the sequence fields must always agree.
const (
	MessageTypeReminder        = "reminder"
	MessageTypeAftercareD3     = "aftercare_d3"
	MessageTypeAftercareW2     = "aftercare_w2"
	MessageTypeQuote           = "quote"
	MessageTypeFollowUp        = "follow_up"
	MessageTypeLapsedOutreach  = "lapsed_outreach"
	MessageTypeWaitlistOffer   = "waitlist_notification"
	MessageTypeAutoReply       = "auto_reply"
	MessageTypeInbound         = "inbound"
	MessageTypeManual          = "manual"
)

const (
	SmsStatusSent     = "sent"
	SmsStatusFailed   = "failed"
	SmsStatusReceived = "received"
)

// SmsMessage is the append-only outreach log. Rows are immutable once
// created.
type SmsMessage struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	ClientID      *uuid.UUID `gorm:"type:uuid;index"`
	LeadID        *uuid.UUID `gorm:"type:uuid;index"`
	AppointmentID *uuid.UUID `gorm:"type:uuid;index"`

	PhoneNumber string `gorm:"size:20;not null;index"`
	Direction   string `gorm:"size:10;not null"`
	Body        string `gorm:"type:text;not null"`
	ProviderSID string `gorm:"size:64"`
	Status      string `gorm:"size:20;default:'sent'"`
	MessageType string `gorm:"size:40"`

	CreatedAt time.Time
}

func (m *SmsMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}

// ChatSession holds an AI conversation transcript, keyed by session token.
// SMS sessions use the token "sms_<digits>". The transcript is read from and
// written back to storage on every turn; it is never held in memory between
// requests.
type ChatSession struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key"`
	SessionToken string     `gorm:"size:64;uniqueIndex;not null"`
	ClientID     *uuid.UUID `gorm:"type:uuid;index"`
	Channel      string     `gorm:"size:20;default:'web'"` // web/sms
	Messages     datatypes.JSON

	gorm.Model
}

func (s *ChatSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
