package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AftercareSequence tracks the two scheduled check-ins (day-3, week-2) for
// one completed appointment. Created exactly once, when the appointment
// transitions to completed. D3SentAt/W2SentAt are the idempotency witnesses
// for the aftercare sweep.
type AftercareSequence struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	AppointmentID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	ClientID      uuid.UUID `gorm:"type:uuid;index;not null"`

	D3SentAt   *time.Time
	D3Response string     `gorm:"type:text"`
	D3SmsID    *uuid.UUID `gorm:"type:uuid"`

	W2SentAt   *time.Time
	W2Response string     `gorm:"type:text"`
	W2SmsID    *uuid.UUID `gorm:"type:uuid"`

	UpsellOfferSent bool   `gorm:"default:false"`
	UpsellOfferType string `gorm:"size:60"`
	UpsellConverted bool   `gorm:"default:false"`

	CreatedAt time.Time

	Appointment Appointment `gorm:"foreignKey:AppointmentID"`
}

func (s *AftercareSequence) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
