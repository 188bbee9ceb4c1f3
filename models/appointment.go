package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	AppointmentScheduled   AppointmentStatus = "scheduled"
	AppointmentCompleted   AppointmentStatus = "completed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentNoShow      AppointmentStatus = "no_show"
	AppointmentNeedsReview AppointmentStatus = "needs_review" // calendar sync discrepancy, recoverable
)

type Appointment struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	ClientID uuid.UUID `gorm:"type:uuid;index;not null"`

	ServiceType     string  `gorm:"not null"`
	DurationMinutes int     `gorm:"not null"`
	Price           float64 `gorm:"type:decimal(8,2);not null"`

	Status        AppointmentStatus `gorm:"type:varchar(20);default:'scheduled';index"`
	StartDatetime time.Time         `gorm:"not null;index"`
	EndDatetime   time.Time         `gorm:"not null"`

	CalendarEventID    string `gorm:"size:255"`
	Notes              string `gorm:"type:text"`
	DepositPaid        bool   `gorm:"default:false"`
	DepositAmount      float64 `gorm:"type:decimal(8,2);default:0.0"`
	CancellationReason string `gorm:"type:text"`

	Client Client `gorm:"foreignKey:ClientID"`

	gorm.Model
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
