package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Client struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`

	FullName string `gorm:"not null"`
	Phone    string `gorm:"not null;uniqueIndex"` // E.164, normalized
	Email    string
	Notes    string `gorm:"type:text"`

	HairProfile datatypes.JSON
	GdprConsent bool `gorm:"default:false"`

	FirstVisitDate *time.Time `gorm:"type:date"`
	LastVisitDate  *time.Time `gorm:"type:date"`
	TotalVisits    int        `gorm:"default:0"`
	TotalSpent     float64    `gorm:"type:decimal(10,2);default:0.0"`
	IsLapsed       bool       `gorm:"default:false;index"`

	Appointments    []Appointment    `gorm:"foreignKey:ClientID"`
	WaitlistEntries []WaitlistEntry  `gorm:"foreignKey:ClientID"`

	gorm.Model
}

func (c *Client) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// FirstName returns the client's given name for message templates.
func (c *Client) FirstName() string {
	for i := 0; i < len(c.FullName); i++ {
		if c.FullName[i] == ' ' {
			return c.FullName[:i]
		}
	}
	return c.FullName
}

type WaitlistStatus string

const (
	WaitlistWaiting WaitlistStatus = "waiting"
	WaitlistOffered WaitlistStatus = "offered"
	WaitlistBooked  WaitlistStatus = "booked"
	WaitlistExpired WaitlistStatus = "expired"
)

type WaitlistEntry struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	ClientID uuid.UUID `gorm:"type:uuid;index;not null"`

	DesiredService   string `gorm:"not null"`
	DesiredDateFrom  *time.Time `gorm:"type:date"`
	DesiredDateTo    *time.Time `gorm:"type:date"`
	FlexibilityNotes string `gorm:"type:text"`

	Status     WaitlistStatus `gorm:"type:varchar(20);default:'waiting';index"`
	NotifiedAt *time.Time

	CreatedAt time.Time

	Client Client `gorm:"foreignKey:ClientID"`
}

func (w *WaitlistEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return
}
