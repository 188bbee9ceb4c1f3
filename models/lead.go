package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PipelineStage string

const (
	StageNew       PipelineStage = "new"
	StageContacted PipelineStage = "contacted" // manual-only, never set by automation
	StageQualified PipelineStage = "qualified"
	StageQuoted    PipelineStage = "quoted"
	StageFollowUp  PipelineStage = "follow_up"
	StageBooked    PipelineStage = "booked"
	StageLost      PipelineStage = "lost"
)

// Terminal stages are set by explicit operator decision and make the lead
// invisible to the overdue-follow-up sweep.
func (s PipelineStage) Terminal() bool {
	return s == StageBooked || s == StageLost
}

type ExtensionLead struct {
	ID       uuid.UUID  `gorm:"type:uuid;primary_key"`
	ClientID *uuid.UUID `gorm:"type:uuid;index"` // set once the lead becomes a client

	Name   string `gorm:"not null"`
	Phone  string `gorm:"not null"`
	Email  string
	Source string `gorm:"size:60"` // instagram/referral/walk-in/website

	// Hair profile
	HairLength    string `gorm:"size:30"` // short/medium/long/extra-long
	HairTexture   string `gorm:"size:30"`
	DesiredLength string `gorm:"size:30"`
	DesiredColor  string `gorm:"size:60"`
	ExtensionType string `gorm:"size:60"` // tape-in/weft/nano/keratin
	BudgetRange   string `gorm:"size:40"`
	Timeline      string `gorm:"size:40"`

	// AI qualification
	QualificationScore *int           // 0-100
	QualificationTier  string         `gorm:"size:20"` // hot/warm/cold/unqualified
	QualificationNotes datatypes.JSON

	PipelineStage PipelineStage `gorm:"type:varchar(30);default:'new';index"`

	// Quote
	QuoteAmount *float64 `gorm:"type:decimal(8,2)"`
	QuoteText   string   `gorm:"type:text"`
	QuoteSentAt *time.Time

	// Follow-up
	FollowUpCount  int `gorm:"default:0"`
	LastFollowUpAt *time.Time
	NextFollowUpAt *time.Time `gorm:"index"`

	Notes string `gorm:"type:text"`

	gorm.Model
}

func (l *ExtensionLead) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}
