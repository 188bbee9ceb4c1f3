package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Report struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`

	ReportMonth string `gorm:"size:7;uniqueIndex;not null"` // "2026-02"

	RevenueTotal      float64 `gorm:"type:decimal(10,2);not null"`
	AppointmentsCount int     `gorm:"not null"`
	NewClientsCount   int     `gorm:"not null"`
	LapsedRecovered   int     `gorm:"default:0"`
	LeadsConverted    int     `gorm:"default:0"`
	TopServices       datatypes.JSON
	InventorySpend    float64 `gorm:"type:decimal(10,2);default:0.0"`

	AISummaryText string `gorm:"type:text"`
	AIGeneratedAt *time.Time
	ChartsData    datatypes.JSON

	gorm.Model
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
