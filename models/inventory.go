package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type InventoryProduct struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`

	Name            string `gorm:"not null"`
	SKU             string `gorm:"size:60;uniqueIndex"`
	Category        string `gorm:"size:60;not null"` // extensions/tools/retail/color/care
	SupplierName    string
	SupplierContact string

	UnitCost    *float64 `gorm:"type:decimal(8,2)"`
	RetailPrice *float64 `gorm:"type:decimal(8,2)"`

	CurrentStock     float64 `gorm:"type:decimal(10,2);default:0"`
	StockUnit        string  `gorm:"size:20;default:'units'"` // units/grams/packs
	ReorderThreshold float64 `gorm:"type:decimal(10,2);not null"`
	ReorderQuantity  *float64 `gorm:"type:decimal(10,2)"`

	LastOrderedAt   *time.Time
	LastRestockedAt *time.Time
	Notes           string `gorm:"type:text"`
	IsActive        bool   `gorm:"default:true"`

	Transactions []InventoryTransaction `gorm:"foreignKey:ProductID"`

	gorm.Model
}

func (p *InventoryProduct) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

type InventoryTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null"`

	TransactionType string  `gorm:"size:20;not null"` // received/used/adjusted/sold/wasted
	QuantityChange  float64 `gorm:"type:decimal(10,2);not null"`
	QuantityAfter   float64 `gorm:"type:decimal(10,2);not null"`

	AppointmentID *uuid.UUID `gorm:"type:uuid;index"`
	Note          string     `gorm:"type:text"`

	CreatedAt time.Time
}

func (t *InventoryTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

type PurchaseOrder struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`

	Status       string `gorm:"size:20;default:'draft'"` // draft/sent/received/cancelled
	SupplierName string
	AIGenerated  bool           `gorm:"default:false"`
	Items        datatypes.JSON `gorm:"not null"`
	TotalCost    *float64       `gorm:"type:decimal(10,2)"`
	Notes        string         `gorm:"type:text"`

	OrderedAt  *time.Time
	ReceivedAt *time.Time
	CreatedAt  time.Time
}

func (o *PurchaseOrder) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return
}
