package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"salonflow-backend/config"
	"salonflow-backend/models"
)

// InventoryService tracks product stock through an append-only transaction
// ledger and drives the reorder pipeline.
type InventoryService struct {
	db       *gorm.DB
	narrator Narrator
	settings *config.Settings
	log      zerolog.Logger
	now      func() time.Time
}

func NewInventoryService(db *gorm.DB, narrator Narrator, settings *config.Settings) *InventoryService {
	return &InventoryService{
		db:       db,
		narrator: narrator,
		settings: settings,
		log:      log.With().Str("component", "inventory").Logger(),
		now:      time.Now,
	}
}

type ProductFilter struct {
	Category     string
	LowStockOnly bool
}

func (s *InventoryService) ListProducts(ctx context.Context, filter ProductFilter) ([]models.InventoryProduct, error) {
	q := s.db.WithContext(ctx).Where("is_active = ?", true)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.LowStockOnly {
		q = q.Where("current_stock <= reorder_threshold")
	}
	var products []models.InventoryProduct
	err := q.Order("category, name").Find(&products).Error
	return products, err
}

func (s *InventoryService) CreateProduct(ctx context.Context, product *models.InventoryProduct) error {
	if product.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if product.ReorderThreshold < 0 {
		return &ValidationError{Field: "reorder_threshold", Reason: "must not be negative"}
	}
	return s.db.WithContext(ctx).Create(product).Error
}

// GetProduct returns a product with its most recent ledger entries.
func (s *InventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*models.InventoryProduct, []models.InventoryTransaction, error) {
	var product models.InventoryProduct
	if err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, nil, err
	}
	var txs []models.InventoryTransaction
	err := s.db.WithContext(ctx).
		Where("product_id = ?", id).
		Order("created_at desc").
		Limit(20).
		Find(&txs).Error
	return &product, txs, err
}

func (s *InventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.InventoryProduct, error) {
	var product models.InventoryProduct
	if err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	// Stock only moves through the ledger.
	delete(updates, "current_stock")
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&product).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &product, nil
}

// AdjustStock applies a stock movement and records it in the ledger inside
// one transaction, so the running stock and the ledger never diverge.
func (s *InventoryService) AdjustStock(ctx context.Context, productID uuid.UUID, transactionType string, quantity float64, appointmentID *uuid.UUID, note string) (float64, error) {
	switch transactionType {
	case "received", "used", "adjusted", "sold", "wasted":
	default:
		return 0, &ValidationError{Field: "transaction_type", Reason: "must be one of received/used/adjusted/sold/wasted"}
	}

	var newStock float64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.InventoryProduct
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %s: %w", productID, ErrNotFound)
			}
			return err
		}

		newStock = product.CurrentStock + quantity
		if newStock < 0 {
			return &ValidationError{Field: "quantity", Reason: "stock cannot go below zero"}
		}

		entry := models.InventoryTransaction{
			ProductID:       productID,
			TransactionType: transactionType,
			QuantityChange:  quantity,
			QuantityAfter:   newStock,
			AppointmentID:   appointmentID,
			Note:            note,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"current_stock": newStock}
		if transactionType == "received" {
			updates["last_restocked_at"] = s.now()
		}
		return tx.Model(&product).Updates(updates).Error
	})
	return newStock, err
}

// StockAlert is one low-stock warning for the dashboard.
type StockAlert struct {
	ProductID        uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	SKU              string    `json:"sku"`
	CurrentStock     float64   `json:"current_stock"`
	ReorderThreshold float64   `json:"reorder_threshold"`
	StockUnit        string    `json:"stock_unit"`
	Category         string    `json:"category"`
	IsCritical       bool      `json:"is_critical"`
}

// StockAlerts returns active products at or below their reorder threshold,
// lowest stock first. Zero stock is flagged critical.
func (s *InventoryService) StockAlerts(ctx context.Context) ([]StockAlert, error) {
	var products []models.InventoryProduct
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND current_stock <= reorder_threshold", true).
		Order("current_stock asc").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	alerts := make([]StockAlert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, StockAlert{
			ProductID:        p.ID,
			Name:             p.Name,
			SKU:              p.SKU,
			CurrentStock:     p.CurrentStock,
			ReorderThreshold: p.ReorderThreshold,
			StockUnit:        p.StockUnit,
			Category:         p.Category,
			IsCritical:       p.CurrentStock == 0,
		})
	}
	return alerts, nil
}

// ReorderAdvice builds the inventory context (low stock, usage over the last
// 30 days normalised to weekly, near-term booked services) and asks the
// generator for structured recommendations. A generator failure falls back
// to threshold-based advice.
func (s *InventoryService) ReorderAdvice(ctx context.Context) (ReorderAdvice, error) {
	var lowStock []models.InventoryProduct
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND current_stock <= reorder_threshold", true).
		Find(&lowStock).Error; err != nil {
		return ReorderAdvice{}, err
	}

	type usageRow struct {
		ProductID uuid.UUID
		Total     float64
	}
	var usage []usageRow
	since := s.now().AddDate(0, 0, -30)
	if err := s.db.WithContext(ctx).
		Model(&models.InventoryTransaction{}).
		Select("product_id, SUM(ABS(quantity_change)) AS total").
		Where("transaction_type IN ? AND created_at >= ?", []string{"used", "sold"}, since).
		Group("product_id").
		Scan(&usage).Error; err != nil {
		return ReorderAdvice{}, err
	}
	weekly := make(map[string]float64, len(usage))
	for _, u := range usage {
		weekly[u.ProductID.String()] = math.Round(u.Total/4.3*100) / 100
	}

	var upcoming []string
	if err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("status = ? AND start_datetime >= ? AND start_datetime <= ?",
			models.AppointmentScheduled, s.now(), s.now().AddDate(0, 0, 14)).
		Pluck("service_type", &upcoming).Error; err != nil {
		return ReorderAdvice{}, err
	}

	reorderCtx := ReorderContext{WeeklyUsage: weekly, UpcomingServices: upcoming}
	for _, p := range lowStock {
		reorderCtx.LowStock = append(reorderCtx.LowStock, ReorderItem{
			ProductName: p.Name,
			Quantity:    p.CurrentStock,
		})
	}

	advice, err := s.narrator.RecommendReorder(ctx, reorderCtx)
	if err != nil {
		s.log.Error().Err(err).Msg("AI reorder advice failed, using fallback")
		return NewTemplateNarrator(s.settings.StylistName, s.settings.SalonName).RecommendReorder(ctx, reorderCtx)
	}
	return advice, nil
}

// PurchaseOrderItem is one line of a purchase order's items payload.
type PurchaseOrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Qty       float64   `json:"qty"`
	UnitCost  *float64  `json:"unit_cost,omitempty"`
}

func (s *InventoryService) ListPurchaseOrders(ctx context.Context) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&orders).Error
	return orders, err
}

func (s *InventoryService) CreatePurchaseOrder(ctx context.Context, supplierName string, items []PurchaseOrderItem, totalCost *float64, notes string, aiGenerated bool) (*models.PurchaseOrder, error) {
	if len(items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	po := models.PurchaseOrder{
		SupplierName: supplierName,
		AIGenerated:  aiGenerated,
		Items:        raw,
		TotalCost:    totalCost,
		Notes:        notes,
	}
	if err := s.db.WithContext(ctx).Create(&po).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// SetPurchaseOrderStatus moves an order through draft→sent→received. On
// received, each line restocks its product through the ledger.
func (s *InventoryService) SetPurchaseOrderStatus(ctx context.Context, id uuid.UUID, status string) error {
	switch status {
	case "draft", "sent", "received", "cancelled":
	default:
		return &ValidationError{Field: "status", Reason: "must be one of draft/sent/received/cancelled"}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var po models.PurchaseOrder
		if err := tx.First(&po, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("purchase order %s: %w", id, ErrNotFound)
			}
			return err
		}

		updates := map[string]interface{}{"status": status}
		if status == "sent" {
			updates["ordered_at"] = s.now()
		}
		if status == "received" {
			updates["received_at"] = s.now()
		}
		if err := tx.Model(&po).Updates(updates).Error; err != nil {
			return err
		}
		if status != "received" {
			return nil
		}

		var items []PurchaseOrderItem
		if err := json.Unmarshal(po.Items, &items); err != nil {
			s.log.Warn().Err(err).Str("order", id.String()).Msg("Unreadable purchase order items, skipping restock")
			return nil
		}
		for _, item := range items {
			var product models.InventoryProduct
			if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
				s.log.Warn().Str("product", item.ProductID.String()).Msg("Purchase order line references unknown product")
				continue
			}
			newStock := product.CurrentStock + item.Qty
			if err := tx.Create(&models.InventoryTransaction{
				ProductID:       product.ID,
				TransactionType: "received",
				QuantityChange:  item.Qty,
				QuantityAfter:   newStock,
				Note:            fmt.Sprintf("Purchase order %s", id),
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&product).Updates(map[string]interface{}{
				"current_stock":     newStock,
				"last_ordered_at":   po.OrderedAt,
				"last_restocked_at": s.now(),
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
