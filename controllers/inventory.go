package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"salonflow-backend/models"
	"salonflow-backend/services"
	"salonflow-backend/utils"
)

type InventoryController struct {
	Inventory *services.InventoryService
}

type CreateProductRequest struct {
	Name             string   `json:"name" binding:"required"`
	SKU              string   `json:"sku"`
	Category         string   `json:"category" binding:"required"`
	SupplierName     string   `json:"supplier_name"`
	SupplierContact  string   `json:"supplier_contact"`
	UnitCost         *float64 `json:"unit_cost"`
	RetailPrice      *float64 `json:"retail_price"`
	StockUnit        string   `json:"stock_unit"`
	ReorderThreshold float64  `json:"reorder_threshold"`
	ReorderQuantity  *float64 `json:"reorder_quantity"`
	Notes            string   `json:"notes"`
}

func (ctl *InventoryController) CreateProduct(c *gin.Context) {
	var input CreateProductRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	product := models.InventoryProduct{
		Name:             input.Name,
		SKU:              input.SKU,
		Category:         input.Category,
		SupplierName:     input.SupplierName,
		SupplierContact:  input.SupplierContact,
		UnitCost:         input.UnitCost,
		RetailPrice:      input.RetailPrice,
		ReorderThreshold: input.ReorderThreshold,
		ReorderQuantity:  input.ReorderQuantity,
		Notes:            input.Notes,
		IsActive:         true,
	}
	if input.StockUnit != "" {
		product.StockUnit = input.StockUnit
	}

	if err := ctl.Inventory.CreateProduct(c.Request.Context(), &product); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (ctl *InventoryController) ListProducts(c *gin.Context) {
	products, err := ctl.Inventory.ListProducts(c.Request.Context(), services.ProductFilter{
		Category:     c.Query("category"),
		LowStockOnly: c.Query("low_stock_only") == "true",
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}
	c.JSON(http.StatusOK, products)
}

func (ctl *InventoryController) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	product, transactions, err := ctl.Inventory.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":             product,
		"recent_transactions": transactions,
	})
}

func (ctl *InventoryController) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	product, err := ctl.Inventory.UpdateProduct(c.Request.Context(), id, updates)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type StockAdjustmentRequest struct {
	TransactionType string  `json:"transaction_type" binding:"required"`
	Quantity        float64 `json:"quantity" binding:"required"`
	AppointmentID   *string `json:"appointment_id"`
	Note            string  `json:"note"`
}

func (ctl *InventoryController) AdjustStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input StockAdjustmentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var apptID *uuid.UUID
	if input.AppointmentID != nil {
		parsed, err := uuid.Parse(*input.AppointmentID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid appointment_id format")
			return
		}
		apptID = &parsed
	}

	newStock, err := ctl.Inventory.AdjustStock(c.Request.Context(), id, input.TransactionType, input.Quantity, apptID, input.Note)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock adjusted", "new_stock": newStock})
}

func (ctl *InventoryController) StockAlerts(c *gin.Context) {
	alerts, err := ctl.Inventory.StockAlerts(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve stock alerts")
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (ctl *InventoryController) ReorderAdvice(c *gin.Context) {
	advice, err := ctl.Inventory.ReorderAdvice(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, advice)
}

type CreatePurchaseOrderRequest struct {
	SupplierName string                        `json:"supplier_name"`
	Items        []services.PurchaseOrderItem  `json:"items" binding:"required"`
	TotalCost    *float64                      `json:"total_cost"`
	Notes        string                        `json:"notes"`
	AIGenerated  bool                          `json:"ai_generated"`
}

func (ctl *InventoryController) CreatePurchaseOrder(c *gin.Context) {
	var input CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	po, err := ctl.Inventory.CreatePurchaseOrder(c.Request.Context(), input.SupplierName, input.Items, input.TotalCost, input.Notes, input.AIGenerated)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, po)
}

func (ctl *InventoryController) ListPurchaseOrders(c *gin.Context) {
	orders, err := ctl.Inventory.ListPurchaseOrders(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve purchase orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (ctl *InventoryController) UpdatePurchaseOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if err := ctl.Inventory.SetPurchaseOrderStatus(c.Request.Context(), id, input.Status); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Purchase order updated to " + input.Status})
}
