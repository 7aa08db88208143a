package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"salon-manager/models"
	"salon-manager/monitoring"
	"salon-manager/utils"
)

type StockHandler struct {
	Deps
}

func NewStockHandler(d Deps) *StockHandler {
	return &StockHandler{Deps: d}
}

type SupplierRequest struct {
	Name string `json:"name" form:"name"`
}

type ProductRequest struct {
	Name        string          `json:"name" form:"name"`
	Description *string         `json:"description" form:"description"`
	SupplierID  *uint           `json:"supplier" form:"supplier"`
	Price       decimal.Decimal `json:"price" form:"price"`
	Stock       int             `json:"stock" form:"stock"`
}

type MovementRequest struct {
	Quantity     int    `json:"quantity" form:"quantity"`
	MovementType string `json:"movement_type" form:"movement_type"`
	Reason       string `json:"reason" form:"reason"`
}

// StockEvent is published on every stock level change. PreviousStock is nil
// for a newly created product.
type StockEvent struct {
	ProductID     uint   `json:"product_id"`
	Name          string `json:"name"`
	PreviousStock *int   `json:"previous_stock"`
	Stock         int    `json:"stock"`
	Threshold     int    `json:"threshold"`
}

func (h *StockHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.Repo.ListSuppliers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	unsupplied, err := h.Repo.UnsuppliedProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suppliers": suppliers, "unsupplied_products": unsupplied})
}

func (h *StockHandler) CreateSupplier(c *gin.Context) {
	var req SupplierRequest
	if !bind(c, &req) {
		return
	}
	supplier, err := h.Repo.CreateSupplier(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

func (h *StockHandler) RenameSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SupplierRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(c, fieldError("name", "the supplier name cannot be empty"))
		return
	}
	supplier, err := h.Repo.RenameSupplier(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (h *StockHandler) DeleteSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Repo.DeleteSupplier(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StockHandler) SupplierProducts(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	supplier, err := h.Repo.GetSupplier(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.Repo.SupplierProducts(c.Request.Context(), id, c.Query("page"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"supplier": supplier, "products": page})
}

func (h *StockHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if !bind(c, &req) {
		return
	}
	product := req.product()
	if err := h.Repo.CreateProduct(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	h.publishStock(c.Request.Context(), product, nil)
	c.JSON(http.StatusCreated, product)
}

func (h *StockHandler) SearchProducts(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	products := []models.Product{}
	if query != "" {
		var err error
		if products, err = h.Repo.SearchProducts(c.Request.Context(), query); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "products": products})
}

func (h *StockHandler) UnsuppliedProducts(c *gin.Context) {
	products, err := h.Repo.UnsuppliedProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *StockHandler) LowStockProducts(c *gin.Context) {
	products, err := h.Repo.LowStockProducts(c.Request.Context(), h.LowStockThreshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": h.LowStockThreshold, "products": products})
}

func (h *StockHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	product, err := h.Repo.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *StockHandler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if !bind(c, &req) {
		return
	}
	current, err := h.Repo.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	product := req.product()
	product.ID = current.ID
	product.CreatedAt = current.CreatedAt
	if err := h.Repo.UpdateProduct(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	if product.Stock != current.Stock {
		h.publishStock(c.Request.Context(), product, &current.Stock)
	}
	c.JSON(http.StatusOK, product)
}

func (h *StockHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Repo.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StockHandler) CreateMovement(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req MovementRequest
	if !bind(c, &req) {
		return
	}

	movement := &models.StockMovement{
		Quantity:     req.Quantity,
		MovementType: req.MovementType,
		Reason:       req.Reason,
	}
	product, err := h.Repo.CreateMovement(c.Request.Context(), id, movement)
	if err != nil {
		respondError(c, err)
		return
	}

	monitoring.StockMovements.WithLabelValues(movement.MovementType, movement.Reason).Inc()
	h.Log.WithFields(logrus.Fields{
		"product_id": product.ID,
		"type":       movement.MovementType,
		"quantity":   movement.Quantity,
		"stock":      product.Stock,
	}).Info("stock movement recorded")
	previous := product.Stock - movement.Quantity
	if movement.MovementType == models.MovementDecrease {
		previous = product.Stock + movement.Quantity
	}
	h.publishStock(c.Request.Context(), product, &previous)

	c.JSON(http.StatusCreated, gin.H{"movement": movement, "product": product})
}

func (h *StockHandler) ProductMovements(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	movements, err := h.Repo.ProductMovements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (h *StockHandler) publishStock(ctx context.Context, product *models.Product, previous *int) {
	h.Events.PublishAsync(ctx, utils.TopicStockEvents, "stock_changed", product.ID, StockEvent{
		ProductID:     product.ID,
		Name:          product.Name,
		PreviousStock: previous,
		Stock:         product.Stock,
		Threshold:     h.LowStockThreshold,
	})
}

func (r ProductRequest) product() *models.Product {
	return &models.Product{
		Name:        strings.TrimSpace(r.Name),
		Description: blankToNil(r.Description),
		SupplierID:  r.SupplierID,
		Price:       r.Price,
		Stock:       r.Stock,
	}
}
