package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	MovementIncrease = "increase"
	MovementDecrease = "decrease"

	ReasonCabinExpense  = "cabin_expense"
	ReasonSale          = "sale"
	ReasonDisrepair     = "disrepair"
	ReasonIncreaseStock = "increase stock"
)

var movementReasons = map[string]bool{
	ReasonCabinExpense:  true,
	ReasonSale:          true,
	ReasonDisrepair:     true,
	ReasonIncreaseStock: true,
}

type Supplier struct {
	Model
	Name     string    `gorm:"size:250;not null" json:"name"`
	Products []Product `gorm:"constraint:OnDelete:CASCADE;" json:"products,omitempty"`
}

func (s Supplier) String() string { return s.Name }

func (s *Supplier) BeforeSave(tx *gorm.DB) error {
	s.Name = strings.TrimSpace(s.Name)
	v := NewValidationError()
	if s.Name == "" {
		v.Add("name", "the supplier name cannot be empty")
	} else if len([]rune(s.Name)) > 250 {
		v.Add("name", "ensure this value has at most 250 characters")
	}
	return v.OrNil()
}

type Product struct {
	Model
	Name        string          `gorm:"size:250;not null;index" json:"name"`
	Description *string         `json:"description"`
	SupplierID  *uint           `gorm:"index" json:"supplier_id"`
	Supplier    *Supplier       `json:"supplier,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock       int             `gorm:"not null" json:"stock"`
}

func (p Product) String() string { return p.Name }

func (p *Product) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "this field is required")
	} else if len([]rune(p.Name)) > 250 {
		v.Add("name", "ensure this value has at most 250 characters")
	}
	if p.Price.IsNegative() {
		v.Add("price", "the price cannot be negative")
	}
	if p.Stock < 0 {
		v.Add("stock", "ensure this value is greater than or equal to 0")
	}
	return v.OrNil()
}

func (p *Product) BeforeSave(tx *gorm.DB) error {
	return p.Validate()
}

// ReduceStock takes quantity units out of the product, refusing to go below zero.
func (p *Product) ReduceStock(quantity int) error {
	if p.Stock < quantity {
		return fmt.Errorf("%w: %d requested, %d available", ErrInsufficientStock, quantity, p.Stock)
	}
	p.Stock -= quantity
	return nil
}

// Apply updates the product stock for a movement.
func (p *Product) Apply(m StockMovement) error {
	switch m.MovementType {
	case MovementIncrease:
		p.Stock += m.Quantity
		return nil
	case MovementDecrease:
		return p.ReduceStock(m.Quantity)
	}
	return fmt.Errorf("unknown movement type %q", m.MovementType)
}

type StockMovement struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProductID    uint      `gorm:"not null;index" json:"product_id"`
	Product      *Product  `gorm:"constraint:OnDelete:CASCADE;" json:"product,omitempty"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	MovementType string    `gorm:"size:8" json:"movement_type"`
	Reason       string    `gorm:"size:16;not null" json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

func (m StockMovement) String() string {
	name := ""
	if m.Product != nil {
		name = m.Product.Name
	}
	return fmt.Sprintf("%s - %s (%d)", name, m.MovementType, m.Quantity)
}

func (m *StockMovement) Validate() error {
	v := NewValidationError()
	if m.Quantity <= 0 {
		v.Add("quantity", "the quantity is required and must be positive")
	}
	if m.MovementType != MovementIncrease && m.MovementType != MovementDecrease {
		v.Add("movement_type", "select a valid choice")
	}
	if !movementReasons[m.Reason] {
		v.Add("reason", "select a valid choice")
	}
	return v.OrNil()
}

func (m *StockMovement) BeforeSave(tx *gorm.DB) error {
	return m.Validate()
}
