package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentCash = "cash"
	PaymentVisa = "visa"
)

type Transaction struct {
	Model
	AppointmentID *uint           `gorm:"index" json:"appointment_id"`
	Appointment   *Appointment    `gorm:"constraint:OnDelete:CASCADE;" json:"appointment,omitempty"`
	ClientID      uint            `gorm:"not null;index" json:"client_id"`
	Client        *Client         `gorm:"constraint:OnDelete:CASCADE;" json:"client,omitempty"`
	Services      []Service       `gorm:"many2many:transaction_services;" json:"services"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Method        string          `gorm:"size:8;not null" json:"method"`
}

func (t Transaction) String() string {
	client := ""
	if t.Client != nil {
		client = t.Client.String()
	}
	return fmt.Sprintf("Transaction of %s - %s", client, t.Date.Format(time.RFC3339))
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	return nil
}

func (t *Transaction) BeforeSave(tx *gorm.DB) error {
	if t.Method == "" {
		t.Method = PaymentVisa
	}
	v := NewValidationError()
	if t.ClientID == 0 {
		v.Add("client", "this field is required")
	}
	if t.Method != PaymentCash && t.Method != PaymentVisa {
		v.Add("method", "select a valid choice")
	}
	if t.TotalAmount.IsNegative() {
		v.Add("total_amount", "ensure this value is greater than or equal to 0")
	}
	return v.OrNil()
}

// SumPrices adds up the prices of the given services.
func SumPrices(services []Service) decimal.Decimal {
	total := decimal.Zero
	for _, s := range services {
		total = total.Add(s.Price)
	}
	return total
}
