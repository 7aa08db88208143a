package models

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Model replaces gorm.Model: deletes are hard deletes so unique
// telephone numbers and emails can be reused.
type Model struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var clientPhonePattern = regexp.MustCompile(`^\d{9,15}$`)

type Client struct {
	Model
	FirstName       string  `gorm:"size:50;not null" json:"first_name"`
	LastName        string  `gorm:"size:100;not null" json:"last_name"`
	TelephoneNumber *string `gorm:"size:15;uniqueIndex" json:"telephone_number"`
	Email           *string `gorm:"uniqueIndex" json:"email"`

	Vouchers []ClientVoucher `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

func (c Client) String() string {
	return fmt.Sprintf("%s %s", c.FirstName, c.LastName)
}

func (c *Client) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(c.FirstName) == "" {
		v.Add("first_name", "this field is required")
	} else if len([]rune(c.FirstName)) > 50 {
		v.Add("first_name", "ensure this value has at most 50 characters")
	}
	if strings.TrimSpace(c.LastName) == "" {
		v.Add("last_name", "this field is required")
	} else if len([]rune(c.LastName)) > 100 {
		v.Add("last_name", "ensure this value has at most 100 characters")
	}
	if c.TelephoneNumber != nil && !clientPhonePattern.MatchString(*c.TelephoneNumber) {
		v.Add("telephone_number", "enter a valid phone number with 9 to 15 digits")
	}
	if c.Email != nil {
		if _, err := mail.ParseAddress(*c.Email); err != nil {
			v.Add("email", "enter a valid email address")
		}
	}
	return v.OrNil()
}

func (c *Client) BeforeSave(tx *gorm.DB) error {
	c.TelephoneNumber = nullIfBlank(c.TelephoneNumber)
	c.Email = nullIfBlank(c.Email)
	return c.Validate()
}

func nullIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// DefaultVoucherLifetime is how long a purchased voucher stays valid when no
// expiration date is given.
const DefaultVoucherLifetime = 90 * 24 * time.Hour

type ClientVoucher struct {
	Model
	ClientID          uint      `gorm:"not null;index" json:"client_id"`
	Client            *Client   `json:"client,omitempty"`
	VoucherID         uint      `gorm:"not null;index" json:"voucher_id"`
	Voucher           *Voucher  `gorm:"constraint:OnDelete:CASCADE;" json:"voucher,omitempty"`
	PurchaseDate      time.Time `gorm:"type:date;not null" json:"purchase_date"`
	ExpirationDate    time.Time `gorm:"type:date;not null" json:"expiration_date"`
	SessionsRemaining *uint     `gorm:"not null" json:"sessions_remaining"`
	IsActive          bool      `gorm:"not null" json:"is_active"`
}

func (cv ClientVoucher) String() string {
	var remaining uint
	if cv.SessionsRemaining != nil {
		remaining = *cv.SessionsRemaining
	}
	name := ""
	if cv.Voucher != nil {
		name = cv.Voucher.Name
	}
	client := ""
	if cv.Client != nil {
		client = cv.Client.String()
	}
	return fmt.Sprintf("%s - %s (%d sessions remaining).", client, name, remaining)
}

// ApplyDefaults fills the purchase and expiration dates the way a new
// purchase is recorded at the front desk.
func (cv *ClientVoucher) ApplyDefaults(now time.Time) {
	today := Today(now)
	if cv.PurchaseDate.IsZero() {
		cv.PurchaseDate = today
	}
	if cv.ExpirationDate.IsZero() {
		cv.ExpirationDate = today.Add(DefaultVoucherLifetime)
	}
}

func (cv *ClientVoucher) Validate() error {
	v := NewValidationError()
	if cv.ClientID == 0 {
		v.Add("client", "this field is required")
	}
	if cv.VoucherID == 0 {
		v.Add("voucher", "this field is required")
	}
	if !cv.PurchaseDate.IsZero() && !cv.ExpirationDate.IsZero() && !cv.ExpirationDate.After(cv.PurchaseDate) {
		v.Add("expiration_date", "the expiration date must be after the purchase date")
	}
	return v.OrNil()
}

func (cv *ClientVoucher) BeforeSave(tx *gorm.DB) error {
	return cv.Validate()
}

// Redeem consumes one session. A voucher that runs out is deactivated.
func (cv *ClientVoucher) Redeem(now time.Time) error {
	if !cv.IsActive || cv.SessionsRemaining == nil || *cv.SessionsRemaining == 0 {
		return ErrVoucherUnavailable
	}
	if cv.Expired(now) {
		return ErrVoucherUnavailable
	}
	left := *cv.SessionsRemaining - 1
	cv.SessionsRemaining = &left
	if left == 0 {
		cv.IsActive = false
	}
	return nil
}

// Expired reports whether the voucher's last valid day is before today.
func (cv *ClientVoucher) Expired(now time.Time) bool {
	return Today(now).After(cv.ExpirationDate)
}

// Today truncates t to midnight UTC, the representation used for date columns.
func Today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
