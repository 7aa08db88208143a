package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultCategoryColor = "#ffffff"

	AvailableYes = "SI"
	AvailableNo  = "NO"
)

type Category struct {
	Model
	Name     string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Color    string    `gorm:"size:7;not null;default:'#ffffff'" json:"color"`
	Services []Service `json:"services,omitempty"`
}

func (c Category) String() string { return c.Name }

func (c *Category) BeforeSave(tx *gorm.DB) error {
	if c.Color == "" {
		c.Color = DefaultCategoryColor
	}
	v := NewValidationError()
	if strings.TrimSpace(c.Name) == "" {
		v.Add("name", "this field is required")
	} else if len([]rune(c.Name)) > 50 {
		v.Add("name", "ensure this value has at most 50 characters")
	}
	if !hexColorPattern.MatchString(c.Color) {
		v.Add("color", "enter a colour as #rrggbb")
	}
	return v.OrNil()
}

type Service struct {
	Model
	Name            string          `gorm:"size:100;not null" json:"name"`
	DurationMinutes *int            `json:"duration_minutes"`
	Price           decimal.Decimal `gorm:"type:decimal(6,2);not null" json:"price"`
	CategoryID      *uint           `gorm:"index" json:"category_id"`
	Category        *Category       `gorm:"constraint:OnDelete:SET NULL;" json:"category,omitempty"`
	Available       string          `gorm:"size:2;default:'SI'" json:"available"`
}

func (s Service) String() string { return s.Name }

// Duration is zero for services recorded without one.
func (s Service) Duration() time.Duration {
	if s.DurationMinutes == nil {
		return 0
	}
	return time.Duration(*s.DurationMinutes) * time.Minute
}

// Color is the category colour, white for uncategorised services.
func (s Service) Color() string {
	if s.Category != nil && s.Category.Color != "" {
		return s.Category.Color
	}
	return DefaultCategoryColor
}

func (s *Service) BeforeSave(tx *gorm.DB) error {
	if s.Available == "" {
		s.Available = AvailableYes
	}
	v := NewValidationError()
	if strings.TrimSpace(s.Name) == "" {
		v.Add("name", "this field is required")
	} else if len([]rune(s.Name)) > 100 {
		v.Add("name", "ensure this value has at most 100 characters")
	}
	if s.Available != AvailableYes && s.Available != AvailableNo {
		v.Add("available", "select a valid choice")
	}
	if s.Price.IsNegative() {
		v.Add("price", "ensure this value is greater than or equal to 0")
	}
	if s.Price.GreaterThanOrEqual(decimal.NewFromInt(10000)) {
		v.Add("price", "ensure that there are no more than 6 digits in total")
	}
	if s.DurationMinutes != nil && *s.DurationMinutes < 0 {
		v.Add("duration", "invalid duration format")
	}
	return v.OrNil()
}

// ParseDuration reads "HH:MM" into minutes.
func ParseDuration(raw string) (int, error) {
	hours, minutes, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, fmt.Errorf("invalid duration format %q", raw)
	}
	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid duration format %q", raw)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid duration format %q", raw)
	}
	return h*60 + m, nil
}

// FormatDuration renders a duration as zero-padded "HH:MM".
func FormatDuration(d time.Duration) string {
	total := int(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

type Voucher struct {
	Model
	Name            string          `gorm:"size:250;not null" json:"name"`
	Services        []Service       `gorm:"many2many:voucher_services;" json:"services,omitempty"`
	TotalSessions   uint            `gorm:"not null" json:"total_sessions"`
	PriceSession    decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price_session"`
	Discount        int             `gorm:"not null" json:"discount"`
	DiscountedPrice decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"discounted_price"`
}

func (v Voucher) String() string { return v.Name }

var hundred = decimal.NewFromInt(100)

// CalculateDiscountedPrice applies the percentage discount to the price of
// all sessions.
func (v Voucher) CalculateDiscountedPrice() decimal.Decimal {
	total := v.PriceSession.Mul(decimal.NewFromInt(int64(v.TotalSessions)))
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(v.Discount)).Div(hundred))
	return total.Mul(factor).Round(2)
}

func (v *Voucher) Validate() error {
	verr := NewValidationError()
	if strings.TrimSpace(v.Name) == "" {
		verr.Add("name", "this field is required")
	} else if len([]rune(v.Name)) > 250 {
		verr.Add("name", "ensure this value has at most 250 characters")
	}
	if v.TotalSessions == 0 {
		verr.Add("total_sessions", "ensure this value is greater than 0")
	}
	if v.Discount < 0 || v.Discount > 100 {
		verr.Add("discount", "the discount must be between 0 and 100")
	}
	if !v.PriceSession.IsPositive() {
		verr.Add("price_session", "the price must be greater than 0")
	}
	return verr.OrNil()
}

func (v *Voucher) BeforeSave(tx *gorm.DB) error {
	if err := v.Validate(); err != nil {
		return err
	}
	v.DiscountedPrice = v.CalculateDiscountedPrice()
	return nil
}

// CategoryGroup is a run of services sharing a category, in the order they
// were listed. Category is nil for uncategorised services.
type CategoryGroup struct {
	Category *Category `json:"category"`
	Services []Service `json:"services"`
}

// GroupByCategory groups consecutive services with the same category, the
// way a list sorted by category name is split into sections.
func GroupByCategory(services []Service) []CategoryGroup {
	groups := []CategoryGroup{}
	for _, s := range services {
		n := len(groups)
		if n > 0 && sameCategory(groups[n-1].Category, s.Category) {
			groups[n-1].Services = append(groups[n-1].Services, s)
			continue
		}
		groups = append(groups, CategoryGroup{Category: s.Category, Services: []Service{s}})
	}
	return groups
}

func sameCategory(a, b *Category) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
