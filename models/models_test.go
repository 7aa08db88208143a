package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func uintPtr(u uint) *uint    { return &u }

func TestResolvePage(t *testing.T) {
	cases := []struct {
		name         string
		raw          string
		count        int64
		wantNumber   int
		wantNumPages int
	}{
		{"missing page", "", 45, 1, 3},
		{"not a number", "abc", 45, 1, 3},
		{"middle", "2", 45, 2, 3},
		{"past the end", "9", 45, 3, 3},
		{"zero", "0", 45, 3, 3},
		{"empty result", "1", 0, 1, 1},
		{"exact multiple", "2", 40, 2, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			number, numPages := ResolvePage(tc.raw, tc.count, 20)
			assert.Equal(t, tc.wantNumber, number)
			assert.Equal(t, tc.wantNumPages, numPages)
		})
	}
}

func TestClientValidate(t *testing.T) {
	ok := Client{FirstName: "Ana", LastName: "García", TelephoneNumber: strPtr("612345678"), Email: strPtr("ana@example.com")}
	require.NoError(t, ok.Validate())

	bad := Client{FirstName: "", LastName: "García", TelephoneNumber: strPtr("12ab"), Email: strPtr("nope")}
	err := bad.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "first_name")
	assert.Contains(t, verr.Fields, "telephone_number")
	assert.Contains(t, verr.Fields, "email")
	assert.Equal(t, "Ana García", ok.String())
}

func TestEmployeeValidate(t *testing.T) {
	e := Employee{FirstName: "Lucía", LastName: "Pérez", TelephoneNumber: "+34 612-345-678", Color: DefaultEmployeeColor}
	assert.NoError(t, e.Validate())

	e.Color = "blue"
	e.TelephoneNumber = "call me"
	err := e.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "color")
	assert.Contains(t, verr.Fields, "telephone_number")
}

func TestVoucherDiscountedPrice(t *testing.T) {
	v := Voucher{Name: "Bono 10", TotalSessions: 10, PriceSession: decimal.RequireFromString("25.50"), Discount: 15}
	require.NoError(t, v.Validate())
	assert.Equal(t, "216.75", v.CalculateDiscountedPrice().StringFixed(2))

	v.Discount = 0
	assert.Equal(t, "255.00", v.CalculateDiscountedPrice().StringFixed(2))

	v.Discount = 101
	v.PriceSession = decimal.Zero
	err := v.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"the discount must be between 0 and 100"}, verr.Fields["discount"])
	assert.Equal(t, []string{"the price must be greater than 0"}, verr.Fields["price_session"])
}

func TestDurations(t *testing.T) {
	minutes, err := ParseDuration("01:30")
	require.NoError(t, err)
	assert.Equal(t, 90, minutes)

	for _, raw := range []string{"", "90", "1:75", "aa:10", "-1:00"} {
		_, err := ParseDuration(raw)
		assert.Error(t, err, raw)
	}

	assert.Equal(t, "02:05", FormatDuration(125*time.Minute))
	assert.Equal(t, "00:00", FormatDuration(0))
}

func TestServiceColor(t *testing.T) {
	s := Service{Name: "Corte"}
	assert.Equal(t, DefaultCategoryColor, s.Color())
	s.Category = &Category{Name: "Pelo", Color: "#ff0000"}
	assert.Equal(t, "#ff0000", s.Color())
}

func TestAppointmentTitleAndEnd(t *testing.T) {
	start := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	a := Appointment{
		Client:    &Client{FirstName: "Ana", LastName: "García"},
		StartTime: start,
		Services: []Service{
			{Name: "Corte", DurationMinutes: intPtr(30)},
			{Name: "Tinte", DurationMinutes: intPtr(45)},
			{Name: "Consulta"},
		},
	}
	assert.Equal(t, "Ana García\nCorte\n Tinte\n Consulta", a.Title())
	assert.Equal(t, start.Add(75*time.Minute), a.CalculateEndTime())
}

func TestClientVoucherLifecycle(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	cv := ClientVoucher{ClientID: 1, VoucherID: 1, SessionsRemaining: uintPtr(2), IsActive: true}
	cv.ApplyDefaults(now)
	assert.Equal(t, Today(now), cv.PurchaseDate)
	assert.Equal(t, Today(now).AddDate(0, 0, 90), cv.ExpirationDate)
	require.NoError(t, cv.Validate())

	require.NoError(t, cv.Redeem(now))
	assert.EqualValues(t, 1, *cv.SessionsRemaining)
	assert.True(t, cv.IsActive)

	require.NoError(t, cv.Redeem(now))
	assert.EqualValues(t, 0, *cv.SessionsRemaining)
	assert.False(t, cv.IsActive)
	assert.ErrorIs(t, cv.Redeem(now), ErrVoucherUnavailable)

	expired := ClientVoucher{SessionsRemaining: uintPtr(3), IsActive: true, ExpirationDate: Today(now).AddDate(0, 0, -1)}
	assert.True(t, expired.Expired(now))
	assert.ErrorIs(t, expired.Redeem(now), ErrVoucherUnavailable)

	sameDay := ClientVoucher{ClientID: 1, VoucherID: 1, PurchaseDate: Today(now), ExpirationDate: Today(now)}
	assert.Error(t, sameDay.Validate())
}

func TestProductStock(t *testing.T) {
	p := Product{Name: "Champú", Stock: 3}
	require.NoError(t, p.Apply(StockMovement{MovementType: MovementIncrease, Quantity: 2}))
	assert.Equal(t, 5, p.Stock)

	err := p.Apply(StockMovement{MovementType: MovementDecrease, Quantity: 6})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, p.Stock)

	m := StockMovement{Quantity: 0, MovementType: "sideways", Reason: "gift"}
	var verr *ValidationError
	require.ErrorAs(t, m.Validate(), &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestGroupByCategory(t *testing.T) {
	hair := &Category{Model: Model{ID: 1}, Name: "Pelo"}
	nails := &Category{Model: Model{ID: 2}, Name: "Uñas"}
	groups := GroupByCategory([]Service{
		{Name: "Suelto"},
		{Name: "Corte", Category: hair},
		{Name: "Tinte", Category: hair},
		{Name: "Manicura", Category: nails},
	})
	require.Len(t, groups, 3)
	assert.Nil(t, groups[0].Category)
	assert.Len(t, groups[1].Services, 2)
	assert.Equal(t, "Uñas", groups[2].Category.Name)
}
