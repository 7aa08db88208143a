package models

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo, err := NewGormRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func mustClient(t *testing.T, repo *GormRepository, first, last, phone string) *Client {
	t.Helper()
	c := &Client{FirstName: first, LastName: last}
	if phone != "" {
		c.TelephoneNumber = &phone
	}
	require.NoError(t, repo.CreateClient(context.Background(), c))
	return c
}

func mustService(t *testing.T, repo *GormRepository, name, price string, minutes int, categoryID *uint) *Service {
	t.Helper()
	s := &Service{Name: name, Price: decimal.RequireFromString(price), DurationMinutes: &minutes, CategoryID: categoryID}
	require.NoError(t, repo.CreateService(context.Background(), s))
	return s
}

func TestClientUniqueness(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ana := mustClient(t, repo, "Ana", "García", "612345678")

	dup := &Client{FirstName: "Otra", LastName: "Persona", TelephoneNumber: strPtr("612345678")}
	err := repo.CreateClient(ctx, dup)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"a client with number 612345678 already exists"}, verr.Fields["telephone_number"])

	ana.LastName = "García López"
	require.NoError(t, repo.UpdateClient(ctx, ana), "keeping its own number is not a duplicate")

	got, err := repo.GetClientByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "García López", got.LastName)

	_, err = repo.GetClientByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchClients(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustClient(t, repo, "Ana", "García", "612345678")
	mustClient(t, repo, "Juan", "Anaya", "699000111")
	mustClient(t, repo, "Marta", "Ruiz", "")

	found, err := repo.SearchClients(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = repo.SearchClients(ctx, "ana garc")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ana", found[0].FirstName)

	found, err = repo.SearchClients(ctx, "6990")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Juan", found[0].FirstName)

	found, err = repo.SearchClients(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = repo.SearchClients(ctx, "100%")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestListClientsPaginates(t *testing.T) {
	repo := newTestRepo(t)
	for i := 0; i < ClientsPerPage+5; i++ {
		mustClient(t, repo, string(rune('A'+i)), "Test", "")
	}

	page, err := repo.ListClients(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 2, page.NumPages)
	assert.EqualValues(t, ClientsPerPage+5, page.Count)
	assert.Len(t, page.Items, 5)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)

	page, err = repo.ListClients(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, "A", page.Items[0].FirstName)
}

func TestAppointmentEndTime(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	client := mustClient(t, repo, "Ana", "García", "")
	cut := mustService(t, repo, "Corte", "15.00", 30, nil)
	dye := mustService(t, repo, "Tinte", "40.00", 60, nil)

	start := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	a := &Appointment{ClientID: client.ID, StartTime: start}
	require.NoError(t, repo.CreateAppointment(ctx, a, []uint{cut.ID, dye.ID}))
	require.NotNil(t, a.EndTime)
	assert.Equal(t, start.Add(90*time.Minute), a.EndTime.UTC())

	// a submitted end time survives the update
	end := start.Add(2 * time.Hour)
	a.EndTime = &end
	require.NoError(t, repo.UpdateAppointment(ctx, a, nil))
	got, err := repo.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, end, got.EndTime.UTC())
	assert.Len(t, got.Services, 2)

	// without one it is recomputed from the new services
	a.EndTime = nil
	require.NoError(t, repo.UpdateAppointment(ctx, a, []uint{cut.ID}))
	got, err = repo.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, start.Add(30*time.Minute), got.EndTime.UTC())
	assert.Len(t, got.Services, 1)

	// on create the services decide the end time
	submitted := start.Add(3 * time.Hour)
	b := &Appointment{ClientID: client.ID, StartTime: start, EndTime: &submitted}
	require.NoError(t, repo.CreateAppointment(ctx, b, []uint{cut.ID}))
	assert.Equal(t, start.Add(30*time.Minute), b.EndTime.UTC())

	// without services the submitted end time is kept
	c := &Appointment{ClientID: client.ID, StartTime: start, EndTime: &submitted}
	require.NoError(t, repo.CreateAppointment(ctx, c, nil))
	got, err = repo.GetAppointment(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted, got.EndTime.UTC())

	bad := &Appointment{ClientID: 999, StartTime: start}
	err = repo.CreateAppointment(ctx, bad, []uint{cut.ID})
	assert.True(t, IsValidation(err))

	err = repo.CreateAppointment(ctx, &Appointment{ClientID: client.ID, StartTime: start}, []uint{12345})
	assert.True(t, IsValidation(err))
}

func TestAgendaAppointmentsRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	client := mustClient(t, repo, "Ana", "García", "")

	for _, day := range []int{9, 10, 11} {
		a := &Appointment{ClientID: client.ID, StartTime: time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC)}
		require.NoError(t, repo.CreateAppointment(ctx, a, nil))
	}

	from := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	to := from
	got, err := repo.AgendaAppointments(ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].StartTime.Day())

	all, err := repo.AgendaAppointments(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteClientCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	client := mustClient(t, repo, "Ana", "García", "")
	cut := mustService(t, repo, "Corte", "15.00", 30, nil)
	a := &Appointment{ClientID: client.ID, StartTime: time.Now().UTC()}
	require.NoError(t, repo.CreateAppointment(ctx, a, []uint{cut.ID}))
	_, err := repo.RegisterTransaction(ctx, a.ID, []uint{cut.ID}, PaymentCash)
	require.NoError(t, err)

	voucher := &Voucher{Name: "Bono", TotalSessions: 5, PriceSession: decimal.NewFromInt(10)}
	require.NoError(t, repo.CreateVoucher(ctx, voucher, []uint{cut.ID}))
	cv := &ClientVoucher{ClientID: client.ID, VoucherID: voucher.ID}
	cv.ApplyDefaults(time.Now())
	require.NoError(t, repo.CreateClientVoucher(ctx, cv))

	require.NoError(t, repo.DeleteClient(ctx, client.ID))

	_, err = repo.GetAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetClientVoucher(ctx, cv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	page, err := repo.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, page.Count)

	assert.ErrorIs(t, repo.DeleteClient(ctx, client.ID), ErrNotFound)
}

func TestDeleteEmployeeKeepsAppointments(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	client := mustClient(t, repo, "Ana", "García", "")
	employee := &Employee{FirstName: "Lucía", LastName: "Pérez", TelephoneNumber: "600111222"}
	require.NoError(t, repo.CreateEmployee(ctx, employee, nil))
	assert.Equal(t, DefaultEmployeeColor, employee.Color)

	a := &Appointment{ClientID: client.ID, EmployeeID: &employee.ID, StartTime: time.Now().UTC()}
	require.NoError(t, repo.CreateAppointment(ctx, a, nil))

	require.NoError(t, repo.DeleteEmployee(ctx, employee.ID))
	got, err := repo.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EmployeeID)
}

func TestEmployeeServicesByCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	nails := &Category{Name: "Uñas"}
	hair := &Category{Name: "Pelo", Color: "#00ff00"}
	require.NoError(t, repo.CreateCategory(ctx, nails))
	require.NoError(t, repo.CreateCategory(ctx, hair))
	assert.Equal(t, DefaultCategoryColor, nails.Color)

	mani := mustService(t, repo, "Manicura", "12.00", 30, &nails.ID)
	dye := mustService(t, repo, "Tinte", "40.00", 60, &hair.ID)
	cut := mustService(t, repo, "Corte", "15.00", 30, &hair.ID)

	employee := &Employee{FirstName: "Lucía", LastName: "Pérez", TelephoneNumber: "600111222"}
	require.NoError(t, repo.CreateEmployee(ctx, employee, []uint{mani.ID, dye.ID, cut.ID}))

	services, err := repo.EmployeeServices(ctx, employee.ID)
	require.NoError(t, err)
	names := []string{}
	for _, s := range services {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Corte", "Tinte", "Manicura"}, names)

	// nil keeps the assignments, an empty list clears them
	employee.Color = "#123456"
	require.NoError(t, repo.UpdateEmployee(ctx, employee, nil))
	services, err = repo.EmployeeServices(ctx, employee.ID)
	require.NoError(t, err)
	assert.Len(t, services, 3)

	require.NoError(t, repo.UpdateEmployee(ctx, employee, []uint{}))
	services, err = repo.EmployeeServices(ctx, employee.ID)
	require.NoError(t, err)
	assert.Empty(t, services)

	require.NoError(t, repo.DeleteCategory(ctx, hair.ID))
	got, err := repo.GetService(ctx, cut.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestRegisterTransactionTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	client := mustClient(t, repo, "Ana", "García", "")
	cut := mustService(t, repo, "Corte", "15.50", 30, nil)
	dye := mustService(t, repo, "Tinte", "40.25", 60, nil)
	a := &Appointment{ClientID: client.ID, StartTime: time.Now().UTC()}
	require.NoError(t, repo.CreateAppointment(ctx, a, []uint{cut.ID, dye.ID}))

	tx, err := repo.RegisterTransaction(ctx, a.ID, []uint{cut.ID, dye.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, "55.75", tx.TotalAmount.StringFixed(2))
	assert.Equal(t, PaymentVisa, tx.Method)
	assert.Equal(t, client.ID, tx.ClientID)

	empty, err := repo.RegisterTransaction(ctx, a.ID, nil, PaymentCash)
	require.NoError(t, err)
	assert.True(t, empty.TotalAmount.IsZero())

	_, err = repo.RegisterTransaction(ctx, 999, nil, PaymentCash)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.RegisterTransaction(ctx, a.ID, nil, "bitcoin")
	assert.True(t, IsValidation(err))

	payments, err := repo.ClientPayments(ctx, client.ID, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, payments.Count)
}

func TestStockMovements(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	supplier, err := repo.CreateSupplier(ctx, "  Proveedor  ")
	require.NoError(t, err)
	assert.Equal(t, "Proveedor", supplier.Name)
	_, err = repo.CreateSupplier(ctx, "Proveedor")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = repo.CreateSupplier(ctx, " ")
	assert.True(t, IsValidation(err))

	product := &Product{Name: "Champú", SupplierID: &supplier.ID, Price: decimal.RequireFromString("8.90"), Stock: 4}
	require.NoError(t, repo.CreateProduct(ctx, product))

	updated, err := repo.CreateMovement(ctx, product.ID, &StockMovement{Quantity: 3, MovementType: MovementDecrease, Reason: ReasonSale})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Stock)

	_, err = repo.CreateMovement(ctx, product.ID, &StockMovement{Quantity: 2, MovementType: MovementDecrease, Reason: ReasonSale})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err := repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock, "a rejected movement leaves the stock alone")

	movements, err := repo.ProductMovements(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 1)

	low, err := repo.LowStockProducts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, low, 1)

	require.NoError(t, repo.DeleteSupplier(ctx, supplier.ID))
	_, err = repo.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientVoucherRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	client := mustClient(t, repo, "Ana", "García", "")
	voucher := &Voucher{Name: "Bono", TotalSessions: 2, PriceSession: decimal.NewFromInt(30), Discount: 10}
	require.NoError(t, repo.CreateVoucher(ctx, voucher, nil))
	assert.Equal(t, "54.00", voucher.DiscountedPrice.StringFixed(2))

	cv := &ClientVoucher{ClientID: client.ID, VoucherID: voucher.ID}
	cv.ApplyDefaults(now)
	require.NoError(t, repo.CreateClientVoucher(ctx, cv))
	assert.EqualValues(t, 2, *cv.SessionsRemaining)
	assert.True(t, cv.IsActive)

	err := repo.CreateClientVoucher(ctx, &ClientVoucher{ClientID: client.ID, VoucherID: 999, PurchaseDate: now, ExpirationDate: now.AddDate(0, 1, 0)})
	assert.True(t, IsValidation(err))

	_, err = repo.RedeemClientVoucher(ctx, cv.ID, now)
	require.NoError(t, err)
	redeemed, err := repo.RedeemClientVoucher(ctx, cv.ID, now)
	require.NoError(t, err)
	assert.False(t, redeemed.IsActive)
	_, err = repo.RedeemClientVoucher(ctx, cv.ID, now)
	assert.ErrorIs(t, err, ErrVoucherUnavailable)

	other := &ClientVoucher{ClientID: client.ID, VoucherID: voucher.ID, PurchaseDate: Today(now).AddDate(0, -4, 0), ExpirationDate: Today(now).AddDate(0, 0, -1)}
	require.NoError(t, repo.CreateClientVoucher(ctx, other))
	n, err := repo.ExpireClientVouchers(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetClientVoucher(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	list, err := repo.ListClientVouchers(ctx, client.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
