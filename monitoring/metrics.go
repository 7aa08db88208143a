package monitoring

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

var (
	AppointmentsBooked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salon_appointments_booked_total",
			Help: "Appointments created",
		},
	)

	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_transactions_total",
			Help: "Transactions registered, by payment method",
		},
		[]string{"method"},
	)

	RevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_revenue_total",
			Help: "Sum of registered transaction amounts, by payment method",
		},
		[]string{"method"},
	)

	StockMovements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_stock_movements_total",
			Help: "Stock movements recorded",
		},
		[]string{"type", "reason"},
	)

	LowStockAlerts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salon_low_stock_alerts_total",
			Help: "Products that reached the low stock threshold",
		},
	)

	ClientImports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_client_import_rows_total",
			Help: "Rows processed by client spreadsheet imports",
		},
		[]string{"result"},
	)

	VouchersExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salon_vouchers_expired_total",
			Help: "Client vouchers deactivated by the expiry job",
		},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_cache_lookups_total",
			Help: "Agenda cache lookups",
		},
		[]string{"result"},
	)
)

var once sync.Once

// Init registers every collector. Calling it more than once is harmless.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestDuration,
			AppointmentsBooked,
			TransactionsTotal,
			RevenueTotal,
			StockMovements,
			LowStockAlerts,
			ClientImports,
			VouchersExpired,
			CacheLookups,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
