package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salon-manager/middleware"
	"salon-manager/monitoring"
)

const agendaPath = "/api/v1/appointments/agenda"

// NewRouter wires every route. loginLimiter throttles POST /auth/login per
// client address; nil disables throttling.
func NewRouter(d Deps, loginLimiter *middleware.RateLimiter) *gin.Engine {
	monitoring.Init()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(d.Log),
		middleware.SentryMiddleware(),
		middleware.PrometheusMetrics(),
		middleware.ErrorHandler(d.Log),
	)

	health := NewHealthHandler(d)
	router.GET("/health", health.Health)
	router.GET("/metrics", gin.WrapH(monitoring.Handler()))
	router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, agendaPath) })

	api := router.Group("/api/v1")

	authHandler := NewAuthHandler(d)
	login := []gin.HandlerFunc{}
	if loginLimiter != nil {
		login = append(login, middleware.RateLimit(loginLimiter))
	}
	api.POST("/auth/login", append(login, authHandler.Login)...)

	protected := api.Group("")
	protected.Use(middleware.Auth(d.JWTSecret))

	appointments := NewAppointmentHandler(d)
	{
		g := protected.Group("/appointments")
		g.GET("/agenda", appointments.Agenda)
		g.GET("/new", appointments.NewAppointment)
		g.POST("", appointments.CreateAppointment)
		g.GET("/:id", appointments.GetAppointment)
		g.PUT("/:id", appointments.UpdateAppointment)
		g.DELETE("/:id", appointments.DeleteAppointment)
	}

	clients := NewClientHandler(d)
	{
		g := protected.Group("/clients")
		g.GET("", clients.ListClients)
		g.POST("", clients.CreateClient)
		g.GET("/search", clients.SearchClients)
		g.GET("/export", clients.ExportClients)
		g.POST("/import", clients.ImportClients)
		g.GET("/:id", clients.GetClient)
		g.PUT("/:id", clients.UpdateClient)
		g.DELETE("/:id", clients.DeleteClient)
		g.GET("/:id/vouchers", clients.ListClientVouchers)
		g.POST("/:id/vouchers", clients.AssignVoucher)
		g.GET("/:id/payments", clients.ClientPayments)

		cv := protected.Group("/client-vouchers")
		cv.GET("/:id", clients.GetClientVoucher)
		cv.PUT("/:id", clients.UpdateClientVoucher)
		cv.DELETE("/:id", clients.DeleteClientVoucher)
		cv.POST("/:id/redeem", clients.RedeemClientVoucher)
	}

	employees := NewEmployeeHandler(d)
	{
		g := protected.Group("/employees")
		g.GET("", employees.ListEmployees)
		g.POST("", employees.CreateEmployee)
		g.GET("/:id", employees.GetEmployee)
		g.PUT("/:id", employees.UpdateEmployee)
		g.DELETE("/:id", employees.DeleteEmployee)
		g.GET("/:id/services", employees.EmployeeServices)
		g.PUT("/:id/services", employees.AssignServices)
		g.GET("/:id/assignable-services", employees.AssignableServices)
	}

	services := NewServiceHandler(d)
	{
		g := protected.Group("/services")
		g.POST("", services.CreateService)
		g.GET("/uncategorized", services.UncategorizedServices)
		g.GET("/:id", services.GetService)
		g.PUT("/:id", services.UpdateService)
		g.DELETE("/:id", services.DeleteService)

		cat := protected.Group("/categories")
		cat.GET("", services.ListCategories)
		cat.POST("", services.CreateCategory)
		cat.PUT("/:id", services.UpdateCategory)
		cat.DELETE("/:id", services.DeleteCategory)
		cat.GET("/:id/services", services.CategoryServices)

		v := protected.Group("/vouchers")
		v.GET("", services.ListVouchers)
		v.POST("", services.CreateVoucher)
		v.GET("/new", services.NewVoucher)
		v.GET("/:id", services.GetVoucher)
		v.PUT("/:id", services.UpdateVoucher)
		v.DELETE("/:id", services.DeleteVoucher)

		protected.GET("/search/:model", services.Search)
	}

	sales := NewSalesHandler(d)
	{
		g := protected.Group("/sales")
		g.GET("", sales.ListSales)
		g.GET("/new/:appointment_id", sales.NewSale)
		g.POST("/appointments/:appointment_id", sales.RegisterTransaction)
		g.DELETE("/:id", sales.DeleteTransaction)
	}

	stock := NewStockHandler(d)
	{
		s := protected.Group("/suppliers")
		s.GET("", stock.ListSuppliers)
		s.POST("", stock.CreateSupplier)
		s.PUT("/:id", stock.RenameSupplier)
		s.DELETE("/:id", stock.DeleteSupplier)
		s.GET("/:id/products", stock.SupplierProducts)

		p := protected.Group("/products")
		p.POST("", stock.CreateProduct)
		p.GET("/search", stock.SearchProducts)
		p.GET("/unsupplied", stock.UnsuppliedProducts)
		p.GET("/low-stock", stock.LowStockProducts)
		p.GET("/:id", stock.GetProduct)
		p.PUT("/:id", stock.UpdateProduct)
		p.DELETE("/:id", stock.DeleteProduct)
		p.POST("/:id/movements", stock.CreateMovement)
		p.GET("/:id/movements", stock.ProductMovements)
	}

	return router
}
