package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"salon-manager/models"
)

type ServiceHandler struct {
	Deps
}

func NewServiceHandler(d Deps) *ServiceHandler {
	return &ServiceHandler{Deps: d}
}

type ServiceRequest struct {
	Name       string          `json:"name" form:"name"`
	Duration   string          `json:"duration" form:"duration"`
	Price      decimal.Decimal `json:"price" form:"price"`
	CategoryID *uint           `json:"category" form:"category"`
	Available  string          `json:"available" form:"available"`
}

type ServiceResponse struct {
	models.Service
	Duration string `json:"duration"`
	Color    string `json:"color"`
}

type CategoryRequest struct {
	Name  string `json:"name" form:"name"`
	Color string `json:"color" form:"color"`
}

type VoucherRequest struct {
	Name          string          `json:"name" form:"name"`
	Services      *[]uint         `json:"services" form:"services"`
	TotalSessions uint            `json:"total_sessions" form:"total_sessions"`
	PriceSession  decimal.Decimal `json:"price_session" form:"price_session"`
	Discount      int             `json:"discount" form:"discount"`
}

// service converts the request, reading the "HH:MM" duration. A blank
// duration means the service has none.
func (r ServiceRequest) service() (*models.Service, error) {
	s := &models.Service{
		Name:       strings.TrimSpace(r.Name),
		Price:      r.Price,
		CategoryID: r.CategoryID,
		Available:  strings.ToUpper(strings.TrimSpace(r.Available)),
	}
	if raw := strings.TrimSpace(r.Duration); raw != "" {
		minutes, err := models.ParseDuration(raw)
		if err != nil {
			return nil, fieldError("duration", "invalid duration format")
		}
		s.DurationMinutes = &minutes
	}
	return s, nil
}

func toServiceResponse(s *models.Service) ServiceResponse {
	out := ServiceResponse{Service: *s, Color: s.Color()}
	if s.DurationMinutes != nil {
		out.Duration = models.FormatDuration(s.Duration())
	}
	return out
}

func toServiceResponses(services []models.Service) []ServiceResponse {
	out := make([]ServiceResponse, 0, len(services))
	for i := range services {
		out = append(out, toServiceResponse(&services[i]))
	}
	return out
}

func (h *ServiceHandler) CreateService(c *gin.Context) {
	var req ServiceRequest
	if !bind(c, &req) {
		return
	}
	service, err := req.service()
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Repo.CreateService(c.Request.Context(), service); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toServiceResponse(service))
}

func (h *ServiceHandler) GetService(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	service, err := h.Repo.GetService(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceResponse(service))
}

func (h *ServiceHandler) UpdateService(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ServiceRequest
	if !bind(c, &req) {
		return
	}
	current, err := h.Repo.GetService(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	service, err := req.service()
	if err != nil {
		respondError(c, err)
		return
	}
	service.ID = current.ID
	service.CreatedAt = current.CreatedAt
	if err := h.Repo.UpdateService(c.Request.Context(), service); err != nil {
		respondError(c, err)
		return
	}
	h.invalidateAgenda(c.Request.Context())
	c.JSON(http.StatusOK, toServiceResponse(service))
}

func (h *ServiceHandler) DeleteService(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Repo.DeleteService(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.invalidateAgenda(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *ServiceHandler) UncategorizedServices(c *gin.Context) {
	services, err := h.Repo.UncategorizedServices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceResponses(services))
}

func (h *ServiceHandler) ListCategories(c *gin.Context) {
	categories, err := h.Repo.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	uncategorized, err := h.Repo.UncategorizedServices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories":             categories,
		"uncategorized_services": toServiceResponses(uncategorized),
	})
}

func (h *ServiceHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if !bind(c, &req) {
		return
	}
	category := &models.Category{Name: strings.TrimSpace(req.Name), Color: strings.TrimSpace(req.Color)}
	if err := h.Repo.CreateCategory(c.Request.Context(), category); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *ServiceHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if !bind(c, &req) {
		return
	}
	category, err := h.Repo.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	category.Name = strings.TrimSpace(req.Name)
	category.Color = strings.TrimSpace(req.Color)
	if err := h.Repo.UpdateCategory(c.Request.Context(), category); err != nil {
		respondError(c, err)
		return
	}
	h.invalidateAgenda(c.Request.Context())
	c.JSON(http.StatusOK, category)
}

func (h *ServiceHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Repo.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.invalidateAgenda(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *ServiceHandler) CategoryServices(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	category, err := h.Repo.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.Repo.CategoryServices(c.Request.Context(), id, c.Query("page"))
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range page.Items {
		page.Items[i].Category = category
	}
	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"services": models.Page[ServiceResponse]{
			Items:       toServiceResponses(page.Items),
			Number:      page.Number,
			NumPages:    page.NumPages,
			Count:       page.Count,
			HasNext:     page.HasNext,
			HasPrevious: page.HasPrevious,
		},
	})
}

func (h *ServiceHandler) ListVouchers(c *gin.Context) {
	page, err := h.Repo.ListVouchers(c.Request.Context(), c.Query("page"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// NewVoucher lists every service grouped by category for building a bundle.
func (h *ServiceHandler) NewVoucher(c *gin.Context) {
	services, err := h.Repo.AllServices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": models.GroupByCategory(services)})
}

func (h *ServiceHandler) CreateVoucher(c *gin.Context) {
	var req VoucherRequest
	if !bind(c, &req) {
		return
	}
	voucher := req.voucher()
	if err := h.Repo.CreateVoucher(c.Request.Context(), voucher, idsOrNil(req.Services)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, voucher)
}

func (h *ServiceHandler) GetVoucher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	voucher, err := h.Repo.GetVoucher(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voucher": voucher, "groups": models.GroupByCategory(voucher.Services)})
}

func (h *ServiceHandler) UpdateVoucher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req VoucherRequest
	if !bind(c, &req) {
		return
	}
	current, err := h.Repo.GetVoucher(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	voucher := req.voucher()
	voucher.ID = current.ID
	voucher.CreatedAt = current.CreatedAt
	if err := h.Repo.UpdateVoucher(c.Request.Context(), voucher, idsOrNil(req.Services)); err != nil {
		respondError(c, err)
		return
	}
	if req.Services == nil {
		voucher.Services = current.Services
	}
	c.JSON(http.StatusOK, voucher)
}

func (h *ServiceHandler) DeleteVoucher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Repo.DeleteVoucher(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Search looks up services or vouchers by name. Unknown models find nothing.
func (h *ServiceHandler) Search(c *gin.Context) {
	model := c.Param("model")
	query := strings.TrimSpace(c.Query("query"))

	var (
		results interface{} = []struct{}{}
		err     error
	)
	switch model {
	case "service":
		var services []models.Service
		services, err = h.Repo.SearchServices(c.Request.Context(), query)
		results = toServiceResponses(services)
	case "voucher":
		results, err = h.Repo.SearchVouchers(c.Request.Context(), query)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": model, "query": query, "results": results})
}

func (r VoucherRequest) voucher() *models.Voucher {
	return &models.Voucher{
		Name:          strings.TrimSpace(r.Name),
		TotalSessions: r.TotalSessions,
		PriceSession:  r.PriceSession,
		Discount:      r.Discount,
	}
}
