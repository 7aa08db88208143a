package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"salon-manager/models"
)

type EmployeeHandler struct {
	Deps
}

func NewEmployeeHandler(d Deps) *EmployeeHandler {
	return &EmployeeHandler{Deps: d}
}

// EmployeeRequest leaves Services nil when the field is absent, which keeps
// the current assignments on update.
type EmployeeRequest struct {
	FirstName       string  `json:"first_name" form:"first_name"`
	LastName        string  `json:"last_name" form:"last_name"`
	TelephoneNumber string  `json:"telephone_number" form:"telephone_number"`
	Email           *string `json:"email" form:"email"`
	Color           string  `json:"color" form:"color"`
	Services        *[]uint `json:"services" form:"services"`
}

type ServiceIDsRequest struct {
	Services []uint `json:"services" form:"services"`
}

func (r EmployeeRequest) employee() *models.Employee {
	return &models.Employee{
		FirstName:       strings.TrimSpace(r.FirstName),
		LastName:        strings.TrimSpace(r.LastName),
		TelephoneNumber: strings.TrimSpace(r.TelephoneNumber),
		Email:           blankToNil(r.Email),
		Color:           strings.TrimSpace(r.Color),
	}
}

func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	employees, err := h.Repo.ListEmployees(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	var req EmployeeRequest
	if !bind(c, &req) {
		return
	}
	employee := req.employee()
	if err := h.Repo.CreateEmployee(c.Request.Context(), employee, idsOrNil(req.Services)); err != nil {
		respondError(c, err)
		return
	}
	h.invalidateAgenda(c.Request.Context())
	c.JSON(http.StatusCreated, employee)
}

func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	employee, err := h.Repo.GetEmployee(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req EmployeeRequest
	if !bind(c, &req) {
		return
	}
	current, err := h.Repo.GetEmployee(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	employee := req.employee()
	employee.ID = current.ID
	employee.CreatedAt = current.CreatedAt
	if err := h.Repo.UpdateEmployee(c.Request.Context(), employee, idsOrNil(req.Services)); err != nil {
		respondError(c, err)
		return
	}
	if req.Services == nil {
		employee.Services = current.Services
	}
	h.invalidateAgenda(c.Request.Context())
	c.JSON(http.StatusOK, employee)
}

func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Repo.DeleteEmployee(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.invalidateAgenda(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *EmployeeHandler) EmployeeServices(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	services, err := h.Repo.EmployeeServices(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services, "groups": models.GroupByCategory(services)})
}

func (h *EmployeeHandler) AssignServices(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ServiceIDsRequest
	if !bind(c, &req) {
		return
	}
	services, err := h.Repo.AssignServices(c.Request.Context(), id, req.Services)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateAgenda(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// AssignableServices lists the services on offer, for picking an
// employee's assignments.
func (h *EmployeeHandler) AssignableServices(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	employee, err := h.Repo.GetEmployee(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	services, err := h.Repo.AvailableServices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	assigned := make([]uint, 0, len(employee.Services))
	for _, s := range employee.Services {
		assigned = append(assigned, s.ID)
	}
	c.JSON(http.StatusOK, gin.H{
		"employee": employee,
		"assigned": assigned,
		"groups":   models.GroupByCategory(services),
	})
}
