package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salon-manager/models"
	"salon-manager/monitoring"
	"salon-manager/utils"
)

type AppointmentHandler struct {
	Deps
}

func NewAppointmentHandler(d Deps) *AppointmentHandler {
	return &AppointmentHandler{Deps: d}
}

// AppointmentRequest mirrors the booking form: a date plus start and end
// times of day. A nil Services keeps the booked services on update.
type AppointmentRequest struct {
	ClientID   uint    `json:"client" form:"client"`
	Services   *[]uint `json:"services" form:"services"`
	EmployeeID *uint   `json:"employee" form:"employee"`
	Date       string  `json:"date" form:"date"`
	StartTime  string  `json:"start_time" form:"start_time"`
	EndTime    string  `json:"end_time" form:"end_time"`
	Notes      *string `json:"notes" form:"notes"`
}

type AppointmentResponse struct {
	ID         uint                   `json:"id"`
	ClientID   uint                   `json:"client_id"`
	Client     string                 `json:"client"`
	EmployeeID *uint                  `json:"employee_id"`
	Employee   string                 `json:"employee"`
	Date       string                 `json:"date"`
	StartTime  string                 `json:"start_time"`
	EndTime    *string                `json:"end_time"`
	Notes      *string                `json:"notes"`
	Title      string                 `json:"title"`
	Services   []ServiceResponse      `json:"services"`
	Groups     []models.CategoryGroup `json:"groups"`
}

// appointment builds the model from the form fields, collecting every field
// error before returning.
func (r AppointmentRequest) appointment() (*models.Appointment, error) {
	v := models.NewValidationError()
	if r.ClientID == 0 {
		v.Add("client", "this field is required")
	}

	var (
		day         time.Time
		start, end  time.Duration
		haveDay     bool
		haveStart   bool
		endProvided = strings.TrimSpace(r.EndTime) != ""
	)
	if strings.TrimSpace(r.Date) == "" {
		v.Add("date", "this field is required")
	} else if t, err := parseDate("date", r.Date); err != nil {
		v.Add("date", "enter a valid date")
	} else {
		day, haveDay = t, true
	}
	if strings.TrimSpace(r.StartTime) == "" {
		v.Add("start_time", "this field is required")
	} else if d, err := parseClock("start_time", r.StartTime); err != nil {
		v.Add("start_time", "enter a valid time")
	} else {
		start, haveStart = d, true
	}
	if endProvided {
		d, err := parseClock("end_time", r.EndTime)
		if err != nil {
			v.Add("end_time", "enter a valid time")
		}
		end = d
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	a := &models.Appointment{
		ClientID:   r.ClientID,
		EmployeeID: r.EmployeeID,
		Notes:      blankToNil(r.Notes),
	}
	if haveDay && haveStart {
		a.StartTime = day.Add(start)
	}
	if endProvided {
		t := day.Add(end)
		a.EndTime = &t
	}
	return a, nil
}

// NewAppointment returns the booking form context for one employee: the
// services they offer grouped by category and their durations in minutes.
func (h *AppointmentHandler) NewAppointment(c *gin.Context) {
	raw := c.Query("employee_id")
	if raw == "" || !isDigits(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "create an employee before adding appointments"})
		return
	}
	ctx := c.Request.Context()

	var services []models.Service
	id, _ := parseUint(raw)
	employee, err := h.Repo.GetEmployee(ctx, id)
	switch {
	case err == nil:
		services, err = h.Repo.EmployeeServices(ctx, id)
	case errors.Is(err, models.ErrNotFound):
		employee = nil
		services, err = h.Repo.AllServices(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	durations := make(map[string]int, len(services))
	for _, s := range services {
		durations[s.Name] = int(s.Duration() / time.Minute)
	}

	clients, err := h.Repo.AllClients(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	employees, err := h.Repo.ListEmployees(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	initial := gin.H{}
	if raw := c.Query("date"); raw != "" {
		if t, ok := parseLocalDateTime(raw); ok {
			initial["date"] = t.Format(dateLayout)
			initial["start_time"] = t.Format("15:04:05")
		}
	}
	if employee != nil {
		initial["employee"] = employee.ID
	}

	c.JSON(http.StatusOK, gin.H{
		"employee_id":       raw,
		"employee":          employee,
		"clients":           toClientResponses(clients),
		"employees":         employees,
		"groups":            models.GroupByCategory(services),
		"service_durations": durations,
		"initial":           initial,
	})
}

func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req AppointmentRequest
	if !bind(c, &req) {
		return
	}
	appointment, err := req.appointment()
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.Repo.CreateAppointment(ctx, appointment, idsOrNil(req.Services)); err != nil {
		respondError(c, err)
		return
	}

	created, err := h.Repo.GetAppointment(ctx, appointment.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	monitoring.AppointmentsBooked.Inc()
	h.Log.WithFields(logrus.Fields{
		"appointment_id": created.ID,
		"client_id":      created.ClientID,
		"start":          formatDateTime(created.StartTime),
	}).Info("appointment booked")
	h.invalidateAgenda(ctx)
	h.Events.PublishAsync(ctx, utils.TopicAppointmentEvents, "appointment_created", created.ID, toAppointmentResponse(created))

	c.JSON(http.StatusCreated, toAppointmentResponse(created))
}

func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	appointment, err := h.Repo.GetAppointment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appointment))
}

func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req AppointmentRequest
	if !bind(c, &req) {
		return
	}
	appointment, err := req.appointment()
	if err != nil {
		respondError(c, err)
		return
	}
	appointment.ID = id

	ctx := c.Request.Context()
	if err := h.Repo.UpdateAppointment(ctx, appointment, idsOrNil(req.Services)); err != nil {
		respondError(c, err)
		return
	}
	updated, err := h.Repo.GetAppointment(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidateAgenda(ctx)
	h.Events.PublishAsync(ctx, utils.TopicAppointmentEvents, "appointment_updated", id, toAppointmentResponse(updated))
	c.JSON(http.StatusOK, toAppointmentResponse(updated))
}

func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.Repo.DeleteAppointment(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	h.invalidateAgenda(ctx)
	h.Events.PublishAsync(ctx, utils.TopicAppointmentEvents, "appointment_deleted", id, nil)
	c.Status(http.StatusNoContent)
}

func toAppointmentResponse(a *models.Appointment) AppointmentResponse {
	out := AppointmentResponse{
		ID:         a.ID,
		ClientID:   a.ClientID,
		EmployeeID: a.EmployeeID,
		Date:       a.StartTime.Format(dateLayout),
		StartTime:  a.StartTime.Format("15:04:05"),
		Notes:      a.Notes,
		Title:      a.Title(),
		Services:   toServiceResponses(a.Services),
		Groups:     models.GroupByCategory(a.Services),
	}
	if a.Client != nil {
		out.Client = a.Client.String()
	}
	if a.Employee != nil {
		out.Employee = a.Employee.String()
	}
	if a.EndTime != nil {
		end := a.EndTime.Format("15:04:05")
		out.EndTime = &end
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
