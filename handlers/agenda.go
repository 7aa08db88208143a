package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"salon-manager/models"
	"salon-manager/monitoring"
)

const (
	agendaCachePrefix = "agenda:"
	agendaCacheTTL    = 10 * time.Minute

	noEmployeesName = "Sin empleados"
	noServicesLabel = "Sin tratamiento"
)

// Agenda is the calendar payload: one column per employee.
type Agenda struct {
	Columns     []AgendaColumn    `json:"appointments_data"`
	ColumnWidth float64           `json:"column_width"`
	Employees   []models.Employee `json:"employees"`
}

// AgendaColumn.EmployeeID is the employee id, or "" for the placeholder
// column shown when there are no employees.
type AgendaColumn struct {
	EmployeeID   interface{}   `json:"employee_id"`
	EmployeeName string        `json:"employee_name"`
	Appointments []AgendaEvent `json:"appointments"`
}

type AgendaEvent struct {
	ID            uint        `json:"id"`
	Title         string      `json:"title"`
	Start         string      `json:"start"`
	End           string      `json:"end"`
	ExtendedProps AgendaProps `json:"extendedProps"`
}

type AgendaProps struct {
	Client        string `json:"client"`
	Services      string `json:"services"`
	Employee      string `json:"employee"`
	EmployeeID    uint   `json:"employee_id"`
	Notes         string `json:"notes"`
	EmployeeColor string `json:"employeeColor"`
	CategoryColor string `json:"categoryColor"`
}

// BuildAgenda places every appointment with an end time in its employee's
// column. Appointments without an employee are not shown.
func BuildAgenda(employees []models.Employee, appointments []models.Appointment) Agenda {
	if len(employees) == 0 {
		return Agenda{
			Columns: []AgendaColumn{{
				EmployeeID:   "",
				EmployeeName: noEmployeesName,
				Appointments: []AgendaEvent{},
			}},
			ColumnWidth: 100,
			Employees:   []models.Employee{},
		}
	}

	byEmployee := make(map[uint][]AgendaEvent, len(employees))
	for i := range appointments {
		a := &appointments[i]
		if a.EmployeeID == nil || a.EndTime == nil || a.StartTime.IsZero() {
			continue
		}
		byEmployee[*a.EmployeeID] = append(byEmployee[*a.EmployeeID], toAgendaEvent(a))
	}

	columns := make([]AgendaColumn, 0, len(employees))
	for _, e := range employees {
		events := byEmployee[e.ID]
		if events == nil {
			events = []AgendaEvent{}
		}
		columns = append(columns, AgendaColumn{
			EmployeeID:   e.ID,
			EmployeeName: e.String(),
			Appointments: events,
		})
	}
	return Agenda{
		Columns:     columns,
		ColumnWidth: 100 / float64(len(employees)),
		Employees:   employees,
	}
}

func toAgendaEvent(a *models.Appointment) AgendaEvent {
	services := noServicesLabel
	if len(a.Services) > 0 {
		services = a.Title()
	}

	props := AgendaProps{
		Services:      services,
		CategoryColor: serviceColors(a.Services),
	}
	if a.Client != nil {
		props.Client = a.Client.String()
	}
	if a.Employee != nil {
		props.Employee = a.Employee.String()
		props.EmployeeID = a.Employee.ID
		props.EmployeeColor = a.Employee.Color
	}
	if a.Notes != nil {
		props.Notes = *a.Notes
	}

	return AgendaEvent{
		ID:            a.ID,
		Title:         a.Title(),
		Start:         formatDateTime(a.StartTime),
		End:           formatDateTime(*a.EndTime),
		ExtendedProps: props,
	}
}

// serviceColors is the sorted set of distinct service colours.
func serviceColors(services []models.Service) string {
	seen := map[string]bool{}
	colors := []string{}
	for _, s := range services {
		color := s.Color()
		if !seen[color] {
			seen[color] = true
			colors = append(colors, color)
		}
	}
	sort.Strings(colors)
	return strings.Join(colors, ", ")
}

// Agenda serves the calendar, optionally limited to the from/to dates.
func (h *AppointmentHandler) Agenda(c *gin.Context) {
	var from, to *time.Time
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &from}, {"to", &to}} {
		raw := c.Query(bound.name)
		if raw == "" {
			continue
		}
		t, err := parseDate(bound.name, raw)
		if err != nil {
			respondError(c, err)
			return
		}
		*bound.dst = &t
	}

	ctx := c.Request.Context()
	key := agendaCachePrefix + c.Query("from") + ":" + c.Query("to")
	if agenda, ok := h.cachedAgenda(ctx, key); ok {
		c.JSON(http.StatusOK, agenda)
		return
	}

	employees, err := h.Repo.ListEmployees(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	appointments, err := h.Repo.AgendaAppointments(ctx, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	agenda := BuildAgenda(employees, appointments)
	h.cacheAgenda(ctx, key, agenda)
	c.JSON(http.StatusOK, agenda)
}

func (h *AppointmentHandler) cachedAgenda(ctx context.Context, key string) (Agenda, bool) {
	var agenda Agenda
	if h.Cache == nil {
		return agenda, false
	}
	raw, err := h.Cache.GetFromCache(ctx, key)
	if err != nil {
		monitoring.CacheLookups.WithLabelValues("miss").Inc()
		return agenda, false
	}
	if err := json.Unmarshal([]byte(raw), &agenda); err != nil {
		monitoring.CacheLookups.WithLabelValues("miss").Inc()
		return agenda, false
	}
	monitoring.CacheLookups.WithLabelValues("hit").Inc()
	return agenda, true
}

func (h *AppointmentHandler) cacheAgenda(ctx context.Context, key string, agenda Agenda) {
	if h.Cache == nil {
		return
	}
	data, err := json.Marshal(agenda)
	if err != nil {
		return
	}
	if err := h.Cache.SetToCache(ctx, key, string(data), agendaCacheTTL); err != nil {
		h.Log.WithError(err).WithField("key", key).Warn("failed to cache agenda")
	}
}
