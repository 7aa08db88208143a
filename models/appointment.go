package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Appointment struct {
	Model
	ClientID   uint       `gorm:"not null;index" json:"client_id"`
	Client     *Client    `gorm:"constraint:OnDelete:CASCADE;" json:"client,omitempty"`
	Services   []Service  `gorm:"many2many:appointment_services;" json:"services"`
	EmployeeID *uint      `gorm:"index" json:"employee_id"`
	Employee   *Employee  `gorm:"constraint:OnDelete:SET NULL;" json:"employee,omitempty"`
	StartTime  time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	Notes      *string    `json:"notes"`
}

func (a Appointment) String() string {
	return fmt.Sprintf("Appointment for %s on %s at %s", a.clientName(),
		a.StartTime.Format("2006-01-02"), a.StartTime.Format("15:04:05"))
}

func (a Appointment) clientName() string {
	if a.Client == nil {
		return ""
	}
	return a.Client.String()
}

// Title is the client's name followed by one service per line.
func (a Appointment) Title() string {
	names := make([]string, 0, len(a.Services))
	for _, s := range a.Services {
		names = append(names, s.Name)
	}
	return fmt.Sprintf("%s\n%s", a.clientName(), strings.Join(names, "\n "))
}

// TotalDuration sums the durations of every booked service.
func (a Appointment) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range a.Services {
		total += s.Duration()
	}
	return total
}

// CalculateEndTime is the start time pushed forward by the booked services.
func (a Appointment) CalculateEndTime() time.Time {
	return a.StartTime.Add(a.TotalDuration())
}

func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	v := NewValidationError()
	if a.ClientID == 0 {
		v.Add("client", "this field is required")
	}
	if a.StartTime.IsZero() {
		v.Add("start_time", "this field is required")
	}
	if a.EndTime != nil && a.EndTime.Before(a.StartTime) {
		v.Add("end_time", "the end time cannot be before the start time")
	}
	return v.OrNil()
}
