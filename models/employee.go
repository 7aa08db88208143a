package models

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

const DefaultEmployeeColor = "#3498db"

var (
	employeePhonePattern = regexp.MustCompile(`^\+?\d{1,3}?[-.\s]?\(?\d{1,4}?\)?[-.\s]?\d{1,4}[-.\s]?\d{1,4}$`)
	hexColorPattern      = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

type Employee struct {
	Model
	FirstName       string    `gorm:"size:50;not null" json:"first_name"`
	LastName        string    `gorm:"size:100;not null" json:"last_name"`
	TelephoneNumber string    `gorm:"size:15;not null;uniqueIndex" json:"telephone_number"`
	Email           *string   `gorm:"uniqueIndex" json:"email"`
	Color           string    `gorm:"size:7;not null;default:'#3498db'" json:"color"`
	Services        []Service `gorm:"many2many:employee_services;" json:"services,omitempty"`
}

func (e Employee) String() string {
	return fmt.Sprintf("%s %s", e.FirstName, e.LastName)
}

func (e *Employee) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(e.FirstName) == "" {
		v.Add("first_name", "this field is required")
	} else if len([]rune(e.FirstName)) > 50 {
		v.Add("first_name", "ensure this value has at most 50 characters")
	}
	if strings.TrimSpace(e.LastName) == "" {
		v.Add("last_name", "this field is required")
	} else if len([]rune(e.LastName)) > 100 {
		v.Add("last_name", "ensure this value has at most 100 characters")
	}
	switch {
	case strings.TrimSpace(e.TelephoneNumber) == "":
		v.Add("telephone_number", "this field is required")
	case len(e.TelephoneNumber) > 15 || !employeePhonePattern.MatchString(e.TelephoneNumber):
		v.Add("telephone_number", "enter a valid phone number")
	}
	if e.Email != nil {
		if _, err := mail.ParseAddress(*e.Email); err != nil {
			v.Add("email", "enter a valid email address")
		}
	}
	if !hexColorPattern.MatchString(e.Color) {
		v.Add("color", "enter a colour as #rrggbb")
	}
	return v.OrNil()
}

func (e *Employee) BeforeSave(tx *gorm.DB) error {
	if e.Color == "" {
		e.Color = DefaultEmployeeColor
	}
	e.Email = nullIfBlank(e.Email)
	return e.Validate()
}
