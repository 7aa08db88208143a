package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type AppointmentStore interface {
	// AgendaAppointments lists appointments starting on or after from and
	// before the day after to. Either bound may be nil.
	AgendaAppointments(ctx context.Context, from, to *time.Time) ([]Appointment, error)
	CreateAppointment(ctx context.Context, appointment *Appointment, serviceIDs []uint) error
	GetAppointment(ctx context.Context, id uint) (*Appointment, error)
	// UpdateAppointment leaves the booked services alone when serviceIDs is nil.
	UpdateAppointment(ctx context.Context, appointment *Appointment, serviceIDs []uint) error
	DeleteAppointment(ctx context.Context, id uint) error
}

func (r *GormRepository) AgendaAppointments(ctx context.Context, from, to *time.Time) ([]Appointment, error) {
	q := r.conn(ctx).
		Preload("Client").
		Preload("Employee").
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("services.name") }).
		Preload("Services.Category").
		Order("start_time").Order("client_id").Order("id")
	if from != nil {
		q = q.Where("start_time >= ?", Today(*from))
	}
	if to != nil {
		q = q.Where("start_time < ?", Today(*to).AddDate(0, 0, 1))
	}

	appointments := []Appointment{}
	err := q.Find(&appointments).Error
	return appointments, err
}

// CreateAppointment books the services and, when there are any, sets the end
// time from their durations. A submitted end time only stands for an
// appointment without services.
func (r *GormRepository) CreateAppointment(ctx context.Context, appointment *Appointment, serviceIDs []uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		services, err := checkAppointmentRefs(tx, appointment, serviceIDs)
		if err != nil {
			return err
		}
		appointment.Services = services
		if len(services) > 0 {
			end := appointment.CalculateEndTime()
			appointment.EndTime = &end
		}

		appointment.Services = nil
		if err := tx.Omit("Client", "Employee").Create(appointment).Error; err != nil {
			return err
		}
		if len(services) > 0 {
			if err := tx.Model(appointment).Association("Services").Replace(services); err != nil {
				return err
			}
		}
		appointment.Services = services
		return nil
	})
}

func (r *GormRepository) GetAppointment(ctx context.Context, id uint) (*Appointment, error) {
	var appointment Appointment
	err := r.conn(ctx).
		Preload("Client").
		Preload("Employee").
		Preload("Services.Category").
		First(&appointment, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &appointment, nil
}

// UpdateAppointment keeps a submitted end time; without one it is recomputed
// from the booked services.
func (r *GormRepository) UpdateAppointment(ctx context.Context, appointment *Appointment, serviceIDs []uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var current Appointment
		if err := tx.Preload("Services").First(&current, appointment.ID).Error; err != nil {
			return notFound(err)
		}

		services, err := checkAppointmentRefs(tx, appointment, serviceIDs)
		if err != nil {
			return err
		}
		if serviceIDs == nil {
			services = current.Services
		}

		appointment.Services = services
		if appointment.EndTime == nil && len(services) > 0 {
			end := appointment.CalculateEndTime()
			appointment.EndTime = &end
		}

		appointment.Services = nil
		appointment.CreatedAt = current.CreatedAt
		if err := tx.Omit("Client", "Employee", "Services").Save(appointment).Error; err != nil {
			return err
		}
		if serviceIDs != nil {
			assoc := tx.Model(appointment).Association("Services")
			if len(services) == 0 {
				err = assoc.Clear()
			} else {
				err = assoc.Replace(services)
			}
			if err != nil {
				return err
			}
		}
		appointment.Services = services
		return nil
	})
}

// checkAppointmentRefs verifies the client and employee exist and loads the
// requested services.
func checkAppointmentRefs(tx *gorm.DB, appointment *Appointment, serviceIDs []uint) ([]Service, error) {
	v := NewValidationError()
	if appointment.ClientID != 0 {
		var n int64
		if err := tx.Model(&Client{}).Where("id = ?", appointment.ClientID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			v.Add("client", "select a valid choice")
		}
	}
	if appointment.EmployeeID != nil {
		var n int64
		if err := tx.Model(&Employee{}).Where("id = ?", *appointment.EmployeeID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			v.Add("employee", "select a valid choice")
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	return byIDs[Service](tx, "services", serviceIDs)
}

func (r *GormRepository) DeleteAppointment(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Appointment{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return deleteAppointments(tx, []uint{id})
	})
}

// deleteAppointments removes appointments with their booked services and the
// transactions registered against them.
func deleteAppointments(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := deleteTransactions(tx, tx.Model(&Transaction{}).Where("appointment_id IN ?", ids)); err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM appointment_services WHERE appointment_id IN ?", ids).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&Appointment{}).Error
}
