package models

import (
	"context"

	"gorm.io/gorm"
)

const TransactionsPerPage = 30

type SalesStore interface {
	ListTransactions(ctx context.Context, page string) (*Page[Transaction], error)
	ClientPayments(ctx context.Context, clientID uint, page string) (*Page[Transaction], error)
	// RegisterTransaction charges the client of the appointment for the
	// selected services.
	RegisterTransaction(ctx context.Context, appointmentID uint, serviceIDs []uint, method string) (*Transaction, error)
	DeleteTransaction(ctx context.Context, id uint) error
}

func (r *GormRepository) ListTransactions(ctx context.Context, page string) (*Page[Transaction], error) {
	q := r.conn(ctx).Model(&Transaction{}).Order("date DESC").Order("id DESC")
	return Paginate[Transaction](q, page, TransactionsPerPage, "Client", "Appointment.Services", "Services")
}

func (r *GormRepository) ClientPayments(ctx context.Context, clientID uint, page string) (*Page[Transaction], error) {
	if _, err := r.GetClientByID(ctx, clientID); err != nil {
		return nil, err
	}
	q := r.conn(ctx).Model(&Transaction{}).Where("client_id = ?", clientID).Order("date DESC").Order("id DESC")
	return Paginate[Transaction](q, page, TransactionsPerPage, "Services")
}

func (r *GormRepository) RegisterTransaction(ctx context.Context, appointmentID uint, serviceIDs []uint, method string) (*Transaction, error) {
	var t Transaction
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var appointment Appointment
		if err := tx.Preload("Client").First(&appointment, appointmentID).Error; err != nil {
			return notFound(err)
		}
		services, err := byIDs[Service](tx, "services", serviceIDs)
		if err != nil {
			return err
		}

		t = Transaction{
			AppointmentID: &appointment.ID,
			ClientID:      appointment.ClientID,
			TotalAmount:   SumPrices(services),
			Method:        method,
		}
		if err := tx.Omit("Appointment", "Client", "Services").Create(&t).Error; err != nil {
			return err
		}
		if len(services) > 0 {
			if err := tx.Model(&t).Association("Services").Replace(services); err != nil {
				return err
			}
		}
		t.Services = services
		t.Client = appointment.Client
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormRepository) DeleteTransaction(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Transaction{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return deleteTransactions(tx, tx.Model(&Transaction{}).Where("id = ?", id))
	})
}

// deleteTransactions removes every transaction matched by query together with
// its service rows.
func deleteTransactions(tx *gorm.DB, query *gorm.DB) error {
	var ids []uint
	if err := query.Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Exec("DELETE FROM transaction_services WHERE transaction_id IN ?", ids).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&Transaction{}).Error
}
