package models

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

const ClientsPerPage = 20

type ClientStore interface {
	ListClients(ctx context.Context, page string) (*Page[Client], error)
	AllClients(ctx context.Context) ([]Client, error)
	SearchClients(ctx context.Context, query string) ([]Client, error)
	CreateClient(ctx context.Context, client *Client) error
	GetClientByID(ctx context.Context, id uint) (*Client, error)
	UpdateClient(ctx context.Context, client *Client) error
	DeleteClient(ctx context.Context, id uint) error

	ListClientVouchers(ctx context.Context, clientID uint) ([]ClientVoucher, error)
	CreateClientVoucher(ctx context.Context, cv *ClientVoucher) error
	GetClientVoucher(ctx context.Context, id uint) (*ClientVoucher, error)
	UpdateClientVoucher(ctx context.Context, cv *ClientVoucher) error
	DeleteClientVoucher(ctx context.Context, id uint) error
	RedeemClientVoucher(ctx context.Context, id uint, now time.Time) (*ClientVoucher, error)
	ExpireClientVouchers(ctx context.Context, now time.Time) (int, error)
}

func (r *GormRepository) ListClients(ctx context.Context, page string) (*Page[Client], error) {
	q := r.conn(ctx).Model(&Client{}).Order("first_name").Order("last_name").Order("id")
	return Paginate[Client](q, page, ClientsPerPage)
}

func (r *GormRepository) AllClients(ctx context.Context) ([]Client, error) {
	var clients []Client
	err := r.conn(ctx).Order("first_name").Order("last_name").Order("id").Find(&clients).Error
	return clients, err
}

// SearchClients matches "first last" queries on both names, and single-word
// queries on either name or the telephone number.
func (r *GormRepository) SearchClients(ctx context.Context, query string) ([]Client, error) {
	clients := []Client{}
	query = strings.TrimSpace(query)
	if query == "" {
		return clients, nil
	}

	q := r.conn(ctx).Order("first_name").Order("last_name")
	if first, last, ok := strings.Cut(query, " "); ok {
		q = q.Where(containsCI("first_name"), likePattern(first)).
			Where(containsCI("last_name"), likePattern(last))
	} else {
		pattern := likePattern(query)
		q = q.Where(
			r.db.Where(containsCI("first_name"), pattern).
				Or(containsCI("last_name"), pattern).
				Or(containsCI("telephone_number"), pattern),
		)
	}

	err := q.Find(&clients).Error
	return clients, err
}

func (r *GormRepository) CreateClient(ctx context.Context, client *Client) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkClientUnique(tx, client); err != nil {
			return err
		}
		return tx.Create(client).Error
	})
}

func (r *GormRepository) GetClientByID(ctx context.Context, id uint) (*Client, error) {
	var client Client
	if err := r.conn(ctx).First(&client, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}

func (r *GormRepository) UpdateClient(ctx context.Context, client *Client) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkClientUnique(tx, client); err != nil {
			return err
		}
		return tx.Omit("Vouchers").Save(client).Error
	})
}

// checkClientUnique reports duplicates held by any other client as field
// errors rather than letting the unique index fail the insert.
func checkClientUnique(tx *gorm.DB, client *Client) error {
	v := NewValidationError()
	if phone := nullIfBlank(client.TelephoneNumber); phone != nil {
		taken, err := columnTaken(tx, &Client{}, "telephone_number", *phone, client.ID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("telephone_number", "a client with number %s already exists", *phone)
		}
	}
	if email := nullIfBlank(client.Email); email != nil {
		taken, err := columnTaken(tx, &Client{}, "email", *email, client.ID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("email", "a client with email %s already exists", *email)
		}
	}
	return v.OrNil()
}

// DeleteClient removes the client together with its appointments,
// transactions and vouchers.
func (r *GormRepository) DeleteClient(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var client Client
		if err := tx.First(&client, id).Error; err != nil {
			return notFound(err)
		}

		var appointmentIDs []uint
		if err := tx.Model(&Appointment{}).Where("client_id = ?", id).Pluck("id", &appointmentIDs).Error; err != nil {
			return err
		}
		if err := deleteAppointments(tx, appointmentIDs); err != nil {
			return err
		}
		if err := deleteTransactions(tx, tx.Model(&Transaction{}).Where("client_id = ?", id)); err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&ClientVoucher{}).Error; err != nil {
			return err
		}
		return tx.Delete(&client).Error
	})
}

func (r *GormRepository) ListClientVouchers(ctx context.Context, clientID uint) ([]ClientVoucher, error) {
	vouchers := []ClientVoucher{}
	err := r.conn(ctx).
		Preload("Voucher").
		Joins("JOIN vouchers ON vouchers.id = client_vouchers.voucher_id").
		Where("client_vouchers.client_id = ?", clientID).
		Order("vouchers.name").Order("client_vouchers.purchase_date").
		Find(&vouchers).Error
	return vouchers, err
}

// CreateClientVoucher starts the session counter at the voucher's total
// unless the caller set one.
func (r *GormRepository) CreateClientVoucher(ctx context.Context, cv *ClientVoucher) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var voucher Voucher
		if err := tx.First(&voucher, cv.VoucherID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				v := NewValidationError()
				v.Add("voucher", "select a valid choice")
				return v
			}
			return err
		}
		if cv.SessionsRemaining == nil {
			total := voucher.TotalSessions
			cv.SessionsRemaining = &total
		}
		cv.IsActive = true
		if err := tx.Omit("Client", "Voucher").Create(cv).Error; err != nil {
			return err
		}
		cv.Voucher = &voucher
		return nil
	})
}

func (r *GormRepository) GetClientVoucher(ctx context.Context, id uint) (*ClientVoucher, error) {
	var cv ClientVoucher
	if err := r.conn(ctx).Preload("Client").Preload("Voucher").First(&cv, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &cv, nil
}

func (r *GormRepository) UpdateClientVoucher(ctx context.Context, cv *ClientVoucher) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Voucher{}).Where("id = ?", cv.VoucherID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			v := NewValidationError()
			v.Add("voucher", "select a valid choice")
			return v
		}
		return tx.Omit("Client", "Voucher").Save(cv).Error
	})
}

func (r *GormRepository) DeleteClientVoucher(ctx context.Context, id uint) error {
	res := r.conn(ctx).Delete(&ClientVoucher{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) RedeemClientVoucher(ctx context.Context, id uint, now time.Time) (*ClientVoucher, error) {
	var cv ClientVoucher
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Voucher").First(&cv, id).Error; err != nil {
			return notFound(err)
		}
		if err := cv.Redeem(now); err != nil {
			return err
		}
		return tx.Model(&cv).Select("sessions_remaining", "is_active").Updates(map[string]interface{}{
			"sessions_remaining": *cv.SessionsRemaining,
			"is_active":          cv.IsActive,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// ExpireClientVouchers deactivates active vouchers whose expiration date has
// passed and returns how many were changed.
func (r *GormRepository) ExpireClientVouchers(ctx context.Context, now time.Time) (int, error) {
	var active []ClientVoucher
	if err := r.conn(ctx).Where("is_active = ?", true).Find(&active).Error; err != nil {
		return 0, err
	}

	var expired []uint
	for i := range active {
		if active[i].Expired(now) {
			expired = append(expired, active[i].ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	err := r.conn(ctx).Model(&ClientVoucher{}).Where("id IN ?", expired).UpdateColumn("is_active", false).Error
	return len(expired), err
}
