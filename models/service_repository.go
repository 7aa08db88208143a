package models

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

const (
	ServicesPerPage = 20
	VouchersPerPage = 20
)

type ServiceStore interface {
	AllServices(ctx context.Context) ([]Service, error)
	AvailableServices(ctx context.Context) ([]Service, error)
	UncategorizedServices(ctx context.Context) ([]Service, error)
	SearchServices(ctx context.Context, query string) ([]Service, error)
	CreateService(ctx context.Context, service *Service) error
	GetService(ctx context.Context, id uint) (*Service, error)
	UpdateService(ctx context.Context, service *Service) error
	DeleteService(ctx context.Context, id uint) error

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, category *Category) error
	GetCategory(ctx context.Context, id uint) (*Category, error)
	UpdateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, id uint) error
	CategoryServices(ctx context.Context, id uint, page string) (*Page[Service], error)

	ListVouchers(ctx context.Context, page string) (*Page[Voucher], error)
	SearchVouchers(ctx context.Context, query string) ([]Voucher, error)
	CreateVoucher(ctx context.Context, voucher *Voucher, serviceIDs []uint) error
	GetVoucher(ctx context.Context, id uint) (*Voucher, error)
	// UpdateVoucher leaves the bundled services alone when serviceIDs is nil.
	UpdateVoucher(ctx context.Context, voucher *Voucher, serviceIDs []uint) error
	DeleteVoucher(ctx context.Context, id uint) error
}

// byCategory orders services by category name and then by service name.
func byCategory(q *gorm.DB) *gorm.DB {
	return q.Joins("LEFT JOIN categories ON categories.id = services.category_id").
		Order("categories.name").Order("services.name").Order("services.id")
}

func (r *GormRepository) AllServices(ctx context.Context) ([]Service, error) {
	services := []Service{}
	err := byCategory(r.conn(ctx).Model(&Service{})).Preload("Category").Find(&services).Error
	return services, err
}

func (r *GormRepository) AvailableServices(ctx context.Context) ([]Service, error) {
	services := []Service{}
	err := byCategory(r.conn(ctx).Model(&Service{})).
		Where("services.available = ?", AvailableYes).
		Preload("Category").
		Find(&services).Error
	return services, err
}

func (r *GormRepository) UncategorizedServices(ctx context.Context) ([]Service, error) {
	services := []Service{}
	err := r.conn(ctx).Where("category_id IS NULL").Order("name").Order("id").Find(&services).Error
	return services, err
}

func (r *GormRepository) SearchServices(ctx context.Context, query string) ([]Service, error) {
	services := []Service{}
	query = strings.TrimSpace(query)
	if query == "" {
		return services, nil
	}
	err := r.conn(ctx).Preload("Category").
		Where(containsCI("name"), likePattern(query)).
		Order("name").Order("id").
		Find(&services).Error
	return services, err
}

func (r *GormRepository) CreateService(ctx context.Context, service *Service) error {
	db := r.conn(ctx)
	if err := checkCategory(db, service.CategoryID); err != nil {
		return err
	}
	if err := db.Omit("Category").Create(service).Error; err != nil {
		return err
	}
	return loadCategory(db, service)
}

func (r *GormRepository) GetService(ctx context.Context, id uint) (*Service, error) {
	var service Service
	if err := r.conn(ctx).Preload("Category").First(&service, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &service, nil
}

func (r *GormRepository) UpdateService(ctx context.Context, service *Service) error {
	db := r.conn(ctx)
	if err := checkCategory(db, service.CategoryID); err != nil {
		return err
	}
	if err := db.Omit("Category").Save(service).Error; err != nil {
		return err
	}
	return loadCategory(db, service)
}

func checkCategory(db *gorm.DB, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := db.Model(&Category{}).Where("id = ?", *id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		v := NewValidationError()
		v.Add("category", "select a valid choice")
		return v
	}
	return nil
}

func loadCategory(db *gorm.DB, service *Service) error {
	service.Category = nil
	if service.CategoryID == nil {
		return nil
	}
	var category Category
	if err := db.First(&category, *service.CategoryID).Error; err != nil {
		return notFound(err)
	}
	service.Category = &category
	return nil
}

// DeleteService drops the service from every employee, appointment, voucher
// and transaction that references it.
func (r *GormRepository) DeleteService(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var service Service
		if err := tx.First(&service, id).Error; err != nil {
			return notFound(err)
		}
		for _, table := range []string{"employee_services", "appointment_services", "voucher_services", "transaction_services"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE service_id = ?", id).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&service).Error
	})
}

func (r *GormRepository) ListCategories(ctx context.Context) ([]Category, error) {
	categories := []Category{}
	err := r.conn(ctx).Order("name").Find(&categories).Error
	return categories, err
}

func (r *GormRepository) CreateCategory(ctx context.Context, category *Category) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCategoryUnique(tx, category); err != nil {
			return err
		}
		return tx.Omit("Services").Create(category).Error
	})
}

func (r *GormRepository) GetCategory(ctx context.Context, id uint) (*Category, error) {
	var category Category
	if err := r.conn(ctx).First(&category, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

func (r *GormRepository) UpdateCategory(ctx context.Context, category *Category) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCategoryUnique(tx, category); err != nil {
			return err
		}
		return tx.Omit("Services").Save(category).Error
	})
}

func checkCategoryUnique(tx *gorm.DB, category *Category) error {
	taken, err := columnTaken(tx, &Category{}, "name", strings.TrimSpace(category.Name), category.ID)
	if err != nil {
		return err
	}
	if taken {
		v := NewValidationError()
		v.Add("name", "a category with this name already exists")
		return v
	}
	return nil
}

// DeleteCategory leaves its services uncategorised.
func (r *GormRepository) DeleteCategory(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.First(&category, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&Service{}).Where("category_id = ?", id).UpdateColumn("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
}

func (r *GormRepository) CategoryServices(ctx context.Context, id uint, page string) (*Page[Service], error) {
	if _, err := r.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	q := r.conn(ctx).Model(&Service{}).Where("category_id = ?", id).Order("name").Order("id")
	return Paginate[Service](q, page, ServicesPerPage)
}

func (r *GormRepository) ListVouchers(ctx context.Context, page string) (*Page[Voucher], error) {
	q := r.conn(ctx).Model(&Voucher{}).Order("name").Order("id")
	return Paginate[Voucher](q, page, VouchersPerPage)
}

func (r *GormRepository) SearchVouchers(ctx context.Context, query string) ([]Voucher, error) {
	vouchers := []Voucher{}
	query = strings.TrimSpace(query)
	if query == "" {
		return vouchers, nil
	}
	err := r.conn(ctx).Where(containsCI("name"), likePattern(query)).Order("name").Order("id").Find(&vouchers).Error
	return vouchers, err
}

func (r *GormRepository) CreateVoucher(ctx context.Context, voucher *Voucher, serviceIDs []uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		services, err := byIDs[Service](tx, "services", serviceIDs)
		if err != nil {
			return err
		}
		voucher.Services = nil
		if err := tx.Create(voucher).Error; err != nil {
			return err
		}
		if len(services) > 0 {
			if err := tx.Model(voucher).Association("Services").Replace(services); err != nil {
				return err
			}
		}
		voucher.Services = services
		return nil
	})
}

func (r *GormRepository) GetVoucher(ctx context.Context, id uint) (*Voucher, error) {
	var voucher Voucher
	err := r.conn(ctx).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("services.name") }).
		Preload("Services.Category").
		First(&voucher, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &voucher, nil
}

func (r *GormRepository) UpdateVoucher(ctx context.Context, voucher *Voucher, serviceIDs []uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Services").Save(voucher).Error; err != nil {
			return err
		}
		if serviceIDs == nil {
			return nil
		}
		services, err := byIDs[Service](tx, "services", serviceIDs)
		if err != nil {
			return err
		}
		assoc := tx.Model(voucher).Association("Services")
		if len(services) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(services)
		}
		voucher.Services = services
		return err
	})
}

// DeleteVoucher also removes every client's purchase of it.
func (r *GormRepository) DeleteVoucher(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var voucher Voucher
		if err := tx.First(&voucher, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Exec("DELETE FROM voucher_services WHERE voucher_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("voucher_id = ?", id).Delete(&ClientVoucher{}).Error; err != nil {
			return err
		}
		return tx.Delete(&voucher).Error
	})
}
