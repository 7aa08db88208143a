package models

import (
	"context"

	"gorm.io/gorm"
)

type EmployeeStore interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	CreateEmployee(ctx context.Context, employee *Employee, serviceIDs []uint) error
	GetEmployee(ctx context.Context, id uint) (*Employee, error)
	// UpdateEmployee leaves the assigned services alone when serviceIDs is nil.
	UpdateEmployee(ctx context.Context, employee *Employee, serviceIDs []uint) error
	DeleteEmployee(ctx context.Context, id uint) error
	EmployeeServices(ctx context.Context, id uint) ([]Service, error)
	AssignServices(ctx context.Context, id uint, serviceIDs []uint) ([]Service, error)
}

func (r *GormRepository) ListEmployees(ctx context.Context) ([]Employee, error) {
	employees := []Employee{}
	err := r.conn(ctx).Order("first_name").Order("last_name").Order("id").Find(&employees).Error
	return employees, err
}

func (r *GormRepository) CreateEmployee(ctx context.Context, employee *Employee, serviceIDs []uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		services, err := byIDs[Service](tx, "services", serviceIDs)
		if err != nil {
			return err
		}
		if err := checkEmployeeUnique(tx, employee); err != nil {
			return err
		}
		employee.Services = nil
		if err := tx.Create(employee).Error; err != nil {
			return err
		}
		if len(services) > 0 {
			if err := tx.Model(employee).Association("Services").Replace(services); err != nil {
				return err
			}
		}
		employee.Services = services
		return nil
	})
}

func (r *GormRepository) GetEmployee(ctx context.Context, id uint) (*Employee, error) {
	var employee Employee
	if err := r.conn(ctx).Preload("Services").First(&employee, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &employee, nil
}

func (r *GormRepository) UpdateEmployee(ctx context.Context, employee *Employee, serviceIDs []uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkEmployeeUnique(tx, employee); err != nil {
			return err
		}
		if err := tx.Omit("Services").Save(employee).Error; err != nil {
			return err
		}
		if serviceIDs == nil {
			return nil
		}
		services, err := replaceEmployeeServices(tx, employee, serviceIDs)
		if err != nil {
			return err
		}
		employee.Services = services
		return nil
	})
}

func checkEmployeeUnique(tx *gorm.DB, employee *Employee) error {
	v := NewValidationError()
	taken, err := columnTaken(tx, &Employee{}, "telephone_number", employee.TelephoneNumber, employee.ID)
	if err != nil {
		return err
	}
	if taken {
		v.Add("telephone_number", "an employee with this telephone number already exists")
	}
	if email := nullIfBlank(employee.Email); email != nil {
		taken, err := columnTaken(tx, &Employee{}, "email", *email, employee.ID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("email", "an employee with this email already exists")
		}
	}
	return v.OrNil()
}

// columnTaken reports whether a row other than id already holds value.
func columnTaken(tx *gorm.DB, model interface{}, column, value string, id uint) (bool, error) {
	var n int64
	err := tx.Model(model).Where(column+" = ? AND id <> ?", value, id).Count(&n).Error
	return n > 0, err
}

// DeleteEmployee keeps the employee's appointments, unassigned.
func (r *GormRepository) DeleteEmployee(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var employee Employee
		if err := tx.First(&employee, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&Appointment{}).Where("employee_id = ?", id).UpdateColumn("employee_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM employee_services WHERE employee_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&employee).Error
	})
}

// EmployeeServices lists the services assigned to an employee, sorted by
// category name and then by service name.
func (r *GormRepository) EmployeeServices(ctx context.Context, id uint) ([]Service, error) {
	db := r.conn(ctx)
	var n int64
	if err := db.Model(&Employee{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	services := []Service{}
	err := byCategory(db.Model(&Service{})).
		Joins("JOIN employee_services ON employee_services.service_id = services.id").
		Where("employee_services.employee_id = ?", id).
		Preload("Category").
		Find(&services).Error
	return services, err
}

func (r *GormRepository) AssignServices(ctx context.Context, id uint, serviceIDs []uint) ([]Service, error) {
	var services []Service
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var employee Employee
		if err := tx.First(&employee, id).Error; err != nil {
			return notFound(err)
		}
		var err error
		services, err = replaceEmployeeServices(tx, &employee, serviceIDs)
		return err
	})
	return services, err
}

func replaceEmployeeServices(tx *gorm.DB, employee *Employee, serviceIDs []uint) ([]Service, error) {
	services, err := byIDs[Service](tx, "services", serviceIDs)
	if err != nil {
		return nil, err
	}
	assoc := tx.Model(employee).Association("Services")
	if len(services) == 0 {
		return services, assoc.Clear()
	}
	return services, assoc.Replace(services)
}
