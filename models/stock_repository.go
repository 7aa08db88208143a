package models

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const ProductsPerPage = 20

type StockStore interface {
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateSupplier(ctx context.Context, name string) (*Supplier, error)
	GetSupplier(ctx context.Context, id uint) (*Supplier, error)
	RenameSupplier(ctx context.Context, id uint, name string) (*Supplier, error)
	DeleteSupplier(ctx context.Context, id uint) error
	SupplierProducts(ctx context.Context, id uint, page string) (*Page[Product], error)

	UnsuppliedProducts(ctx context.Context) ([]Product, error)
	SearchProducts(ctx context.Context, query string) ([]Product, error)
	LowStockProducts(ctx context.Context, threshold int) ([]Product, error)
	CreateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, id uint) (*Product, error)
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id uint) error

	// CreateMovement records the movement and applies it to the product stock
	// in one transaction, returning the updated product.
	CreateMovement(ctx context.Context, productID uint, movement *StockMovement) (*Product, error)
	ProductMovements(ctx context.Context, productID uint) ([]StockMovement, error)
}

func (r *GormRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	suppliers := []Supplier{}
	err := r.conn(ctx).Order("name").Order("id").Find(&suppliers).Error
	return suppliers, err
}

func (r *GormRepository) CreateSupplier(ctx context.Context, name string) (*Supplier, error) {
	supplier := Supplier{Name: strings.TrimSpace(name)}
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if supplier.Name != "" {
			taken, err := columnTaken(tx, &Supplier{}, "name", supplier.Name, 0)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: supplier %q", ErrConflict, supplier.Name)
			}
		}
		return tx.Create(&supplier).Error
	})
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *GormRepository) GetSupplier(ctx context.Context, id uint) (*Supplier, error) {
	var supplier Supplier
	if err := r.conn(ctx).First(&supplier, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &supplier, nil
}

func (r *GormRepository) RenameSupplier(ctx context.Context, id uint, name string) (*Supplier, error) {
	supplier, err := r.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	supplier.Name = name
	if err := r.conn(ctx).Omit("Products").Save(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

// DeleteSupplier removes the supplier's products and their stock ledgers.
func (r *GormRepository) DeleteSupplier(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var supplier Supplier
		if err := tx.First(&supplier, id).Error; err != nil {
			return notFound(err)
		}
		var productIDs []uint
		if err := tx.Model(&Product{}).Where("supplier_id = ?", id).Pluck("id", &productIDs).Error; err != nil {
			return err
		}
		if err := deleteProducts(tx, productIDs); err != nil {
			return err
		}
		return tx.Delete(&supplier).Error
	})
}

func (r *GormRepository) SupplierProducts(ctx context.Context, id uint, page string) (*Page[Product], error) {
	if _, err := r.GetSupplier(ctx, id); err != nil {
		return nil, err
	}
	q := r.conn(ctx).Model(&Product{}).Where("supplier_id = ?", id).Order("name").Order("id")
	return Paginate[Product](q, page, ProductsPerPage)
}

func (r *GormRepository) UnsuppliedProducts(ctx context.Context) ([]Product, error) {
	products := []Product{}
	err := r.conn(ctx).Where("supplier_id IS NULL").Order("name").Order("id").Find(&products).Error
	return products, err
}

func (r *GormRepository) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	products := []Product{}
	query = strings.TrimSpace(query)
	if query == "" {
		return products, nil
	}
	err := r.conn(ctx).Preload("Supplier").
		Where(containsCI("name"), likePattern(query)).
		Order("name").Order("id").
		Find(&products).Error
	return products, err
}

func (r *GormRepository) LowStockProducts(ctx context.Context, threshold int) ([]Product, error) {
	products := []Product{}
	err := r.conn(ctx).Preload("Supplier").
		Where("stock <= ?", threshold).
		Order("stock").Order("name").
		Find(&products).Error
	return products, err
}

func (r *GormRepository) CreateProduct(ctx context.Context, product *Product) error {
	db := r.conn(ctx)
	if err := checkSupplier(db, product.SupplierID); err != nil {
		return err
	}
	return db.Omit("Supplier").Create(product).Error
}

func (r *GormRepository) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := r.conn(ctx).Preload("Supplier").First(&product, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (r *GormRepository) UpdateProduct(ctx context.Context, product *Product) error {
	db := r.conn(ctx)
	if err := checkSupplier(db, product.SupplierID); err != nil {
		return err
	}
	return db.Omit("Supplier").Save(product).Error
}

func checkSupplier(db *gorm.DB, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := db.Model(&Supplier{}).Where("id = ?", *id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		v := NewValidationError()
		v.Add("supplier", "select a valid choice")
		return v
	}
	return nil
}

func (r *GormRepository) DeleteProduct(ctx context.Context, id uint) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return deleteProducts(tx, []uint{id})
	})
}

func deleteProducts(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("product_id IN ?", ids).Delete(&StockMovement{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&Product{}).Error
}

func (r *GormRepository) CreateMovement(ctx context.Context, productID uint, movement *StockMovement) (*Product, error) {
	var product Product
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, productID).Error; err != nil {
			return notFound(err)
		}
		if err := movement.Validate(); err != nil {
			return err
		}
		if err := product.Apply(*movement); err != nil {
			return err
		}

		movement.ProductID = product.ID
		if err := tx.Omit("Product").Create(movement).Error; err != nil {
			return err
		}
		return tx.Model(&product).UpdateColumn("stock", product.Stock).Error
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepository) ProductMovements(ctx context.Context, productID uint) ([]StockMovement, error) {
	if _, err := r.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	movements := []StockMovement{}
	err := r.conn(ctx).Where("product_id = ?", productID).
		Order("created_at DESC").Order("id DESC").
		Find(&movements).Error
	return movements, err
}
