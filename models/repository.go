package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Repository interface {
	ClientStore
	EmployeeStore
	ServiceStore
	AppointmentStore
	SalesStore
	StockStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}

// DBConfig selects the backend. Driver is "postgres" or "sqlite".
type DBConfig struct {
	Driver   string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	Path     string
	LogSQL   bool
}

func (c DBConfig) dialector() (gorm.Dialector, error) {
	switch strings.ToLower(c.Driver) {
	case "", "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			c.Host, c.User, c.Password, c.Name, c.Port,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		path := c.Path
		if path == "" {
			path = "salon.db"
		}
		return sqlite.Open(path), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
}

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(cfg DBConfig) (*GormRepository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.LogSQL {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewGormRepository(db)
}

// NewGormRepository migrates the schema on an already opened connection.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(
		&Client{},
		&Category{},
		&Service{},
		&Employee{},
		&Voucher{},
		&ClientVoucher{},
		&Appointment{},
		&Transaction{},
		&Supplier{},
		&Product{},
		&StockMovement{},
		&User{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &GormRepository{db: db}, nil
}

func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *GormRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// containsCI is a case-insensitive substring condition that behaves the
// same on Postgres and SQLite.
func containsCI(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '\\'"
}

func likePattern(q string) string {
	q = strings.ToLower(q)
	q = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(q)
	return "%" + q + "%"
}

// byIDs loads every row with the given ids or fails with a validation error
// naming field, the way a multi-select form rejects unknown choices.
func byIDs[T any](db *gorm.DB, field string, ids []uint) ([]T, error) {
	items := []T{}
	if len(ids) == 0 {
		return items, nil
	}
	unique := dedupe(ids)
	if err := db.Where("id IN ?", unique).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) != len(unique) {
		v := NewValidationError()
		v.Add(field, "select a valid choice")
		return nil, v
	}
	return items, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
