package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormRepo is the single store handle shared by all services. Every call is
// bounded by Timeout when it is set.
type GormRepo struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func New(db *gorm.DB, timeout time.Duration) *GormRepo {
	return &GormRepo{DB: db, Timeout: timeout}
}

func (r *GormRepo) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if r.Timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, r.Timeout)
		return r.DB.WithContext(ctx), cancel
	}
	return r.DB.WithContext(ctx), func() {}
}

// InTx runs fn inside one transaction. The repo passed to fn is bound to the
// transaction; returning an error from fn rolls everything back.
func (r *GormRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx *GormRepo) error) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormRepo{DB: tx})
	})
}

func (r *GormRepo) AutoMigrate(ctx context.Context, models ...any) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.AutoMigrate(models...)
}
