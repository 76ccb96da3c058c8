package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/models"
)

func (r *GormRepo) ListProducts(ctx context.Context) ([]models.Product, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	items := make([]models.Product, 0)
	if err := db.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Create(prod).Error
}

// UpdateProduct applies column updates and returns the stored row.
func (r *GormRepo) UpdateProduct(ctx context.Context, id uint, fields map[string]any) (*models.Product, error) {
	var prod models.Product
	err := r.InTx(ctx, func(ctx context.Context, tx *GormRepo) error {
		if err := tx.DB.First(&prod, id).Error; err != nil {
			return err
		}
		if err := tx.DB.Model(&prod).Updates(fields).Error; err != nil {
			return err
		}
		return tx.DB.First(&prod, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

// DeleteProduct returns gorm.ErrForeignKeyViolated when order items still
// reference the product.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.InTx(ctx, func(ctx context.Context, tx *GormRepo) error {
		var refs int64
		if err := tx.DB.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return gorm.ErrForeignKeyViolated
		}

		res := tx.DB.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

type productPrice struct {
	ID    uint
	Price *float64
}

// ProductPrices resolves catalog prices for every id with a single query.
// Ids absent from the result are missing from the catalog; a nil price means
// the stored row has no price.
func (r *GormRepo) ProductPrices(ctx context.Context, ids []uint) (map[uint]*float64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rows []productPrice
	if err := db.Model(&models.Product{}).Select("id", "price").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[uint]*float64, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Price
	}
	return out, nil
}
