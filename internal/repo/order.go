package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_api/internal/models"
)

// OrderScope narrows order queries to what a caller may see. The zero value
// sees everything.
type OrderScope struct {
	OwnerID  uint
	SellerID uint
}

func (s OrderScope) apply(db *gorm.DB) *gorm.DB {
	switch {
	case s.OwnerID != 0:
		return db.Where("orders.user_id = ?", s.OwnerID)
	case s.SellerID != 0:
		sub := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.OrderItem{}).
			Select("order_items.order_id").
			Joins("JOIN products ON products.id = order_items.product_id").
			Where("products.seller_id = ?", s.SellerID)
		return db.Where("orders.id IN (?)", sub)
	default:
		return db
	}
}

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Omit(clause.Associations).Create(order).Error
}

// CreateOrderItems inserts all items in one batch statement.
func (r *GormRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	db, cancel := r.conn(ctx)
	defer cancel()
	return db.Omit(clause.Associations).Create(&items).Error
}

type orderRow struct {
	ID              uint
	UserID          uint
	Status          string
	ShippingName    *string
	ShippingAddress *string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	ItemID        *uint
	ItemProductID *uint
	ItemQuantity  *int
	ItemPrice     *float64
}

// GetOrderWithItems loads the header and its items with one left join.
func (r *GormRepo) GetOrderWithItems(ctx context.Context, id uint, scope OrderScope) (*models.OrderWithItems, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rows []orderRow
	q := db.Table("orders").
		Select(`orders.id, orders.user_id, orders.status, orders.shipping_name, orders.shipping_address,
			orders.created_at, orders.updated_at,
			order_items.id AS item_id, order_items.product_id AS item_product_id,
			order_items.quantity AS item_quantity, order_items.price AS item_price`).
		Joins("LEFT JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.id = ?", id).
		Order("order_items.id ASC")
	if err := scope.apply(q).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	head := rows[0]
	out := &models.OrderWithItems{
		Order: models.Order{
			ID:              head.ID,
			UserID:          head.UserID,
			Status:          head.Status,
			ShippingName:    head.ShippingName,
			ShippingAddress: head.ShippingAddress,
			CreatedAt:       head.CreatedAt,
			UpdatedAt:       head.UpdatedAt,
		},
		Items: make([]models.OrderItem, 0, len(rows)),
	}
	for _, row := range rows {
		// An order without items still yields one row with a null item side.
		if row.ItemID == nil {
			continue
		}
		item := models.OrderItem{ID: *row.ItemID, OrderID: head.ID}
		if row.ItemProductID != nil {
			item.ProductID = *row.ItemProductID
		}
		if row.ItemQuantity != nil {
			item.Quantity = *row.ItemQuantity
		}
		if row.ItemPrice != nil {
			item.Price = *row.ItemPrice
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, scope OrderScope) ([]models.Order, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	orders := make([]models.Order, 0)
	q := scope.apply(db.Model(&models.Order{})).Order("orders.created_at DESC, orders.id DESC")
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrder writes the given columns and returns the stored row. Column
// names must already be whitelisted by the caller.
func (r *GormRepo) UpdateOrder(ctx context.Context, id uint, scope OrderScope, fields map[string]any) (*models.Order, error) {
	var order models.Order
	err := r.InTx(ctx, func(ctx context.Context, tx *GormRepo) error {
		if err := scope.apply(tx.DB.Model(&models.Order{})).Where("orders.id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if err := tx.DB.Model(&order).Omit(clause.Associations).Updates(fields).Error; err != nil {
			return err
		}
		return tx.DB.First(&order, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
