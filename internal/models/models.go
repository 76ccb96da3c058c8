package models

import "time"

const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

const (
	OrderStatusNew       = "New"
	OrderStatusPaid      = "Paid"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
)

type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"           json:"id"`
	Email        string  `gorm:"size:255;uniqueIndex;not null"      json:"email"`
	PasswordHash string  `gorm:"column:password;size:255;not null"  json:"-"`
	Role         string  `gorm:"size:32;not null;default:user"      json:"role"`
	Name         *string `gorm:"size:255"                           json:"name"`
	Address      *string `                                          json:"address"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name        string  `gorm:"size:255;not null"          json:"name"`
	Description *string `                                  json:"description"`
	Image       *string `gorm:"size:255"                   json:"image"`
	Price       float64 `gorm:"not null;check:price >= 0"  json:"price"`
	SellerID    *uint   `gorm:"index"                      json:"sellerId,omitempty"`
}

// Order is the order header. Line items live in OrderItem and are never
// embedded here so list responses stay item-free.
type Order struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	UserID          uint      `gorm:"index;not null"                json:"userId"`
	User            *User     `gorm:"constraint:OnDelete:CASCADE"   json:"-"`
	Status          string    `gorm:"size:32;not null;default:New"  json:"status"`
	ShippingName    *string   `gorm:"size:255"                      json:"shippingName"`
	ShippingAddress *string   `                                     json:"shippingAddress"`
	CreatedAt       time.Time `                                     json:"createdAt"`
	UpdatedAt       time.Time `                                     json:"updatedAt"`
}

type OrderItem struct {
	ID        uint     `gorm:"primaryKey;autoIncrement"      json:"id"`
	OrderID   uint     `gorm:"index;not null"                json:"orderId"`
	Order     *Order   `gorm:"constraint:OnDelete:CASCADE"   json:"-"`
	ProductID uint     `gorm:"index;not null"                json:"productId"`
	Product   *Product `gorm:"constraint:OnDelete:RESTRICT"  json:"-"`
	Quantity  int      `gorm:"not null;check:quantity > 0"   json:"quantity"`
	Price     float64  `gorm:"not null"                      json:"price"`
}

// OrderWithItems is an order header merged with its line items. Items is
// never nil so it always serializes as an array.
type OrderWithItems struct {
	Order
	Items []OrderItem `json:"items"`
}

// All lists every model in dependency order for AutoMigrate.
func All() []any {
	return []any{&User{}, &Product{}, &Order{}, &OrderItem{}}
}
