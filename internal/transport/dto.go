package transport

import (
	"strings"

	"github.com/Skotchmaster/shop_api/internal/models"
)

type OrderMeta struct {
	ShippingName    *string `json:"shippingName"    validate:"omitempty,max=255"`
	ShippingAddress *string `json:"shippingAddress"`
}

// CreateOrderItem has no price field: whatever price a client sends is
// dropped on decode.
type CreateOrderItem struct {
	ProductID int64   `json:"productId" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity"`
}

type CreateOrderRequest struct {
	Order OrderMeta         `json:"order"`
	Items []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}

type UpdateOrderRequest struct {
	Status          *string `json:"status"          validate:"omitempty,oneof=New Paid Shipped Delivered Cancelled"`
	ShippingName    *string `json:"shippingName"    validate:"omitempty,max=255"`
	ShippingAddress *string `json:"shippingAddress"`
}

func (r *UpdateOrderRequest) IsEmpty() bool {
	return r.Status == nil && r.ShippingName == nil && r.ShippingAddress == nil
}

// Fields returns the column updates carried by the request.
func (r *UpdateOrderRequest) Fields() map[string]any {
	out := map[string]any{}
	if r.Status != nil {
		out["status"] = *r.Status
	}
	if r.ShippingName != nil {
		out["shipping_name"] = *r.ShippingName
	}
	if r.ShippingAddress != nil {
		out["shipping_address"] = *r.ShippingAddress
	}
	return out
}

type CreateProductRequest struct {
	Name        string   `json:"name"        validate:"required,max=255"`
	Description *string  `json:"description"`
	Image       *string  `json:"image"       validate:"omitempty,max=255"`
	Price       *float64 `json:"price"       validate:"required,gte=0"`
}

func (r *CreateProductRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreateProductRequest) Model() models.Product {
	return models.Product{
		Name:        r.Name,
		Description: r.Description,
		Image:       r.Image,
		Price:       *r.Price,
	}
}

type UpdateProductRequest struct {
	Name        *string  `json:"name"        validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description"`
	Image       *string  `json:"image"       validate:"omitempty,max=255"`
	Price       *float64 `json:"price"       validate:"omitempty,gte=0"`
}

func (r *UpdateProductRequest) Sanitize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
}

func (r *UpdateProductRequest) IsEmpty() bool {
	return r.Name == nil && r.Description == nil && r.Image == nil && r.Price == nil
}

func (r *UpdateProductRequest) Fields() map[string]any {
	out := map[string]any{}
	if r.Name != nil {
		out["name"] = *r.Name
	}
	if r.Description != nil {
		out["description"] = *r.Description
	}
	if r.Image != nil {
		out["image"] = *r.Image
	}
	if r.Price != nil {
		out["price"] = *r.Price
	}
	return out
}

type RegisterRequest struct {
	Email    string  `json:"email"    validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=72,password"`
	Name     *string `json:"name"     validate:"omitempty,max=255"`
	Address  *string `json:"address"`
}

func (r *RegisterRequest) Sanitize() {
	r.Email = normalizeEmail(r.Email)
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Sanitize() {
	r.Email = normalizeEmail(r.Email)
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expiresAt"`
	User      models.User `json:"user"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
