package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/transport"
	"github.com/Skotchmaster/shop_api/pkg/logging"
	"github.com/Skotchmaster/shop_api/pkg/tokens"
)

type Visibility string

const (
	// VisibilityAll lets any authenticated caller see every order.
	VisibilityAll Visibility = "all"
	// VisibilityScoped limits users to their own orders and sellers to orders
	// containing their products. Admins see everything.
	VisibilityScoped Visibility = "scoped"
)

func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case "", VisibilityAll:
		return VisibilityAll, nil
	case VisibilityScoped:
		return VisibilityScoped, nil
	}
	return "", fmt.Errorf("unknown order visibility %q", s)
}

type OrderService struct {
	Repo       *repo.GormRepo
	Events     events.Publisher
	Visibility Visibility
}

func (s *OrderService) scope(caller tokens.Identity) repo.OrderScope {
	if s.Visibility != VisibilityScoped {
		return repo.OrderScope{}
	}
	switch caller.Role {
	case tokens.RoleAdmin:
		return repo.OrderScope{}
	case tokens.RoleSeller:
		return repo.OrderScope{SellerID: caller.UserID}
	default:
		return repo.OrderScope{OwnerID: caller.UserID}
	}
}

func validQuantity(q float64) bool {
	return q > 0 && q == math.Trunc(q) && q <= math.MaxInt32
}

// CreateOrder prices every item from the catalog, ignoring anything the
// client claims, and writes the header and items in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, caller tokens.Identity, req transport.CreateOrderRequest) (*models.OrderWithItems, error) {
	l := logging.FromContext(ctx).With("svc", "order.create", "user_id", caller.UserID)

	if caller.UserID == 0 {
		return nil, clientErr(ErrUnauthenticated, "User not authenticated.")
	}
	if len(req.Items) == 0 {
		return nil, clientErr(ErrValidation, "Order must contain at least one item.")
	}

	ids := make([]uint, 0, len(req.Items))
	seen := make(map[uint]struct{}, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID <= 0 {
			return nil, clientErr(ErrValidation, "Invalid product ID format in items.")
		}
		if !validQuantity(it.Quantity) {
			return nil, clientErr(ErrValidation, "Invalid quantity for product ID %d. Quantity must be a positive integer.", it.ProductID)
		}
		id := uint(it.ProductID)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	prices, err := s.Repo.ProductPrices(ctx, ids)
	if err != nil {
		return nil, storeErr(err)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		id := uint(it.ProductID)
		price, ok := prices[id]
		if !ok {
			return nil, clientErr(ErrValidation, "Product with ID %d not found or is unavailable.", id)
		}
		if price == nil {
			l.Error("create_order_failed", "status", 500, "reason", "product has no price", "product_id", id)
			return nil, fmt.Errorf("%w: product %d has no price", ErrDataIntegrity, id)
		}
		items = append(items, models.OrderItem{
			ProductID: id,
			Quantity:  int(it.Quantity),
			Price:     *price,
		})
	}

	out := &models.OrderWithItems{}
	err = s.Repo.InTx(ctx, func(ctx context.Context, tx *repo.GormRepo) error {
		order := models.Order{
			UserID:          caller.UserID,
			Status:          models.OrderStatusNew,
			ShippingName:    req.Order.ShippingName,
			ShippingAddress: req.Order.ShippingAddress,
		}
		if err := tx.CreateOrder(ctx, &order); err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return errUnknownCaller
			}
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.CreateOrderItems(ctx, items); err != nil {
			return err
		}
		out.Order = order
		out.Items = items
		return nil
	})
	if err != nil {
		if errors.Is(err, errUnknownCaller) {
			l.Warn("create_order_failed", "status", 401, "reason", "caller no longer exists", "user_id", caller.UserID)
			return nil, clientErr(ErrUnauthenticated, "User not authenticated.")
		}
		// A product deleted between the price lookup and the insert.
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, clientErr(ErrValidation, "Invalid order data. Please check product IDs and quantities.")
		}
		return nil, storeErr(err)
	}

	l.Info("create_order_success", "order_id", out.ID, "items", len(out.Items))
	publish(ctx, s.Events, events.TopicOrders, out.ID, events.OrderCreated, out)
	return out, nil
}

func (s *OrderService) GetOrder(ctx context.Context, caller tokens.Identity, id uint) (*models.OrderWithItems, error) {
	order, err := s.Repo.GetOrderWithItems(ctx, id, s.scope(caller))
	if err != nil {
		return nil, storeErr(err)
	}
	return order, nil
}

// ListOrders returns order headers, newest first, without items.
func (s *OrderService) ListOrders(ctx context.Context, caller tokens.Identity) ([]models.Order, error) {
	orders, err := s.Repo.ListOrders(ctx, s.scope(caller))
	if err != nil {
		return nil, storeErr(err)
	}
	return orders, nil
}

func (s *OrderService) UpdateOrder(ctx context.Context, caller tokens.Identity, id uint, req transport.UpdateOrderRequest) (*models.Order, error) {
	fields := req.Fields()
	if len(fields) == 0 {
		return nil, clientErr(ErrValidation, "At least one field must be provided.")
	}

	order, err := s.Repo.UpdateOrder(ctx, id, s.scope(caller), fields)
	if err != nil {
		return nil, storeErr(err)
	}

	publish(ctx, s.Events, events.TopicOrders, order.ID, events.OrderUpdated, order)
	return order, nil
}
