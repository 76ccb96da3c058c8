package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/transport"
	"github.com/Skotchmaster/shop_api/internal/validation"
	"github.com/Skotchmaster/shop_api/pkg/logging"
	middleware "github.com/Skotchmaster/shop_api/pkg/middleware/auth"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		return middleware.ErrAccessDenied
	}

	var req transport.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return serviceError(l, "create_order_failed", err, "", "Failed to create order due to an internal error.")
	}

	order, err := h.Svc.CreateOrder(ctx, caller, req)
	if err != nil {
		return serviceError(l, "create_order_failed", err, "", "Failed to create order due to an internal error.")
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		return middleware.ErrAccessDenied
	}

	orders, err := h.Svc.ListOrders(ctx, caller)
	if err != nil {
		return serviceError(l, "list_orders_failed", err, "", "Failed to fetch orders.")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		return middleware.ErrAccessDenied
	}
	id, ok := parseID(c)
	if !ok {
		return fail(l, "get_order_failed", http.StatusBadRequest, "Invalid order id.", nil)
	}

	order, err := h.Svc.GetOrder(ctx, caller, id)
	if err != nil {
		return serviceError(l, "get_order_failed", err, "Order not found.", "Failed to fetch order.")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) UpdateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_order")

	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		return middleware.ErrAccessDenied
	}
	id, ok := parseID(c)
	if !ok {
		return fail(l, "update_order_failed", http.StatusBadRequest, "Invalid order id.", nil)
	}

	var req transport.UpdateOrderRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return serviceError(l, "update_order_failed", err, "", "Failed to update order.")
	}

	order, err := h.Svc.UpdateOrder(ctx, caller, id, req)
	if err != nil {
		return serviceError(l, "update_order_failed", err, "Order not found.", "Failed to update order.")
	}

	l.Info("update_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}
