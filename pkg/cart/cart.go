// Package cart holds a storefront cart as an immutable value. Every
// transition returns a new Cart and leaves the receiver untouched.
package cart

import (
	"context"
	"errors"

	"github.com/Skotchmaster/shop_api/pkg/shopclient"
)

var ErrEmpty = errors.New("cart is empty")

type Line struct {
	Product  shopclient.Product
	Quantity int
}

type Cart struct {
	lines []Line
}

// Add puts quantity units of p in the cart, merging with an existing line
// for the same product. A non-positive quantity counts as one.
func (c Cart) Add(p shopclient.Product, quantity int) Cart {
	if quantity <= 0 {
		quantity = 1
	}

	lines := c.Lines()
	for i := range lines {
		if lines[i].Product.ID == p.ID {
			lines[i].Quantity += quantity
			return Cart{lines: lines}
		}
	}
	return Cart{lines: append(lines, Line{Product: p, Quantity: quantity})}
}

// SetQuantity replaces the quantity of a line; zero or less removes it.
func (c Cart) SetQuantity(productID uint, quantity int) Cart {
	if quantity <= 0 {
		return c.Remove(productID)
	}
	lines := c.Lines()
	for i := range lines {
		if lines[i].Product.ID == productID {
			lines[i].Quantity = quantity
		}
	}
	return Cart{lines: lines}
}

func (c Cart) Remove(productID uint) Cart {
	lines := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		if l.Product.ID != productID {
			lines = append(lines, l)
		}
	}
	return Cart{lines: lines}
}

func (c Cart) Reset() Cart { return Cart{} }

// Lines returns a copy of the cart lines in insertion order.
func (c Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c Cart) Len() int { return len(c.lines) }

// Total is an estimate from the prices shown in the catalog. The server
// prices the order itself at checkout.
func (c Cart) Total() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.Product.Price * float64(l.Quantity)
	}
	return total
}

// Request builds the order payload. Prices are never sent.
func (c Cart) Request(meta shopclient.OrderMeta) shopclient.CreateOrderRequest {
	items := make([]shopclient.OrderLine, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, shopclient.OrderLine{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return shopclient.CreateOrderRequest{Order: meta, Items: items}
}

type OrderPlacer interface {
	CreateOrder(ctx context.Context, req shopclient.CreateOrderRequest) (*shopclient.Order, error)
}

// Checkout places the order. On success the returned cart is empty; on
// failure it is the unchanged receiver.
func (c Cart) Checkout(ctx context.Context, placer OrderPlacer, meta shopclient.OrderMeta) (*shopclient.Order, Cart, error) {
	if len(c.lines) == 0 {
		return nil, c, ErrEmpty
	}
	order, err := placer.CreateOrder(ctx, c.Request(meta))
	if err != nil {
		return nil, c, err
	}
	return order, c.Reset(), nil
}
