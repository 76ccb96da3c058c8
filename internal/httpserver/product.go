package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/search"
	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/transport"
	"github.com/Skotchmaster/shop_api/internal/validation"
	"github.com/Skotchmaster/shop_api/pkg/logging"
	middleware "github.com/Skotchmaster/shop_api/pkg/middleware/auth"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	items, err := h.Svc.ListProducts(ctx)
	if err != nil {
		return serviceError(l, "get_products_failed", err, "", "Failed to fetch products.")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, ok := parseID(c)
	if !ok {
		return fail(l, "get_product_failed", http.StatusBadRequest, "Invalid product id.", nil)
	}

	product, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return serviceError(l, "get_product_failed", err, "Product not found.", "Failed to fetch product.")
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req transport.CreateProductRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return serviceError(l, "create_product_failed", err, "", "Failed to create product.")
	}

	caller, _ := middleware.IdentityFrom(c)
	product, err := h.Svc.CreateProduct(ctx, caller, req)
	if err != nil {
		return serviceError(l, "create_product_failed", err, "", "Failed to create product.")
	}

	l.Info("create_product_success", "product_id", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update_product")

	id, ok := parseID(c)
	if !ok {
		return fail(l, "update_product_failed", http.StatusBadRequest, "Invalid product id.", nil)
	}

	var req transport.UpdateProductRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return serviceError(l, "update_product_failed", err, "", "Failed to update product.")
	}

	product, err := h.Svc.UpdateProduct(ctx, id, req)
	if err != nil {
		return serviceError(l, "update_product_failed", err, "Product not found.", "Failed to update product.")
	}

	l.Info("update_product_success", "product_id", product.ID)
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, ok := parseID(c)
	if !ok {
		return fail(l, "delete_product_failed", http.StatusBadRequest, "Invalid product id.", nil)
	}

	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return serviceError(l, "delete_product_failed", err, "Product not found.", "Failed to delete product.")
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return fail(l, "search_failed", http.StatusBadRequest, "Query parameter q is required.", nil)
	}
	page, from, size := search.Page(c.QueryParam("page"), c.QueryParam("size"))

	total, items, err := h.Svc.SearchProducts(ctx, q, from, size)
	if err != nil {
		return serviceError(l, "search_failed", err, "", "Search failed.")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":       page,
			"size":       size,
			"total":      total,
			"totalPages": (total + int64(size) - 1) / int64(size),
			"hasPrev":    page > 1,
			"hasNext":    int64(from+size) < total,
		},
	})
}
