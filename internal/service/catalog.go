package service

import (
	"context"

	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/transport"
	"github.com/Skotchmaster/shop_api/pkg/logging"
	"github.com/Skotchmaster/shop_api/pkg/tokens"
)

// ProductIndex is the search backend kept in sync with catalog writes.
type ProductIndex interface {
	Upsert(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	// Index is nil when search is not configured.
	Index ProductIndex
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	items, err := s.Repo.ListProducts(ctx)
	return items, storeErr(err)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return p, nil
}

// CreateProduct stamps the seller when a seller creates the product.
func (s *CatalogService) CreateProduct(ctx context.Context, caller tokens.Identity, req transport.CreateProductRequest) (*models.Product, error) {
	prod := req.Model()
	if caller.UserID != 0 && caller.Role == tokens.RoleSeller {
		seller := caller.UserID
		prod.SellerID = &seller
	}

	if err := s.Repo.CreateProduct(ctx, &prod); err != nil {
		return nil, storeErr(err)
	}

	s.reindex(ctx, prod)
	publish(ctx, s.Events, events.TopicProducts, prod.ID, events.ProductCreated, prod)
	return &prod, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, req transport.UpdateProductRequest) (*models.Product, error) {
	fields := req.Fields()
	if len(fields) == 0 {
		return nil, clientErr(ErrValidation, "At least one field must be provided.")
	}

	prod, err := s.Repo.UpdateProduct(ctx, id, fields)
	if err != nil {
		return nil, storeErr(err)
	}

	s.reindex(ctx, *prod)
	publish(ctx, s.Events, events.TopicProducts, prod.ID, events.ProductUpdated, prod)
	return prod, nil
}

// DeleteProduct fails with ErrConflict while order items reference the product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return storeErr(err)
	}

	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_delete_failed", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicProducts, id, events.ProductDeleted, map[string]uint{"id": id})
	return nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	if s.Index == nil {
		return 0, nil, clientErr(ErrUnavailable, "Search is not available.")
	}
	total, items, err := s.Index.Search(ctx, query, from, size)
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (s *CatalogService) reindex(ctx context.Context, p models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Upsert(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
	}
}
