package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/testutil"
	"github.com/Skotchmaster/shop_api/internal/transport"
	"github.com/Skotchmaster/shop_api/pkg/tokens"
)

type memIndex struct {
	docs      map[uint]models.Product
	searchErr error
}

func newMemIndex() *memIndex { return &memIndex{docs: map[uint]models.Product{}} }

func (m *memIndex) Upsert(_ context.Context, p models.Product) error {
	m.docs[p.ID] = p
	return nil
}

func (m *memIndex) Delete(_ context.Context, id uint) error {
	delete(m.docs, id)
	return nil
}

func (m *memIndex) Search(_ context.Context, _ string, from, size int) (int64, []models.Product, error) {
	if m.searchErr != nil {
		return 0, nil, m.searchErr
	}
	out := make([]models.Product, 0, len(m.docs))
	for _, p := range m.docs {
		out = append(out, p)
	}
	return int64(len(out)), out, nil
}

func TestCatalog_Lifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	pub := &recordingPublisher{}
	ix := newMemIndex()
	svc := &CatalogService{Repo: repo.New(db, time.Second), Events: pub, Index: ix}
	ctx := context.Background()

	seller := testutil.SeedUser(t, db, "s@example.com", models.RoleSeller)
	prod, err := svc.CreateProduct(ctx, tokens.Identity{UserID: seller.ID, Role: tokens.RoleSeller}, transport.CreateProductRequest{
		Name:  "Lamp",
		Price: testutil.Ptr(12.5),
	})
	require.NoError(t, err)
	require.NotNil(t, prod.SellerID)
	assert.Equal(t, seller.ID, *prod.SellerID)
	assert.Contains(t, ix.docs, prod.ID)

	updated, err := svc.UpdateProduct(ctx, prod.ID, transport.UpdateProductRequest{Price: testutil.Ptr(10.0)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, updated.Price)
	assert.Equal(t, "Lamp", updated.Name)
	assert.Equal(t, 10.0, ix.docs[prod.ID].Price)

	list, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteProduct(ctx, prod.ID))
	assert.NotContains(t, ix.docs, prod.ID)

	_, err = svc.GetProduct(ctx, prod.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{events.ProductCreated, events.ProductUpdated, events.ProductDeleted}, pub.types())
}

func TestCatalog_AnonymousCreateHasNoSeller(t *testing.T) {
	svc := &CatalogService{Repo: repo.New(testutil.NewDB(t), time.Second)}
	prod, err := svc.CreateProduct(context.Background(), tokens.Identity{}, transport.CreateProductRequest{
		Name:  "Free",
		Price: testutil.Ptr(0.0),
	})
	require.NoError(t, err)
	assert.Nil(t, prod.SellerID)
	assert.Equal(t, 0.0, prod.Price)
}

func TestCatalog_DeleteReferencedIsConflict(t *testing.T) {
	db := testutil.NewDB(t)
	r := repo.New(db, time.Second)
	svc := &CatalogService{Repo: r}
	orders := &OrderService{Repo: r}
	ctx := context.Background()

	u := testutil.SeedUser(t, db, "a@example.com", models.RoleUser)
	p := testutil.SeedProduct(t, db, "p", 1)
	_, err := orders.CreateOrder(ctx, tokens.Identity{UserID: u.ID}, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: int64(p.ID), Quantity: 1}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteProduct(ctx, p.ID), ErrConflict)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, 999), ErrNotFound)
}

func TestCatalog_UpdateRequiresFields(t *testing.T) {
	svc := &CatalogService{Repo: repo.New(testutil.NewDB(t), time.Second)}
	_, err := svc.UpdateProduct(context.Background(), 1, transport.UpdateProductRequest{})
	requireClientError(t, err, ErrValidation, "At least one field must be provided.")

	_, err = svc.UpdateProduct(context.Background(), 1, transport.UpdateProductRequest{Name: testutil.Ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_Search(t *testing.T) {
	svc := &CatalogService{Repo: repo.New(testutil.NewDB(t), time.Second)}
	_, _, err := svc.SearchProducts(context.Background(), "lamp", 0, 10)
	assert.ErrorIs(t, err, ErrUnavailable)

	ix := newMemIndex()
	ix.docs[1] = models.Product{ID: 1, Name: "Lamp"}
	svc.Index = ix
	total, items, err := svc.SearchProducts(context.Background(), "lamp", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	ix.searchErr = errors.New("cluster red")
	_, _, err = svc.SearchProducts(context.Background(), "lamp", 0, 10)
	assert.ErrorContains(t, err, "cluster red")
}
