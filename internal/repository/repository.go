package repository

import (
	"context"
	"errors"

	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/lib/pq"
)

var (
	_ OrderRepository    = (*PostgresOrderRepository)(nil)
	_ CategoryRepository = (*PostgresCatalogRepository)(nil)
	_ ProductRepository  = (*PostgresCatalogRepository)(nil)
	_ SettingsRepository = (*PostgresSiteRepository)(nil)
	_ SponsorRepository  = (*PostgresSiteRepository)(nil)

	_ OrderRepository    = (*MemoryStore)(nil)
	_ CategoryRepository = (*MemoryStore)(nil)
	_ ProductRepository  = (*MemoryStore)(nil)
	_ SettingsRepository = (*MemoryStore)(nil)
	_ SponsorRepository  = (*MemoryStore)(nil)

	_ OrderCache = (*RedisOrderCache)(nil)
)

// OrderRepository persists orders and their items.
type OrderRepository interface {
	// Create stores the order and all of its items atomically, assigning IDs
	// and timestamps in place.
	Create(ctx context.Context, order *models.Order, items []*models.OrderItem) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, int, error)
	GetItems(ctx context.Context, orderID string) ([]*models.OrderItem, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	// DeleteCategory removes the category and its products. It fails with
	// apperrors.ErrConflict when any of those products was ordered.
	DeleteCategory(ctx context.Context, id string) error
}

type ProductRepository interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	// GetProductsByIDs returns the products found, keyed by ID. Missing IDs
	// are simply absent from the map.
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	CountProductsByCategory(ctx context.Context) (map[string]int, error)
}

// SettingsRepository stores the single site settings row.
type SettingsRepository interface {
	// GetSettings returns apperrors.ErrNotFound until settings are first saved.
	GetSettings(ctx context.Context) (*models.SiteSettings, error)
	SaveSettings(ctx context.Context, settings *models.SiteSettings) error
}

type SponsorRepository interface {
	// ListSponsors returns sponsors ordered by display order.
	ListSponsors(ctx context.Context, enabledOnly bool) ([]*models.Sponsor, error)
	GetSponsor(ctx context.Context, id string) (*models.Sponsor, error)
	CreateSponsor(ctx context.Context, sponsor *models.Sponsor) error
	UpdateSponsor(ctx context.Context, sponsor *models.Sponsor) error
	DeleteSponsor(ctx context.Context, id string) error
}

// OrderCache defines caching operations for orders. A miss is (nil, nil).
type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}

const pgForeignKeyViolation = "23503"

// mapPgError turns constraint violations into domain errors.
func mapPgError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation {
		return apperrors.ErrConflict
	}
	return err
}
