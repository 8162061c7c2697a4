package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps every repository in process memory. It backs
// DB_DRIVER=memory and service tests, and enforces the same relations as the
// SQL schema.
type MemoryStore struct {
	mu sync.RWMutex

	categories map[string]*models.Category
	products   map[string]*models.Product
	sponsors   map[string]*models.Sponsor
	settings   *models.SiteSettings
	orders     map[string]*models.Order
	orderSeq   map[string]int
	items      map[string][]*models.OrderItem
	seq        int

	now    func() time.Time
	logger *logging.Logger
}

func NewMemoryStore() *MemoryStore {
	logging.NewLogger("memory-store").Warn("Using in-memory storage; data is lost on restart")
	return &MemoryStore{
		categories: make(map[string]*models.Category),
		products:   make(map[string]*models.Product),
		sponsors:   make(map[string]*models.Sponsor),
		orders:     make(map[string]*models.Order),
		orderSeq:   make(map[string]int),
		items:      make(map[string][]*models.OrderItem),
		now:        time.Now,
		logger:     logging.NewLogger("memory-store"),
	}
}

func (m *MemoryStore) Create(ctx context.Context, order *models.Order, items []*models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if _, ok := m.products[item.ProductID]; !ok {
			return apperrors.ErrConflict
		}
	}

	now := m.now().UTC()
	order.ID = uuid.NewString()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	stored := make([]*models.OrderItem, 0, len(items))
	for _, item := range items {
		item.ID = uuid.NewString()
		item.OrderID = order.ID
		cp := *item
		stored = append(stored, &cp)
	}

	cp := *order
	m.seq++
	m.orders[order.ID] = &cp
	m.orderSeq[order.ID] = m.seq
	m.items[order.ID] = stored

	m.logger.Debug("Order stored", logging.Fields{"order_id": order.ID})
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		cp := *o
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return m.orderSeq[matched[i].ID] > m.orderSeq[matched[j].ID]
	})

	total := len(matched)
	return paginate(matched, filter.Limit, filter.Offset), total, nil
}

func (m *MemoryStore) GetItems(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*models.OrderItem, 0, len(m.items[orderID]))
	for _, item := range m.items[orderID] {
		cp := *item
		items = append(items, &cp)
	}
	return items, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = m.now().UTC()

	cp := *o
	return &cp, nil
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.categories[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) CreateCategory(ctx context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = uuid.NewString()
	c.CreatedAt = m.now().UTC()
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.categories[c.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	cp := *c
	cp.CreatedAt = existing.CreatedAt
	m.categories[c.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[id]; !ok {
		return apperrors.ErrNotFound
	}

	var doomed []string
	for pid, p := range m.products {
		if p.CategoryID != id {
			continue
		}
		if m.productOrderedLocked(pid) {
			return apperrors.ErrConflict
		}
		doomed = append(doomed, pid)
	}

	for _, pid := range doomed {
		delete(m.products, pid)
	}
	delete(m.categories, id)
	return nil
}

func (m *MemoryStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Product, 0, len(m.products))
	for _, p := range m.products {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.FeaturedOnly && !p.Featured {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			found[id] = &cp
		}
	}
	return found, nil
}

func (m *MemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[p.CategoryID]; !ok {
		return apperrors.ErrConflict
	}

	p.ID = uuid.NewString()
	p.CreatedAt = m.now().UTC()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.products[p.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if _, ok := m.categories[p.CategoryID]; !ok {
		return apperrors.ErrConflict
	}
	cp := *p
	cp.CreatedAt = existing.CreatedAt
	m.products[p.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return apperrors.ErrNotFound
	}
	if m.productOrderedLocked(id) {
		return apperrors.ErrConflict
	}
	delete(m.products, id)
	return nil
}

func (m *MemoryStore) CountProductsByCategory(ctx context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, p := range m.products {
		counts[p.CategoryID]++
	}
	return counts, nil
}

func (m *MemoryStore) GetSettings(ctx context.Context) (*models.SiteSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return nil, apperrors.ErrNotFound
	}
	cp := *m.settings
	return &cp, nil
}

func (m *MemoryStore) SaveSettings(ctx context.Context, s *models.SiteSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.UpdatedAt = m.now().UTC()
	cp := *s
	m.settings = &cp
	return nil
}

func (m *MemoryStore) ListSponsors(ctx context.Context, enabledOnly bool) ([]*models.Sponsor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Sponsor, 0, len(m.sponsors))
	for _, s := range m.sponsors {
		if enabledOnly && !s.Enabled {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryStore) GetSponsor(ctx context.Context, id string) (*models.Sponsor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sponsors[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) CreateSponsor(ctx context.Context, s *models.Sponsor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = uuid.NewString()
	s.CreatedAt = m.now().UTC()
	cp := *s
	m.sponsors[s.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateSponsor(ctx context.Context, s *models.Sponsor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sponsors[s.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	cp := *s
	cp.CreatedAt = existing.CreatedAt
	m.sponsors[s.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteSponsor(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sponsors[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.sponsors, id)
	return nil
}

func (m *MemoryStore) productOrderedLocked(productID string) bool {
	for _, items := range m.items {
		for _, item := range items {
			if item.ProductID == productID {
				return true
			}
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
