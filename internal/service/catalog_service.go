package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/config"
	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/fv-bodegones/storefront-service/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	defaultFeaturedLimit = 12
	maxFeaturedLimit     = 50
)

// CatalogService manages categories, products, sponsors and site settings.
type CatalogService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	sponsors   repository.SponsorRepository
	settings   repository.SettingsRepository
	config     *config.Config
	logger     *logging.Logger
}

func NewCatalogService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	sponsors repository.SponsorRepository,
	settings repository.SettingsRepository,
	cfg *config.Config,
) *CatalogService {
	return &CatalogService{
		categories: categories,
		products:   products,
		sponsors:   sponsors,
		settings:   settings,
		config:     cfg,
		logger:     logging.NewLogger("catalog-service"),
	}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.categories.ListCategories(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return s.categories.GetCategory(ctx, id)
}

func (s *CatalogService) CreateCategory(ctx context.Context, in *models.CategoryInput) (*models.Category, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.NewValidationError("name", "is required")
	}

	c := &models.Category{Enabled: true}
	applyCategoryInput(c, in)

	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, in *models.CategoryInput) (*models.Category, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	c, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	applyCategoryInput(c, in)

	if err := s.categories.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes a category and its products. Categories whose
// products appear in past orders cannot be removed.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	err := s.categories.DeleteCategory(ctx, id)
	if errors.Is(err, apperrors.ErrConflict) {
		s.logger.Warn("Category has ordered products", logging.Fields{"category_id": id})
		return fmt.Errorf("%w: category has products that appear in existing orders", apperrors.ErrConflict)
	}
	return err
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return s.products.ListProducts(ctx, models.ProductFilter{})
}

func (s *CatalogService) FeaturedProducts(ctx context.Context, limit int) ([]*models.Product, error) {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	if limit > maxFeaturedLimit {
		limit = maxFeaturedLimit
	}
	return s.products.ListProducts(ctx, models.ProductFilter{FeaturedOnly: true, Limit: limit})
}

func (s *CatalogService) ProductsByCategory(ctx context.Context, categoryID string) ([]*models.Product, error) {
	if _, err := s.categories.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.products.ListProducts(ctx, models.ProductFilter{CategoryID: categoryID})
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.products.GetProduct(ctx, id)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in *models.ProductInput) (*models.Product, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.NewValidationError("name", "is required")
	}
	if in.Price == nil {
		return nil, apperrors.NewValidationError("price", "is required")
	}
	if in.CategoryID == nil || *in.CategoryID == "" {
		return nil, apperrors.NewValidationError("category_id", "is required")
	}

	p := &models.Product{MeasurementType: models.MeasurementUnitUnit}
	applyProductInput(p, in)

	if err := s.checkProduct(ctx, p); err != nil {
		return nil, err
	}
	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in *models.ProductInput) (*models.Product, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	applyProductInput(p, in)

	if err := s.checkProduct(ctx, p); err != nil {
		return nil, err
	}
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	err := s.products.DeleteProduct(ctx, id)
	if errors.Is(err, apperrors.ErrConflict) {
		return fmt.Errorf("%w: product appears in existing orders", apperrors.ErrConflict)
	}
	return err
}

// ProductCounts returns the number of products in each category.
func (s *CatalogService) ProductCounts(ctx context.Context) (map[string]int, error) {
	return s.products.CountProductsByCategory(ctx)
}

func (s *CatalogService) checkProduct(ctx context.Context, p *models.Product) error {
	if p.Price.IsNegative() {
		return apperrors.NewValidationError("price", "must not be negative")
	}
	if p.Stock.IsNegative() {
		return apperrors.NewValidationError("stock", "must not be negative")
	}
	if !p.MeasurementType.Valid() {
		return apperrors.NewValidationError("measurement_type", "must be unit or weight")
	}
	if _, err := s.categories.GetCategory(ctx, p.CategoryID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidationError("category_id", "category does not exist")
		}
		return err
	}
	return nil
}

func (s *CatalogService) ListSponsors(ctx context.Context, enabledOnly bool) ([]*models.Sponsor, error) {
	return s.sponsors.ListSponsors(ctx, enabledOnly)
}

func (s *CatalogService) GetSponsor(ctx context.Context, id string) (*models.Sponsor, error) {
	return s.sponsors.GetSponsor(ctx, id)
}

func (s *CatalogService) CreateSponsor(ctx context.Context, in *models.SponsorInput) (*models.Sponsor, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.NewValidationError("name", "is required")
	}

	sp := &models.Sponsor{Enabled: true}
	applySponsorInput(sp, in)

	if err := s.sponsors.CreateSponsor(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *CatalogService) UpdateSponsor(ctx context.Context, id string, in *models.SponsorInput) (*models.Sponsor, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	sp, err := s.sponsors.GetSponsor(ctx, id)
	if err != nil {
		return nil, err
	}
	applySponsorInput(sp, in)

	if err := s.sponsors.UpdateSponsor(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *CatalogService) DeleteSponsor(ctx context.Context, id string) error {
	return s.sponsors.DeleteSponsor(ctx, id)
}

// GetSettings returns the stored site settings, or defaults when none have
// been saved yet.
func (s *CatalogService) GetSettings(ctx context.Context) (*models.SiteSettings, error) {
	return currentSettings(ctx, s.settings, s.config)
}

func (s *CatalogService) UpdateSettings(ctx context.Context, in *models.SiteSettingsInput) (*models.SiteSettings, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.TaxPercentage != nil {
		if err := checkTaxPercentage(*in.TaxPercentage); err != nil {
			return nil, err
		}
	}

	settings, err := currentSettings(ctx, s.settings, s.config)
	if err != nil {
		return nil, err
	}
	applySettingsInput(settings, in)

	if err := s.settings.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("Site settings updated", logging.Fields{"tax_percentage": settings.TaxPercentage.String()})
	return settings, nil
}

func currentSettings(ctx context.Context, repo repository.SettingsRepository, cfg *config.Config) (*models.SiteSettings, error) {
	settings, err := repo.GetSettings(ctx)
	if errors.Is(err, apperrors.ErrNotFound) {
		return defaultSettings(cfg), nil
	}
	return settings, err
}

func defaultSettings(cfg *config.Config) *models.SiteSettings {
	return &models.SiteSettings{
		SiteName:        "FV Bodegones",
		SiteDescription: "Tu bodegón de confianza",
		TaxPercentage:   cfg.Store.DefaultTaxPercentage,
	}
}

func checkTaxPercentage(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return apperrors.NewValidationError("tax_percentage", "must be between 0 and 100")
	}
	return nil
}

func applyCategoryInput(c *models.Category, in *models.CategoryInput) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.ImageURL != nil {
		c.ImageURL = *in.ImageURL
	}
	if in.Enabled != nil {
		c.Enabled = *in.Enabled
	}
	if in.LeySeca != nil {
		c.LeySeca = *in.LeySeca
	}
}

func applyProductInput(p *models.Product, in *models.ProductInput) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.MeasurementType != nil {
		p.MeasurementType = *in.MeasurementType
	}
	if in.ExternalCode != nil {
		p.ExternalCode = *in.ExternalCode
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
}

func applySponsorInput(sp *models.Sponsor, in *models.SponsorInput) {
	if in.Name != nil {
		sp.Name = strings.TrimSpace(*in.Name)
	}
	if in.LogoURL != nil {
		sp.LogoURL = *in.LogoURL
	}
	if in.WebsiteURL != nil {
		sp.WebsiteURL = *in.WebsiteURL
	}
	if in.Enabled != nil {
		sp.Enabled = *in.Enabled
	}
	if in.DisplayOrder != nil {
		sp.DisplayOrder = *in.DisplayOrder
	}
}

func applySettingsInput(s *models.SiteSettings, in *models.SiteSettingsInput) {
	if in.SiteName != nil {
		s.SiteName = *in.SiteName
	}
	if in.SiteDescription != nil {
		s.SiteDescription = *in.SiteDescription
	}
	if in.ContactPhone != nil {
		s.ContactPhone = *in.ContactPhone
	}
	if in.ContactEmail != nil {
		s.ContactEmail = *in.ContactEmail
	}
	if in.ContactAddress != nil {
		s.ContactAddress = *in.ContactAddress
	}
	if in.WhatsAppNumber != nil {
		s.WhatsAppNumber = *in.WhatsAppNumber
	}
	if in.TaxPercentage != nil {
		s.TaxPercentage = *in.TaxPercentage
	}
}
