package service

import (
	"context"
	"testing"

	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/fv-bodegones/storefront-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newCatalogService() (*CatalogService, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	return NewCatalogService(store, store, store, store, testConfig()), store
}

func TestCatalogService_Settings(t *testing.T) {
	svc, _ := newCatalogService()
	ctx := context.Background()

	defaults, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FV Bodegones", defaults.SiteName)
	assert.True(t, defaults.TaxPercentage.Equal(d("16")))

	updated, err := svc.UpdateSettings(ctx, &models.SiteSettingsInput{
		WhatsAppNumber: ptr("+58 412 000 1111"),
		TaxPercentage:  ptr(d("8")),
	})
	require.NoError(t, err)
	assert.Equal(t, "FV Bodegones", updated.SiteName)
	assert.True(t, updated.TaxPercentage.Equal(d("8")))

	got, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+58 412 000 1111", got.WhatsAppContact())
}

func TestCatalogService_UpdateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		in        models.SiteSettingsInput
		wantField string
	}{
		{"negative_tax", models.SiteSettingsInput{TaxPercentage: ptr(d("-1"))}, "tax_percentage"},
		{"tax_over_100", models.SiteSettingsInput{TaxPercentage: ptr(d("100.01"))}, "tax_percentage"},
		{"bad_email", models.SiteSettingsInput{ContactEmail: ptr("nope")}, "contact_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newCatalogService()
			_, err := svc.UpdateSettings(context.Background(), &tt.in)

			verr, ok := apperrors.AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestCatalogService_UpdateSettings_BoundaryTax(t *testing.T) {
	svc, _ := newCatalogService()

	for _, pct := range []decimal.Decimal{d("0"), d("100")} {
		_, err := svc.UpdateSettings(context.Background(), &models.SiteSettingsInput{TaxPercentage: ptr(pct)})
		assert.NoError(t, err, pct.String())
	}
}

func TestCatalogService_Products(t *testing.T) {
	svc, _ := newCatalogService()
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, &models.CategoryInput{Name: ptr("  Charcutería ")})
	require.NoError(t, err)
	assert.Equal(t, "Charcutería", cat.Name)
	assert.True(t, cat.Enabled)

	jamon, err := svc.CreateProduct(ctx, &models.ProductInput{
		Name:            ptr("Jamón de pierna"),
		Price:           ptr(d("12.40")),
		CategoryID:      ptr(cat.ID),
		MeasurementType: ptr(models.MeasurementUnitWeight),
		Featured:        ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MeasurementUnitWeight, jamon.MeasurementType)

	soda, err := svc.CreateProduct(ctx, &models.ProductInput{
		Name:       ptr("Malta"),
		Price:      ptr(d("0.90")),
		CategoryID: ptr(cat.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MeasurementUnitUnit, soda.MeasurementType)

	featured, err := svc.FeaturedProducts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, jamon.ID, featured[0].ID)

	byCat, err := svc.ProductsByCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Len(t, byCat, 2)

	_, err = svc.ProductsByCategory(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	counts, err := svc.ProductCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[cat.ID])

	updated, err := svc.UpdateProduct(ctx, soda.ID, &models.ProductInput{Price: ptr(d("1.10"))})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(d("1.10")))
	assert.Equal(t, "Malta", updated.Name)

	require.NoError(t, svc.DeleteProduct(ctx, soda.ID))
	_, err = svc.GetProduct(ctx, soda.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCatalogService_CreateProduct_Invalid(t *testing.T) {
	svc, _ := newCatalogService()
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, &models.CategoryInput{Name: ptr("Bebidas")})
	require.NoError(t, err)

	tests := []struct {
		name      string
		in        models.ProductInput
		wantField string
	}{
		{"no_name", models.ProductInput{Price: ptr(d("1")), CategoryID: ptr(cat.ID)}, "name"},
		{"no_price", models.ProductInput{Name: ptr("Agua"), CategoryID: ptr(cat.ID)}, "price"},
		{"negative_price", models.ProductInput{Name: ptr("Agua"), Price: ptr(d("-1")), CategoryID: ptr(cat.ID)}, "price"},
		{"unknown_category", models.ProductInput{Name: ptr("Agua"), Price: ptr(d("1")), CategoryID: ptr("missing")}, "category_id"},
		{"bad_measurement", models.ProductInput{Name: ptr("Agua"), Price: ptr(d("1")), CategoryID: ptr(cat.ID), MeasurementType: ptr(models.MeasurementUnit("litre"))}, "measurement_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, &tt.in)
			verr, ok := apperrors.AsValidation(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestCatalogService_DeleteCategory_WithOrderedProducts(t *testing.T) {
	svc, store := newCatalogService()
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, &models.CategoryInput{Name: ptr("Licores"), LeySeca: ptr(true)})
	require.NoError(t, err)
	assert.True(t, cat.LeySeca)

	ron, err := svc.CreateProduct(ctx, &models.ProductInput{Name: ptr("Ron"), Price: ptr(d("9")), CategoryID: ptr(cat.ID)})
	require.NoError(t, err)

	order := &models.Order{CustomerName: "A", CustomerPhone: "1", Total: d("9")}
	require.NoError(t, store.Create(ctx, order, []*models.OrderItem{{ProductID: ron.ID, ProductName: "Ron", Price: d("9"), Quantity: d("1"), Subtotal: d("9")}}))

	err = svc.DeleteCategory(ctx, cat.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	err = svc.DeleteProduct(ctx, ron.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.GetCategory(ctx, cat.ID)
	assert.NoError(t, err)
}

func TestCatalogService_Sponsors(t *testing.T) {
	svc, _ := newCatalogService()
	ctx := context.Background()

	a, err := svc.CreateSponsor(ctx, &models.SponsorInput{Name: ptr("Polar"), DisplayOrder: ptr(2)})
	require.NoError(t, err)
	b, err := svc.CreateSponsor(ctx, &models.SponsorInput{Name: ptr("Mavesa"), DisplayOrder: ptr(1)})
	require.NoError(t, err)
	_, err = svc.CreateSponsor(ctx, &models.SponsorInput{Name: ptr("Hidden"), Enabled: ptr(false)})
	require.NoError(t, err)

	public, err := svc.ListSponsors(ctx, true)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, b.ID, public[0].ID)
	assert.Equal(t, a.ID, public[1].ID)

	all, err := svc.ListSponsors(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.CreateSponsor(ctx, &models.SponsorInput{Name: ptr("Bad"), WebsiteURL: ptr("not a url")})
	verr, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "website_url", verr.Field)

	updated, err := svc.UpdateSponsor(ctx, a.ID, &models.SponsorInput{Enabled: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Enabled)

	require.NoError(t, svc.DeleteSponsor(ctx, b.ID))
	_, err = svc.GetSponsor(ctx, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
