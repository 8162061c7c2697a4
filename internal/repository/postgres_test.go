package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	orderCols   = []string{"id", "customer_name", "customer_phone", "customer_email", "customer_address", "total", "status", "notes", "created_at", "updated_at"}
	productCols = []string{"id", "name", "price", "category_id", "image_url", "measurement_type", "external_code", "stock", "featured", "created_at"}
	fixedTime   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestPostgresOrderRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresOrderRepository(db)
	repo.now = func() time.Time { return fixedTime }

	order := &models.Order{
		CustomerName:  "María",
		CustomerPhone: "04145551234",
		Total:         decimal.RequireFromString("19.50"),
	}
	items := []*models.OrderItem{
		{ProductID: "p1", ProductName: "Harina", Price: decimal.RequireFromString("5"), Quantity: decimal.NewFromInt(3), MeasurementType: models.MeasurementUnitUnit, Subtotal: decimal.RequireFromString("15")},
		{ProductID: "p2", ProductName: "Queso", Price: decimal.RequireFromString("8"), Quantity: decimal.NewFromInt(250), MeasurementType: models.MeasurementUnitWeight, Subtotal: decimal.RequireFromString("2")},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "María", "04145551234", sql.NullString{}, sql.NullString{}, sqlmock.AnyArg(), "pending", sql.NullString{}, fixedTime, fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 0, "p1", "Harina", sqlmock.AnyArg(), sqlmock.AnyArg(), "unit", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 1, "p2", "Queso", sqlmock.AnyArg(), sqlmock.AnyArg(), "weight", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), order, items)
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, fixedTime, order.CreatedAt)
	for _, item := range items {
		assert.Equal(t, order.ID, item.OrderID)
		assert.NotEmpty(t, item.ID)
	}
}

func TestPostgresOrderRepository_Create_RollsBackOnItemFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Order{CustomerName: "A", CustomerPhone: "1"}, []*models.OrderItem{
		{ProductID: "gone", MeasurementType: models.MeasurementUnitUnit},
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestPostgresOrderRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresOrderRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1`).
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("ord-1", "María", "0414", nil, "Acarigua", "19.50", "confirmed", nil, fixedTime, fixedTime))

	order, err := repo.GetByID(context.Background(), "ord-1")
	require.NoError(t, err)

	assert.Equal(t, "María", order.CustomerName)
	assert.Equal(t, "", order.CustomerEmail)
	assert.Equal(t, "Acarigua", order.CustomerAddress)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("19.5")))
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestPostgresOrderRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresOrderRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(orderCols))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresOrderRepository_List_WithStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresOrderRepository(db)
	status := models.OrderStatusPending

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE status = \$1`).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT (.+) FROM orders WHERE status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("pending", 2, 0).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("o3", "C", "3", nil, nil, "3.00", "pending", nil, fixedTime, fixedTime).
			AddRow("o2", "B", "2", nil, nil, "2.00", "pending", nil, fixedTime, fixedTime))

	orders, total, err := repo.List(context.Background(), models.OrderListFilter{Status: &status, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "o3", orders[0].ID)
}

func TestPostgresOrderRepository_List_NoFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresOrderRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM orders ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(50, 10).
		WillReturnRows(sqlmock.NewRows(orderCols))

	orders, total, err := repo.List(context.Background(), models.OrderListFilter{Limit: 50, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, orders)
}

func TestPostgresOrderRepository_UpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresOrderRepository(db)
	repo.now = func() time.Time { return fixedTime }

	mock.ExpectQuery(`UPDATE orders SET status = \$2, updated_at = \$3 WHERE id = \$1 RETURNING`).
		WithArgs("ord-1", "ready", fixedTime).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("ord-1", "María", "0414", nil, nil, "19.50", "ready", nil, fixedTime, fixedTime))

	order, err := repo.UpdateStatus(context.Background(), "ord-1", models.OrderStatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, order.Status)
}

func TestPostgresOrderRepository_UpdateStatus_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresOrderRepository(db)

	mock.ExpectQuery(`UPDATE orders`).WillReturnRows(sqlmock.NewRows(orderCols))

	_, err := repo.UpdateStatus(context.Background(), "missing", models.OrderStatusReady)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresOrderRepository_GetItems(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresOrderRepository(db)

	mock.ExpectQuery(`FROM order_items WHERE order_id = \$1 ORDER BY position`).
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "price", "quantity", "measurement_type", "subtotal"}).
			AddRow("i1", "ord-1", "p1", "Harina", "5.00", "3", "unit", "15.00").
			AddRow("i2", "ord-1", "p2", "Queso", "8.00", "250", "weight", "2.00"))

	items, err := repo.GetItems(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.MeasurementUnitWeight, items[1].MeasurementType)
	assert.True(t, items[1].Quantity.Equal(decimal.NewFromInt(250)))
}

func TestPostgresCatalogRepository_DeleteCategory_Conflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCatalogRepository(db)

	mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
		WithArgs("cat-1").
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	err := repo.DeleteCategory(context.Background(), "cat-1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestPostgresCatalogRepository_DeleteCategory_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCatalogRepository(db)

	mock.ExpectExec(`DELETE FROM categories`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteCategory(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresCatalogRepository_ListProducts_Filters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCatalogRepository(db)

	mock.ExpectQuery(`FROM products WHERE 1=1 AND category_id = \$1 AND featured = TRUE ORDER BY name LIMIT \$2`).
		WithArgs("cat-1", 8).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("p1", "Queso", "8.00", "cat-1", nil, "weight", "V-001", "12.5", true, fixedTime))

	products, err := repo.ListProducts(context.Background(), models.ProductFilter{CategoryID: "cat-1", FeaturedOnly: true, Limit: 8})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, models.MeasurementUnitWeight, products[0].MeasurementType)
	assert.Equal(t, "V-001", products[0].ExternalCode)
}

func TestPostgresCatalogRepository_RejectsUnknownMeasurement(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCatalogRepository(db)

	mock.ExpectQuery(`FROM products WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("p1", "Caja", "8.00", "cat-1", nil, "box", nil, "0", false, fixedTime))

	_, err := repo.GetProduct(context.Background(), "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "box")
}

func TestPostgresCatalogRepository_GetProductsByIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCatalogRepository(db)

	mock.ExpectQuery(`FROM products WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("p1", "Harina", "1.50", "cat-1", nil, "unit", nil, "0", false, fixedTime))

	found, err := repo.GetProductsByIDs(context.Background(), []string{"p1", "p9"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Contains(t, found, "p1")

	empty, err := repo.GetProductsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgresCatalogRepository_CountProductsByCategory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCatalogRepository(db)

	mock.ExpectQuery(`SELECT category_id, COUNT\(\*\) FROM products GROUP BY category_id`).
		WillReturnRows(sqlmock.NewRows([]string{"category_id", "count"}).AddRow("c1", 4).AddRow("c2", 1))

	counts, err := repo.CountProductsByCategory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c1": 4, "c2": 1}, counts)
}

func TestPostgresSiteRepository_GetSettings_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSiteRepository(db)

	mock.ExpectQuery(`FROM site_settings`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetSettings(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresSiteRepository_SaveSettings_Upserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSiteRepository(db)
	repo.now = func() time.Time { return fixedTime }

	mock.ExpectExec(`INSERT INTO site_settings (.+) ON CONFLICT \(id\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &models.SiteSettings{SiteName: "FV Bodegones", TaxPercentage: decimal.NewFromInt(16)}
	require.NoError(t, repo.SaveSettings(context.Background(), s))
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, fixedTime, s.UpdatedAt)
}

func TestPostgresSiteRepository_ListSponsors_EnabledOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSiteRepository(db)

	mock.ExpectQuery(`FROM sponsors WHERE enabled = TRUE ORDER BY display_order, name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "logo_url", "website_url", "enabled", "display_order", "created_at"}).
			AddRow("s1", "Polar", "/logo.png", nil, true, 1, fixedTime))

	sponsors, err := repo.ListSponsors(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, sponsors, 1)
	assert.Equal(t, 1, sponsors[0].DisplayOrder)
}

func TestMapPgError(t *testing.T) {
	assert.ErrorIs(t, mapPgError(&pq.Error{Code: "23503"}), apperrors.ErrConflict)

	other := &pq.Error{Code: "23505"}
	assert.Equal(t, error(other), mapPgError(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, mapPgError(plain))
}
