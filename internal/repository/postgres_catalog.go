package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	categoryColumns = `id, name, image_url, enabled, ley_seca, created_at`
	productColumns  = `id, name, price, category_id, image_url, measurement_type,
		       external_code, stock, featured, created_at`
)

// PostgresCatalogRepository stores categories and products.
type PostgresCatalogRepository struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db:     db,
		logger: logging.NewLogger("catalog-repository"),
		now:    time.Now,
	}
}

func (r *PostgresCatalogRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PostgresCatalogRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	return c, err
}

func (r *PostgresCatalogRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	c.ID = uuid.NewString()
	c.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, image_url, enabled, ley_seca, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, nullString(c.ImageURL), c.Enabled, c.LeySeca, c.CreatedAt,
	)
	if err != nil {
		return mapPgError(err)
	}

	r.logger.Info("Category created", logging.Fields{"category_id": c.ID, "name": c.Name})
	return nil
}

func (r *PostgresCatalogRepository) UpdateCategory(ctx context.Context, c *models.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = $2, image_url = $3, enabled = $4, ley_seca = $5
		WHERE id = $1`,
		c.ID, c.Name, nullString(c.ImageURL), c.Enabled, c.LeySeca,
	)
	if err != nil {
		return mapPgError(err)
	}
	return expectAffected(res)
}

func (r *PostgresCatalogRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		r.logger.Warn("Failed to delete category", logging.Fields{
			"category_id": id,
			"error":       err.Error(),
		})
		return mapPgError(err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}

	r.logger.Info("Category deleted", logging.Fields{"category_id": id})
	return nil
}

func (r *PostgresCatalogRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := make([]interface{}, 0, 2)

	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if filter.FeaturedOnly {
		query += " AND featured = TRUE"
	}
	query += " ORDER BY name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return r.queryProducts(ctx, query, args...)
}

func (r *PostgresCatalogRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	return p, err
}

func (r *PostgresCatalogRepository) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	found := make(map[string]*models.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	products, err := r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		found[p.ID] = p
	}
	return found, nil
}

func (r *PostgresCatalogRepository) CreateProduct(ctx context.Context, p *models.Product) error {
	p.ID = uuid.NewString()
	p.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, price, category_id, image_url, measurement_type,
			external_code, stock, featured, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Price, p.CategoryID, nullString(p.ImageURL), p.MeasurementType,
		nullString(p.ExternalCode), p.Stock, p.Featured, p.CreatedAt,
	)
	if err != nil {
		return mapPgError(err)
	}

	r.logger.Info("Product created", logging.Fields{"product_id": p.ID, "name": p.Name})
	return nil
}

func (r *PostgresCatalogRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET name = $2, price = $3, category_id = $4, image_url = $5,
		       measurement_type = $6, external_code = $7, stock = $8, featured = $9
		WHERE id = $1`,
		p.ID, p.Name, p.Price, p.CategoryID, nullString(p.ImageURL),
		p.MeasurementType, nullString(p.ExternalCode), p.Stock, p.Featured,
	)
	if err != nil {
		return mapPgError(err)
	}
	return expectAffected(res)
}

func (r *PostgresCatalogRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	return expectAffected(res)
}

func (r *PostgresCatalogRepository) CountProductsByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category_id, COUNT(*) FROM products GROUP BY category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var categoryID string
		var n int
		if err := rows.Scan(&categoryID, &n); err != nil {
			return nil, err
		}
		counts[categoryID] = n
	}
	return counts, rows.Err()
}

func (r *PostgresCatalogRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	var imageURL sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &imageURL, &c.Enabled, &c.LeySeca, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ImageURL = imageURL.String
	return &c, nil
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var imageURL, externalCode sql.NullString
	var measurement string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.CategoryID,
		&imageURL,
		&measurement,
		&externalCode,
		&p.Stock,
		&p.Featured,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	unit, err := models.ParseMeasurementUnit(measurement)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", p.ID, err)
	}
	p.MeasurementType = unit
	p.ImageURL = imageURL.String
	p.ExternalCode = externalCode.String

	return &p, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
