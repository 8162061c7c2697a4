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
)

const orderColumns = `id, customer_name, customer_phone, customer_email, customer_address,
		       total, status, notes, created_at, updated_at`

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logging.NewLogger("order-repository"),
		now:    time.Now,
	}
}

// GetByID retrieves an order by its unique identifier.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.logger.Debug("Fetching order by ID", logging.Fields{"order_id": id})

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to fetch order", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}

	return order, nil
}

// Create inserts the order and its items in one transaction.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order, items []*models.OrderItem) error {
	now := r.now().UTC()
	order.ID = uuid.NewString()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_name, customer_phone, customer_email, customer_address,
			total, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID,
		order.CustomerName,
		order.CustomerPhone,
		nullString(order.CustomerEmail),
		nullString(order.CustomerAddress),
		order.Total,
		order.Status,
		nullString(order.Notes),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", logging.Fields{"error": err.Error()})
		return mapPgError(err)
	}

	for i, item := range items {
		item.ID = uuid.NewString()
		item.OrderID = order.ID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, position, product_id, product_name, price, quantity, measurement_type, subtotal
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID,
			item.OrderID,
			i,
			item.ProductID,
			item.ProductName,
			item.Price,
			item.Quantity,
			item.MeasurementType,
			item.Subtotal,
		)
		if err != nil {
			r.logger.Error("Failed to create order item", logging.Fields{
				"order_id":   order.ID,
				"product_id": item.ProductID,
				"error":      err.Error(),
			})
			return mapPgError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.logger.Info("Order created successfully", logging.Fields{
		"order_id": order.ID,
		"items":    len(items),
		"total":    order.Total.String(),
	})

	return nil
}

// UpdateStatus updates the status of an order.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, status, r.now().UTC()))
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to update order status", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}

	r.logger.Info("Order status updated", logging.Fields{
		"order_id":   id,
		"new_status": status,
	})

	return order, nil
}

// List retrieves orders newest first, with the total count matching filter.
func (r *PostgresOrderRepository) List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, int, error) {
	baseQuery := ` FROM orders`
	args := make([]interface{}, 0, 3)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		baseQuery += fmt.Sprintf(" WHERE status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	selectQuery := "SELECT " + orderColumns + baseQuery +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	r.logger.Debug("Orders listed", logging.Fields{
		"count": len(orders),
		"total": total,
	})

	return orders, total, nil
}

// GetItems returns the items of an order. An unknown order has no items.
func (r *PostgresOrderRepository) GetItems(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, price, quantity, measurement_type, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.OrderItem, 0)
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Price,
			&item.Quantity,
			&item.MeasurementType,
			&item.Subtotal,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var email, address, notes sql.NullString

	err := row.Scan(
		&order.ID,
		&order.CustomerName,
		&order.CustomerPhone,
		&email,
		&address,
		&order.Total,
		&order.Status,
		&notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.CustomerEmail = email.String
	order.CustomerAddress = address.String
	order.Notes = notes.String

	return &order, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
