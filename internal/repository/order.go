package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/brewtrack/internal/models"
	"github.com/rookgm/brewtrack/internal/repository/postgres"
)

// RecentEventsLimit is how many events a snapshot embeds per order
const RecentEventsLimit = 50

const (
	orderColumns = `id, order_code, status, subtotal, discount, total, pickup_time, note, customer_name, customer_token, created_at`
	itemColumns  = `id, order_id, menu_item_id, name, qty, price, status, recipe`

	insertOrderQuery = `
						INSERT INTO orders (id, order_code, status, subtotal, discount, total, pickup_time, note, customer_name, customer_token)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
						RETURNING created_at
`
	insertItemQuery = `
						INSERT INTO order_items (id, order_id, position, menu_item_id, name, qty, price, status, recipe)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	selectOrderByIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE id = $1
`
	selectOrderByIDForUpdateQuery = selectOrderByIDQuery + ` FOR UPDATE`

	selectOrderByCodeQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE order_code = $1
`
	selectAllOrdersQuery = `
						SELECT ` + orderColumns + ` FROM orders
						ORDER BY created_at ASC
`
	selectOrdersByCustomerQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE customer_name = $1
						ORDER BY created_at DESC
`
	selectOwnedOrderQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE id = $1 AND customer_name = $2
`
	selectItemsByOrderQuery = `
						SELECT ` + itemColumns + ` FROM order_items
						WHERE order_id = $1
						ORDER BY position
`
	selectItemsByOrdersQuery = `
						SELECT ` + itemColumns + ` FROM order_items
						WHERE order_id = ANY($1)
						ORDER BY order_id, position
`
	selectItemByIDQuery = `
						SELECT ` + itemColumns + ` FROM order_items
						WHERE id = $1
`
	updateOrderStatusQuery = `
						UPDATE orders
						SET status = $1
						WHERE id = $2
`
	updateItemStatusQuery = `
						UPDATE order_items
						SET status = $1
						WHERE id = $2
`
	deleteOrderQuery = `
						DELETE FROM orders
						WHERE id = $1
`
)

// OrderRepository implements order and item storage on postgres
type OrderRepository struct {
	db *postgres.DB
	tx *Transactor
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB, tx *Transactor) *OrderRepository {
	return &OrderRepository{db: db, tx: tx}
}

// CreateOrder inserts order and its items in one transaction
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	return or.tx.WithinTx(ctx, func(ctx context.Context) error {
		q, _ := querier(ctx, or.db)

		err := q.QueryRow(ctx, insertOrderQuery,
			order.ID, order.Code, string(order.Status), order.Subtotal, order.Discount, order.Total,
			order.PickupTime, order.Note, order.CustomerName, order.CustomerToken,
		).Scan(&order.CreatedAt)
		if err != nil {
			if errCode := or.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
				return models.ErrConflictData
			}
			return err
		}

		batch := &pgx.Batch{}
		for i, item := range items {
			batch.Queue(insertItemQuery,
				item.ID, order.ID, i, item.MenuItemID, item.Name, item.Quantity, item.Price, string(item.Status), item.Recipe)
		}
		if err := q.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		return nil
	})
}

// GetOrder returns order by id. Inside a transaction the row is locked.
func (or *OrderRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	q, inTx := querier(ctx, or.db)
	query := selectOrderByIDQuery
	if inTx {
		query = selectOrderByIDForUpdateQuery
	}
	return or.getOrder(ctx, q, query, id)
}

// GetOrderByCode returns order by its human-readable code
func (or *OrderRepository) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	q, _ := querier(ctx, or.db)
	return or.getOrder(ctx, q, selectOrderByCodeQuery, code)
}

func (or *OrderRepository) getOrder(ctx context.Context, q postgres.Querier, query string, args ...any) (*models.Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return order, nil
}

// ListItems returns order items in placement order
func (or *OrderRepository) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	q, _ := querier(ctx, or.db)
	rows, err := q.Query(ctx, selectItemsByOrderQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns order item by id
func (or *OrderRepository) GetItem(ctx context.Context, id string) (*models.OrderItem, error) {
	q, _ := querier(ctx, or.db)
	item, err := scanItem(q.QueryRow(ctx, selectItemByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return item, nil
}

// UpdateOrderStatus updates order status
func (or *OrderRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	q, _ := querier(ctx, or.db)
	cmd, err := q.Exec(ctx, updateOrderStatusQuery, string(status), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}
	return nil
}

// UpdateItemStatus updates order item status
func (or *OrderRepository) UpdateItemStatus(ctx context.Context, id string, status models.ItemStatus) error {
	q, _ := querier(ctx, or.db)
	cmd, err := q.Exec(ctx, updateItemStatusQuery, string(status), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}
	return nil
}

// DeleteOrder deletes order, items go with it
func (or *OrderRepository) DeleteOrder(ctx context.Context, id string) error {
	q, _ := querier(ctx, or.db)
	cmd, err := q.Exec(ctx, deleteOrderQuery, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}
	return nil
}

// Snapshot returns orders matching scope with embedded items and recent events
func (or *OrderRepository) Snapshot(ctx context.Context, scope models.Scope) ([]models.OrderWithItems, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	q, _ := querier(ctx, or.db)

	var (
		rows pgx.Rows
		err  error
	)
	switch scope.Kind {
	case models.ScopeStaff:
		rows, err = q.Query(ctx, selectAllOrdersQuery)
	case models.ScopeCustomer:
		rows, err = q.Query(ctx, selectOrdersByCustomerQuery, scope.CustomerName)
	case models.ScopeOrder:
		if scope.CustomerName != "" {
			rows, err = q.Query(ctx, selectOwnedOrderQuery, scope.OrderID, scope.CustomerName)
		} else {
			rows, err = q.Query(ctx, selectOrderByIDQuery, scope.OrderID)
		}
	}
	if err != nil {
		return nil, err
	}

	orders := []models.OrderWithItems{}
	index := map[string]int{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[order.ID] = len(orders)
		orders = append(orders, models.OrderWithItems{Order: *order, Items: []models.OrderItem{}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	itemRows, err := q.Query(ctx, selectItemsByOrdersQuery, ids)
	if err != nil {
		return nil, err
	}
	for itemRows.Next() {
		item, err := scanItem(itemRows)
		if err != nil {
			itemRows.Close()
			return nil, err
		}
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, *item)
		}
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	events, err := recentEvents(ctx, q, ids, RecentEventsLimit)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if i, ok := index[ev.OrderID]; ok {
			orders[i].Events = append(orders[i].Events, ev)
		}
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order  models.Order
		status string
	)
	err := row.Scan(&order.ID, &order.Code, &status, &order.Subtotal, &order.Discount, &order.Total,
		&order.PickupTime, &order.Note, &order.CustomerName, &order.CustomerToken, &order.CreatedAt)
	if err != nil {
		return nil, err
	}
	order.Status = models.OrderStatus(status)
	return &order, nil
}

func scanItem(row pgx.Row) (*models.OrderItem, error) {
	var (
		item   models.OrderItem
		status string
	)
	err := row.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &item.Quantity, &item.Price, &status, &item.Recipe)
	if err != nil {
		return nil, err
	}
	item.Status = models.ItemStatus(status)
	return &item, nil
}
