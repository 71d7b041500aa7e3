package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/models"
)

const orderColumns = `id, order_code, items, total_price, customer_name, phone, email, address, note,
	status, shipping_company, tracking_number, created_at, updated_at`

// MaxCodeAttempts bounds how many order codes are tried before giving up.
const MaxCodeAttempts = 5

// CodeGenerator produces candidate order codes.
type CodeGenerator func() (string, error)

var shippingStatements = map[models.ShippingField]string{
	models.ShippingCompanyField: `UPDATE orders SET shipping_company = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
	models.TrackingNumberField:  `UPDATE orders SET tracking_number = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
}

// InsertOrder stores o, drawing a fresh code from next whenever the previous
// one collides with an existing order. o.ID, o.OrderCode and the timestamps
// are filled in on success.
func (tx *Tx) InsertOrder(ctx context.Context, o *models.Order, next CodeGenerator) error {
	for attempt := 1; ; attempt++ {
		code, err := next()
		if err != nil {
			return errors.Wrap(err, "generate order code")
		}

		res, err := tx.q.ExecContext(ctx,
			`INSERT INTO orders (order_code, items, total_price, customer_name, phone, email, address, note,
				status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			code, o.Items, o.TotalPrice, o.Name, o.Phone, o.Email, o.Address, o.Note, o.Status)
		if err != nil {
			if tx.dialect.IsUniqueViolation(err) && attempt < MaxCodeAttempts {
				log.WithField("attempt", attempt).Warn("order code collision, regenerating")
				continue
			}
			return errors.Wrap(err, "insert order")
		}

		id, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "order id")
		}
		stored, err := getOrder(ctx, tx.q, "id", id)
		if err != nil {
			return err
		}
		*o = *stored
		return nil
	}
}

// InsertOrder stores o in its own transaction and returns the assigned code.
func (s *Store) InsertOrder(ctx context.Context, o *models.Order, next CodeGenerator) (string, error) {
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertOrder(ctx, o, next)
	})
	return o.OrderCode, err
}

func getOrder(ctx context.Context, q Querier, column string, key interface{}) (*models.Order, error) {
	var o models.Order
	err := sqlx.GetContext(ctx, q, &o, `SELECT `+orderColumns+` FROM orders WHERE `+column+` = ?`, key)
	if err != nil {
		return nil, notFound(err, "order", key)
	}
	return &o, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var o *models.Order
	err := s.with(ctx, func(q Querier) (err error) {
		o, err = getOrder(ctx, q, "id", id)
		return err
	})
	return o, err
}

// GetOrderByCode looks an order up by its public code, ignoring case.
func (s *Store) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	var o *models.Order
	err := s.with(ctx, func(q Querier) (err error) {
		o, err = getOrder(ctx, q, "order_code", strings.ToUpper(strings.TrimSpace(code)))
		return err
	})
	return o, err
}

// OrderQuery narrows the admin order listing.
type OrderQuery struct {
	Status models.OrderStatus
	Limit  int
	Offset int
}

func (s *Store) ListOrders(ctx context.Context, oq OrderQuery) ([]models.Order, error) {
	if oq.Limit <= 0 {
		oq.Limit = 50
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []interface{}{}
	if oq.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, oq.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, oq.Limit, oq.Offset)

	orders := []models.Order{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &orders, query, args...)
	})
	return orders, errors.Wrap(err, "list orders")
}

// CountOrdersByStatus returns the number of orders per status. Statuses
// without orders are absent from the map.
func (s *Store) CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	var rows []struct {
		Status models.OrderStatus `db:"status"`
		Count  int                `db:"n"`
	}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &rows, `SELECT status, COUNT(*) AS n FROM orders GROUP BY status`)
	})
	if err != nil {
		return nil, errors.Wrap(err, "count orders")
	}
	counts := make(map[models.OrderStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// UpdateOrderStatus moves order id from status from to status to and applies
// any shipping fields given. It reports false when the order is no longer in
// status from.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, from, to models.OrderStatus, shipping *models.Shipping) (bool, error) {
	var company, tracking interface{}
	if shipping != nil {
		if shipping.Company != nil {
			company = nullIfEmpty(*shipping.Company)
		}
		if shipping.TrackingNumber != nil {
			tracking = nullIfEmpty(*shipping.TrackingNumber)
		}
	}

	var ok bool
	err := s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx,
			`UPDATE orders SET status = ?,
				shipping_company = CASE WHEN ? THEN ? ELSE shipping_company END,
				tracking_number = CASE WHEN ? THEN ? ELSE tracking_number END,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status = ?`,
			to,
			shipping != nil && shipping.Company != nil, company,
			shipping != nil && shipping.TrackingNumber != nil, tracking,
			id, from)
		if err != nil {
			return errors.Wrap(err, "update order status")
		}
		n, err := affected(res)
		ok = n == 1
		return err
	})
	return ok, err
}

// SetShippingField writes one shipping column. An empty value clears it.
func (s *Store) SetShippingField(ctx context.Context, id int64, field models.ShippingField, value string) error {
	stmt, ok := shippingStatements[field]
	if !ok {
		return apperr.Invalid("field", "unknown shipping field")
	}
	return s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx, stmt, nullIfEmpty(value), id)
		if err != nil {
			return errors.Wrapf(err, "set %s", field)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFoundf("order %d not found", id)
		}
		return nil
	})
}

func nullIfEmpty(s string) interface{} {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}
