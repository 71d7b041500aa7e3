// Package ordering turns a visitor's cart into an order and moves orders
// through their lifecycle.
package ordering

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/cache"
	"github.com/01moynul/pawshop-golang/internal/cart"
	"github.com/01moynul/pawshop-golang/internal/models"
	"github.com/01moynul/pawshop-golang/internal/notify"
	"github.com/01moynul/pawshop-golang/internal/store"
)

// ErrEmptyCart is returned when checkout is attempted with nothing to buy.
var ErrEmptyCart = &apperr.Error{Kind: apperr.Validation, Field: "cart", Message: "cart is empty"}

// Store is the part of the repository the pipeline needs.
type Store interface {
	InTx(ctx context.Context, fn func(tx *store.Tx) error) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByCode(ctx context.Context, code string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to models.OrderStatus, shipping *models.Shipping) (bool, error)
	SetShippingField(ctx context.Context, id int64, field models.ShippingField, value string) error
}

// Invalidator drops cached reads made stale by a write.
type Invalidator interface {
	InvalidateOps(ops ...cache.Op)
}

type Options struct {
	// PaymentChatURL is the chat link customers are sent to after checkout,
	// e.g. https://wa.me/905551112233.
	PaymentChatURL string
	Currency       string
	MaxAttempts    int
	RetryBackoff   time.Duration
}

type Service struct {
	store    Store
	carts    cart.Store
	cache    Invalidator
	notifier notify.Notifier
	opts     Options
	newCode  store.CodeGenerator
}

func NewService(s Store, carts cart.Store, c Invalidator, n notify.Notifier, opts Options) *Service {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 50 * time.Millisecond
	}
	return &Service{store: s, carts: carts, cache: c, notifier: n, opts: opts, newCode: GenerateOrderCode}
}

// Placement is the result of a successful checkout.
type Placement struct {
	Order      *models.Order `json:"order"`
	PaymentURL string        `json:"paymentUrl"`
}

// PlaceOrder checks out the cart of sessionID. On success the order is
// stored, stock is reserved, the cart is cleared and the payment link is
// returned. On a stock shortfall nothing changes and the error lists every
// short line.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, contact models.Contact) (*Placement, error) {
	// 1. --- Read and repair the cart ---
	entries, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	items := mergeLines(cart.Normalize(entries))
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		Items:      items,
		TotalPrice: items.Total(),
		Contact:    contact,
		Status:     models.StatusPreparing,
	}

	// 2. --- Check, insert and reserve in one transaction ---
	var low []store.StockLevel
	for attempt := 1; ; attempt++ {
		low, err = s.place(ctx, order)
		if err == nil || !apperr.IsTransient(err) || attempt == s.opts.MaxAttempts {
			break
		}
		log.WithError(err).WithField("attempt", attempt).Warn("checkout hit a busy database, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.opts.RetryBackoff * time.Duration(attempt)):
		}
	}
	if err != nil {
		return nil, err
	}

	// 3. --- Side effects after commit ---
	s.cache.InvalidateOps(cache.ProductOps...)

	for _, level := range low {
		s.notifier.NotifyLowStock(level.Name, level.Quantity, level.Threshold)
	}
	s.notifier.NotifyOrderCreated(order)

	if err := s.carts.ClearCart(ctx, sessionID); err != nil {
		log.WithError(err).WithField("order", order.OrderCode).Error("order placed but cart not cleared")
	}

	log.WithFields(log.Fields{
		"order": order.OrderCode,
		"items": len(order.Items),
		"total": order.TotalPrice.String(),
	}).Info("order placed")

	return &Placement{Order: order, PaymentURL: s.PaymentURL(order)}, nil
}

func (s *Service) place(ctx context.Context, order *models.Order) ([]store.StockLevel, error) {
	var low []store.StockLevel
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		ids := make([]int64, len(order.Items))
		for i, item := range order.Items {
			ids[i] = item.ID
		}
		levels, err := tx.StockLevels(ctx, ids)
		if err != nil {
			return err
		}
		if short := shortfalls(order.Items, levels); len(short) > 0 {
			return apperr.InsufficientStock(short)
		}

		if err := tx.InsertOrder(ctx, order, s.newCode); err != nil {
			return err
		}

		// ReserveStock re-checks availability inside the UPDATE.
		for _, item := range order.Items {
			ok, err := tx.ReserveStock(ctx, item.ID, item.Quantity)
			if err != nil {
				return err
			}
			level, err := tx.StockLevel(ctx, item.ID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.InsufficientStock([]apperr.Shortfall{{
					ProductID: item.ID, Name: item.Name, Requested: item.Quantity, Available: level.Quantity,
				}})
			}
			if level.Low() {
				low = append(low, level)
			}
		}
		return nil
	})
	return low, err
}

func shortfalls(items models.LineItems, levels map[int64]store.StockLevel) []apperr.Shortfall {
	var short []apperr.Shortfall
	for _, item := range items {
		level, ok := levels[item.ID]
		if ok && level.Quantity >= item.Quantity {
			continue
		}
		sf := apperr.Shortfall{ProductID: item.ID, Name: item.Name, Requested: item.Quantity}
		if ok {
			sf.Available = level.Quantity
			sf.Name = level.Name
		}
		short = append(short, sf)
	}
	return short
}

// mergeLines folds repeated products into one line, keeping the first
// captured price.
func mergeLines(entries []models.CartEntry) models.LineItems {
	items := models.LineItems{}
	index := map[int64]int{}
	for _, e := range entries {
		if i, ok := index[e.ProductID]; ok {
			items[i].Quantity += e.Quantity
			continue
		}
		index[e.ProductID] = len(items)
		items = append(items, models.LineItem{ID: e.ProductID, Name: e.Name, Price: e.Price, Quantity: e.Quantity})
	}
	return items
}

// PaymentURL builds the chat link that carries the order code, customer
// name and total to the shop.
func (s *Service) PaymentURL(o *models.Order) string {
	message := fmt.Sprintf("Hello! I'd like to complete my order.\n\nOrder code: %s\nName: %s\nTotal: %s %s\n\nCould you share your IBAN details?\n",
		o.OrderCode, o.Name, o.TotalPrice.StringFixed(2), s.opts.Currency)
	return s.opts.PaymentChatURL + "?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}

// SetStatus moves an order to status, attaching any shipping details, and
// notifies the customer once.
func (s *Service) SetStatus(ctx context.Context, orderID int64, status string, shipping *models.Shipping) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %q", status))
	}

	current, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransition(next) {
		return nil, apperr.Conflictf("order %s cannot move from %s to %s", current.OrderCode, current.Status, next)
	}

	updated, err := s.store.UpdateOrderStatus(ctx, orderID, current.Status, next, shipping)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, apperr.Conflictf("order %s was changed by someone else, reload and retry", current.OrderCode)
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyStatusChanged(order, next)

	log.WithFields(log.Fields{"order": order.OrderCode, "from": current.Status, "to": next}).Info("order status changed")
	return order, nil
}

// SetShippingField edits one shipping column of an order.
func (s *Service) SetShippingField(ctx context.Context, orderID int64, field, value string) (*models.Order, error) {
	f, ok := models.ParseShippingField(field)
	if !ok {
		return nil, apperr.Invalid("field", fmt.Sprintf("unknown shipping field %q", field))
	}
	if err := s.store.SetShippingField(ctx, orderID, f, value); err != nil {
		return nil, err
	}
	return s.store.GetOrder(ctx, orderID)
}

// Lookup finds an order by its public code. No authentication is involved:
// knowing the code is enough.
func (s *Service) Lookup(ctx context.Context, code string) (*models.Order, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, apperr.Invalid("code", "order codes look like XXXX-XXXX-XXXX-XXXX")
	}
	return s.store.GetOrderByCode(ctx, code)
}
