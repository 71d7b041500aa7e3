// Package cart holds the per-visitor shopping cart operations.
package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/models"
)

// Store persists carts keyed by session id.
type Store interface {
	GetCart(ctx context.Context, sessionID string) ([]models.CartEntry, error)
	SetCart(ctx context.Context, sessionID string, entries []models.CartEntry) error
	ClearCart(ctx context.Context, sessionID string) error
}

// Add appends product to entries, or increments its existing line.
func Add(entries []models.CartEntry, p *models.Product, quantity int) []models.CartEntry {
	if quantity < 1 {
		quantity = 1
	}
	for i := range entries {
		if entries[i].ProductID == p.ID {
			entries[i].Quantity += quantity
			return entries
		}
	}
	return append(entries, models.CartEntry{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  quantity,
	})
}

// UpdateQuantity sets the quantity of line index, flooring it at 1.
func UpdateQuantity(entries []models.CartEntry, index, quantity int) ([]models.CartEntry, error) {
	if index < 0 || index >= len(entries) {
		return entries, apperr.Invalid("index", "no such cart line")
	}
	if quantity < 1 {
		quantity = 1
	}
	entries[index].Quantity = quantity
	return entries, nil
}

// Remove drops line index.
func Remove(entries []models.CartEntry, index int) ([]models.CartEntry, error) {
	if index < 0 || index >= len(entries) {
		return entries, apperr.Invalid("index", "no such cart line")
	}
	return append(entries[:index], entries[index+1:]...), nil
}

func Total(entries []models.CartEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.LineTotal())
	}
	return total
}

func Count(entries []models.CartEntry) int {
	n := 0
	for _, e := range entries {
		n += e.Quantity
	}
	return n
}

// Normalize repairs entries read back from a client-held session: lines
// without a product id are dropped, quantities are floored at 1 and negative
// prices are zeroed.
func Normalize(entries []models.CartEntry) []models.CartEntry {
	out := make([]models.CartEntry, 0, len(entries))
	for _, e := range entries {
		if e.ProductID <= 0 {
			continue
		}
		if e.Quantity < 1 {
			e.Quantity = 1
		}
		if e.Price.IsNegative() {
			e.Price = decimal.Zero
		}
		out = append(out, e)
	}
	return out
}

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]models.CartEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]models.CartEntry)}
}

func (m *MemoryStore) GetCart(_ context.Context, sessionID string) ([]models.CartEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CartEntry(nil), m.carts[sessionID]...), nil
}

func (m *MemoryStore) SetCart(_ context.Context, sessionID string, entries []models.CartEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = append([]models.CartEntry(nil), entries...)
	return nil
}

func (m *MemoryStore) ClearCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}
