package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Tags is an ordered list of sub-tags stored as a JSON array in a TEXT column.
// Unreadable column values degrade to an empty list.
type Tags []string

func (t *Tags) Scan(src interface{}) error {
	*t = ParseTags(asBytes(src))
	return nil
}

func (t Tags) Value() (driver.Value, error) {
	return EncodeTags(t), nil
}

// ParseTags decodes a serialized tag list, returning an empty list on failure.
func ParseTags(raw []byte) Tags {
	var tags []string
	if len(raw) == 0 || json.Unmarshal(raw, &tags) != nil {
		return Tags{}
	}
	out := make(Tags, 0, len(tags))
	for _, tag := range tags {
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func EncodeTags(t Tags) string {
	if t == nil {
		t = Tags{}
	}
	b, _ := json.Marshal([]string(t))
	return string(b)
}

// LineItem is one entry of an order's immutable snapshot.
type LineItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// LineItems is the serialized order snapshot column.
type LineItems []LineItem

func (l *LineItems) Scan(src interface{}) error {
	*l = ParseLineItems(asBytes(src))
	return nil
}

func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		l = LineItems{}
	}
	b, err := json.Marshal([]LineItem(l))
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}
	return string(b), nil
}

// Total is the sum of price x quantity over the snapshot.
func (l LineItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range l {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ParseLineItems decodes an order snapshot, returning an empty list on failure.
func ParseLineItems(raw []byte) LineItems {
	var items []LineItem
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return LineItems{}
	}
	return items
}

func asBytes(src interface{}) []byte {
	switch v := src.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}
