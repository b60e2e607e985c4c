package domain

import "time"

// LineItem is one product entry in a cart. ID is the merge key: no two
// items in a cart share an ID. Name, ImageURL and Attributes are display
// metadata carried through untouched.
type LineItem struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	ImageURL   string            `json:"image_url,omitempty"`
	UnitPrice  int64             `json:"unit_price"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Cart is the ordered line-item collection. Insertion order is preserved
// for display; totals are derived on every read, never stored.
type Cart struct {
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Snapshot is the immutable view handed to consumers.
type Snapshot struct {
	Items     []LineItem `json:"items"`
	ItemCount int        `json:"item_count"`
	Subtotal  int64      `json:"subtotal"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ItemCount returns the sum of all quantities.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Subtotal returns the total price of all items in the cart (in cents).
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// FindIndex returns the index of the item with the given ID, or -1.
func (c *Cart) FindIndex(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot returns a deep copy of the cart with derived totals.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		Items:     CopyItems(c.Items),
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
		UpdatedAt: c.UpdatedAt,
	}
}

// CopyItems deep-copies a line-item slice, including attribute maps.
// Always returns a non-nil slice so serialized carts carry [] instead of null.
func CopyItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].Attributes != nil {
			attrs := make(map[string]string, len(out[i].Attributes))
			for k, v := range out[i].Attributes {
				attrs[k] = v
			}
			out[i].Attributes = attrs
		}
	}
	return out
}

// NormalizeItems sanitizes an item collection received from an external
// source: items with an empty ID or non-positive quantity are dropped, and
// duplicated IDs are merged by summing quantities (first occurrence keeps
// its metadata and position).
func NormalizeItems(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.ID == "" || item.Quantity <= 0 {
			continue
		}
		if item.UnitPrice < 0 {
			item.UnitPrice = 0
		}
		if i, ok := index[item.ID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}
