package cartstore

import (
	"github.com/norun9/bakery-storefront/errdefs"
)

const (
	// MaxQuantity is the most units a single line may hold.
	MaxQuantity = 999
	// MaxPrice is the highest unit price, in pesos, a line may carry. Together with
	// MaxQuantity it keeps Total far from int64 overflow.
	MaxPrice int64 = 1_000_000_000
)

// Product is a catalog entry that can be put in a cart. Price is in whole pesos.
type Product struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Price       int64  `json:"price" yaml:"price"`
	Image       string `json:"image,omitempty" yaml:"image"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// LineItem is one distinct product in a cart with its aggregated quantity.
type LineItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Image    string `json:"image,omitempty"`
	Quantity int    `json:"quantity"`
}

// Cart is an ordered list of line items, at most one per product ID.
// The functions below never modify the Cart they are given.
type Cart []LineItem

// Index returns the position of the line for id.
func (c Cart) Index(id string) (int, bool) {
	for i, item := range c {
		if item.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a copy that shares nothing with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Total sums price * quantity over every line.
func (c Cart) Total() int64 {
	var total int64
	for _, item := range c {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// ItemsCount sums quantities: total units, not distinct products.
func (c Cart) ItemsCount() int {
	count := 0
	for _, item := range c {
		count += item.Quantity
	}
	return count
}

// Equal reports whether both carts hold the same lines in the same order.
func (c Cart) Equal(other Cart) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// AddLine merges quantity units of p into c. An existing line keeps its name and
// price and only grows; a new product is appended at the end.
func AddLine(c Cart, p Product, quantity int) (Cart, error) {
	if p.ID == "" {
		return c, errdefs.NewInvalidArgument(errdefs.ErrMsgProductIDRequired)
	}
	if quantity < 1 {
		return c, errdefs.NewInvalidArgument(errdefs.ErrMsgQuantityPositive)
	}
	if p.Price < 0 {
		return c, errdefs.NewInvalidArgument(errdefs.ErrMsgPriceNegative)
	}
	if p.Price > MaxPrice {
		return c, errdefs.NewInvalidArgumentf("%s of %d", errdefs.ErrMsgPriceTooLarge, MaxPrice)
	}
	if quantity > MaxQuantity {
		return c, errdefs.NewInvalidArgumentf("%s of %d", errdefs.ErrMsgQuantityTooLarge, MaxQuantity)
	}

	out := c.Clone()
	if i, ok := out.Index(p.ID); ok {
		// Both operands are at most MaxQuantity, so the sum cannot overflow.
		if out[i].Quantity+quantity > MaxQuantity {
			return c, errdefs.NewInvalidArgumentf("%s of %d", errdefs.ErrMsgQuantityTooLarge, MaxQuantity)
		}
		out[i].Quantity += quantity
		return out, nil
	}
	return append(out, LineItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Quantity: quantity,
	}), nil
}

// SetQuantity sets the line for id to exactly quantity. A quantity of zero or less
// removes the line; one above MaxQuantity is rejected. An absent id is a NotFound
// error.
func SetQuantity(c Cart, id string, quantity int) (Cart, error) {
	i, ok := c.Index(id)
	if !ok {
		return c, errdefs.NewNotFoundf("%s: %q", errdefs.ErrMsgItemNotInCart, id)
	}
	if quantity <= 0 {
		out, _ := RemoveLine(c, id)
		return out, nil
	}
	if quantity > MaxQuantity {
		return c, errdefs.NewInvalidArgumentf("%s of %d", errdefs.ErrMsgQuantityTooLarge, MaxQuantity)
	}
	out := c.Clone()
	out[i].Quantity = quantity
	return out, nil
}

// RemoveLine drops the line for id. The bool reports whether anything was removed.
func RemoveLine(c Cart, id string) (Cart, bool) {
	i, ok := c.Index(id)
	if !ok {
		return c, false
	}
	out := make(Cart, 0, len(c)-1)
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...), true
}
