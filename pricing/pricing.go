// Package pricing holds the storefront's price math. Every function is pure.
package pricing

import (
	"math"

	"github.com/norun9/bakery-storefront/errdefs"
)

// DefaultTaxRate is the Chilean VAT (IVA) applied to every sale.
const DefaultTaxRate = 0.19

// CalculateDiscount returns price reduced by percent, which must lie in [0, 100].
// NaN is not in range.
func CalculateDiscount(price, percent float64) (float64, error) {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return 0, errdefs.NewInvalidArgument(errdefs.ErrMsgPercentageRange)
	}
	return price * (1 - percent/100), nil
}

// CalculateTax returns the tax owed on price at rate.
func CalculateTax(price, rate float64) float64 {
	return price * rate
}

// CalculateTotal applies the discount first and then taxes the discounted amount.
func CalculateTotal(price, discountPercent, taxRate float64) (float64, error) {
	discounted, err := CalculateDiscount(price, discountPercent)
	if err != nil {
		return 0, err
	}
	return discounted + CalculateTax(discounted, taxRate), nil
}

// Summary is the price breakdown shown next to a cart. Amounts are whole pesos.
type Summary struct {
	Subtotal        int64   `json:"subtotal"`
	DiscountPercent float64 `json:"discountPercent"`
	Discount        int64   `json:"discount"`
	Tax             int64   `json:"tax"`
	Total           int64   `json:"total"`
}

// Summarize breaks subtotal down into discount, tax and total.
func Summarize(subtotal int64, discountPercent, taxRate float64) (Summary, error) {
	discounted, err := CalculateDiscount(float64(subtotal), discountPercent)
	if err != nil {
		return Summary{}, err
	}
	tax := CalculateTax(discounted, taxRate)

	// Rounding each component keeps discount + tax consistent with the total.
	discountedPesos := int64(math.Round(discounted))
	taxPesos := int64(math.Round(tax))
	return Summary{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		Discount:        subtotal - discountedPesos,
		Tax:             taxPesos,
		Total:           discountedPesos + taxPesos,
	}, nil
}
