// Package validation checks storefront input before it reaches the catalog or the cart.
package validation

import (
	"regexp"
	"strings"

	"github.com/norun9/bakery-storefront/cartstore"
)

const (
	ErrMsgNameRequired     = "name is required"
	ErrMsgPricePositive    = "price must be greater than 0"
	ErrMsgCategoryRequired = "category is required"
)

// Result collects every violation found, in check order.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidateProduct checks name, price and category, in that order, and reports all
// violations instead of stopping at the first.
func ValidateProduct(p cartstore.Product) Result {
	errs := []string{}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrMsgNameRequired)
	}
	if p.Price <= 0 {
		errs = append(errs, ErrMsgPricePositive)
	}
	if strings.TrimSpace(p.Category) == "" {
		errs = append(errs, ErrMsgCategoryRequired)
	}
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail reports whether email looks like local@domain.tld.
// It is a structural check only and accepts addresses RFC 5322 would reject.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}
