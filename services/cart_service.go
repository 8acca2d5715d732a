package services

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/norun9/bakery-storefront/cartstore"
	"github.com/norun9/bakery-storefront/errdefs"
	"github.com/norun9/bakery-storefront/format"
	"github.com/norun9/bakery-storefront/pricing"
)

type cartView struct {
	Items          cartstore.Cart  `json:"items"`
	ItemsCount     int             `json:"itemsCount"`
	Total          int64           `json:"total"`
	TotalFormatted string          `json:"totalFormatted"`
	Summary        pricing.Summary `json:"summary"`
	Warning        string          `json:"warning,omitempty"`
}

func (s *Server) newCartView(c cartstore.Cart, discountPercent float64) (cartView, error) {
	if c == nil {
		c = cartstore.Cart{}
	}
	summary, err := pricing.Summarize(c.Total(), discountPercent, s.taxRate)
	if err != nil {
		return cartView{}, err
	}
	return cartView{
		Items:          c,
		ItemsCount:     c.ItemsCount(),
		Total:          c.Total(),
		TotalFormatted: format.FormatPrice(summary.Total),
		Summary:        summary,
	}, nil
}

// renderCart answers a cart operation. A PersistenceWarning still answers 200 with
// the updated cart and the warning attached.
func (s *Server) renderCart(w http.ResponseWriter, r *http.Request, c cartstore.Cart, opErr error, discountPercent float64) {
	if opErr != nil && !errdefs.IsPersistenceWarning(opErr) {
		s.renderHTTPError(w, r, opErr)
		return
	}
	view, err := s.newCartView(c, discountPercent)
	if err != nil {
		s.renderHTTPError(w, r, err)
		return
	}
	if opErr != nil {
		view.Warning = opErr.Error()
	}
	s.renderJSON(w, r, http.StatusOK, view)
}

func (s *Server) cart(r *http.Request) *cartstore.Store {
	return s.sessions.Store(r.Context(), sessionID(r))
}

func (s *Server) viewCartHandler(w http.ResponseWriter, r *http.Request) {
	discount := 0.0
	if v := r.URL.Query().Get("discount"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.renderHTTPError(w, r, errdefs.NewInvalidArgumentf("discount %q is not a number", v))
			return
		}
		discount = d
	}
	s.renderCart(w, r, s.sessions.Items(r.Context(), sessionID(r)), nil, discount)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

// addToCartHandler adds a catalog product at its catalog price. An omitted
// quantity adds one unit.
func (s *Server) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderHTTPError(w, r, errdefs.NewInvalidArgumentf("invalid request body: %v", err))
		return
	}
	if req.ProductID == "" {
		s.renderHTTPError(w, r, errdefs.NewInvalidArgument(errdefs.ErrMsgProductIDRequired))
		return
	}
	p, ok := s.catalog.Product(req.ProductID)
	if !ok {
		s.renderHTTPError(w, r, errdefs.NewNotFoundf("product %q not found", req.ProductID))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	c, err := s.cart(r).AddItem(r.Context(), p, quantity)
	s.renderCart(w, r, c, err, 0)
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) updateQuantityHandler(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderHTTPError(w, r, errdefs.NewInvalidArgumentf("invalid request body: %v", err))
		return
	}
	if req.Quantity == nil {
		s.renderHTTPError(w, r, errdefs.NewInvalidArgument("quantity is required"))
		return
	}

	c, err := s.cart(r).UpdateQuantity(r.Context(), mux.Vars(r)["id"], *req.Quantity)
	s.renderCart(w, r, c, err, 0)
}

func (s *Server) removeFromCartHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.cart(r).RemoveItem(r.Context(), mux.Vars(r)["id"])
	s.renderCart(w, r, c, err, 0)
}

func (s *Server) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.cart(r).Clear(r.Context())
	s.renderCart(w, r, c, err, 0)
}
