package services

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/norun9/bakery-storefront/cartstore"
	"github.com/norun9/bakery-storefront/errdefs"
	"github.com/norun9/bakery-storefront/format"
)

type productView struct {
	cartstore.Product
	PriceFormatted string `json:"priceFormatted"`
	Summary        string `json:"summary"`
}

const summaryLength = 80

func newProductView(p cartstore.Product) productView {
	return productView{
		Product:        p,
		PriceFormatted: format.FormatPrice(p.Price),
		Summary:        format.Truncate(p.Description, summaryLength),
	}
}

// listProductsHandler lists the catalog, narrowed to one category when the
// category query parameter holds its slug.
func (s *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products := s.catalog.Products()
	if slug := r.URL.Query().Get("category"); slug != "" {
		products = s.catalog.ByCategory(slug)
	}
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, newProductView(p))
	}
	s.renderJSON(w, r, http.StatusOK, out)
}

func (s *Server) productHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, ok := s.catalog.Product(id)
	if !ok {
		s.renderHTTPError(w, r, errdefs.NewNotFoundf("product %q not found", id))
		return
	}
	s.renderJSON(w, r, http.StatusOK, newProductView(p))
}

func (s *Server) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, r, http.StatusOK, s.catalog.Categories())
}

func (s *Server) faqHandler(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, r, http.StatusOK, s.catalog.FAQ())
}
