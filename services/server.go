// Package services exposes the storefront over HTTP and gRPC: the catalog, the
// per-session cart, its websocket feed, the newsletter sign-up and health checks.
package services

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/norun9/bakery-storefront/cartstore"
	"github.com/norun9/bakery-storefront/catalog"
	"github.com/norun9/bakery-storefront/errdefs"
)

// ServiceName names the HTTP instrumentation and the gRPC health service.
const ServiceName = "storefront"

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	catalog  *catalog.Catalog
	sessions *Sessions
	storage  cartstore.Storage
	taxRate  float64
	log      logrus.FieldLogger

	done <-chan struct{}
}

type Options struct {
	Catalog  *catalog.Catalog
	Sessions *Sessions
	Storage  cartstore.Storage
	TaxRate  float64
	Log      logrus.FieldLogger

	// Done, when closed, ends every open cart feed.
	Done <-chan struct{}
}

func NewServer(opts Options) *Server {
	return &Server{
		catalog:  opts.Catalog,
		sessions: opts.Sessions,
		storage:  opts.Storage,
		taxRate:  opts.TaxRate,
		log:      opts.Log,
		done:     opts.Done,
	}
}

// Handler returns the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(ServiceName))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", s.listProductsHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/products/{id}", s.productHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/categories", s.listCategoriesHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/faq", s.faqHandler).Methods(http.MethodGet, http.MethodHead)

	api.HandleFunc("/cart", s.viewCartHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/cart", s.clearCartHandler).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", s.addToCartHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}", s.updateQuantityHandler).Methods(http.MethodPut)
	api.HandleFunc("/cart/items/{id}", s.removeFromCartHandler).Methods(http.MethodDelete)
	api.HandleFunc("/cart/ws", s.cartFeedHandler).Methods(http.MethodGet)

	api.HandleFunc("/newsletter", s.subscribeHandler).Methods(http.MethodPost)

	r.HandleFunc("/_healthz", s.healthzHandler)

	var handler http.Handler = r
	handler = &logHandler{log: s.log, next: handler}
	handler = ensureSessionID(handler)
	return handler
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	if !s.storage.Ping(r.Context()) {
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// renderJSON encodes v before writing the status, so an unencodable value becomes a
// 500 instead of an empty success.
func (s *Server) renderJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		requestLogger(r, s.log).WithError(err).Error("failed to encode response")
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response", Code: "INTERNAL"})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(append(body, '\n')); err != nil {
		requestLogger(r, s.log).WithError(err).Warn("failed to write response")
	}
}

// renderHTTPError maps the error taxonomy onto status codes.
func (s *Server) renderHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	log := requestLogger(r, s.log)
	code, ok := errdefs.CodeOf(err)
	status := http.StatusInternalServerError
	name := "INTERNAL"
	if ok {
		name = code.String()
		switch code {
		case errdefs.CodeInvalidArgument:
			status = http.StatusBadRequest
		case errdefs.CodeNotFound:
			status = http.StatusNotFound
		}
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request error")
	} else {
		log.WithError(err).Debug("request rejected")
	}
	s.renderJSON(w, r, status, errorResponse{Error: err.Error(), Code: name})
}
