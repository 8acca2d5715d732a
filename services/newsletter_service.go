package services

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/norun9/bakery-storefront/cartstore"
	"github.com/norun9/bakery-storefront/errdefs"
	"github.com/norun9/bakery-storefront/validation"
)

const newsletterNamespace = "newsletter"

type subscribeRequest struct {
	Email string `json:"email"`
}

type subscribeResponse struct {
	Email      string `json:"email"`
	Subscribed bool   `json:"subscribed"`
}

// subscribeHandler records a newsletter sign-up under newsletter:<email> with the
// time it was made. Signing up twice keeps the latest time.
func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderHTTPError(w, r, errdefs.NewInvalidArgumentf("invalid request body: %v", err))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validation.ValidateEmail(email) {
		s.renderHTTPError(w, r, errdefs.NewInvalidArgumentf("%q is not a valid email address", req.Email))
		return
	}

	subscribers := cartstore.Scoped(s.storage, newsletterNamespace)
	if err := subscribers.Set(r.Context(), email, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.renderHTTPError(w, r, errors.Wrap(err, "store subscription"))
		return
	}
	requestLogger(r, s.log).WithField("email", email).Info("newsletter subscription")
	s.renderJSON(w, r, http.StatusCreated, subscribeResponse{Email: email, Subscribed: true})
}
