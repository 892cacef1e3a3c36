package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const maxIdempotencyKeyLength = 128

// Field presence and format are checked by order assembly so every missing field is
// reported together.
type checkoutRequest struct {
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	Phone         string                `json:"phone"`
	Address       types.ShippingAddress `json:"address"`
	Notes         string                `json:"notes"`
	PaymentMethod string                `json:"payment_method"`
}

func (c checkoutRequest) toInput(key string) orders.CheckoutInput {
	return orders.CheckoutInput{
		Form: orders.CheckoutForm{
			Name:    c.Name,
			Email:   c.Email,
			Phone:   c.Phone,
			Address: c.Address,
			Notes:   validators.SanitizeString(c.Notes, 1000),
		},
		PaymentMethod:  c.PaymentMethod,
		IdempotencyKey: key,
	}
}

// Checkout places an order from the session's cart. The cart is cleared only when the
// order was stored. A retried submission with the same Idempotency-Key returns the
// original order with 200 instead of 201.
func Checkout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout"))
			return
		}
		sessionID, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key, err := idempotencyKey(r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		placement, err := svc.PlaceOrder(r.Context(), sessionID, payload.toInput(key))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writePlacement(w, placement)
	}
}

func idempotencyKey(r *http.Request, required bool) (string, error) {
	key := strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader))
	if key == "" && required {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required").
			WithDetails(map[string]string{"Idempotency-Key": "is required"})
	}
	if len(key) > maxIdempotencyKeyLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long").
			WithDetails(map[string]string{"Idempotency-Key": "is invalid"})
	}
	return key, nil
}

func writePlacement(w http.ResponseWriter, placement *orders.Placement) {
	status := http.StatusCreated
	if placement.Replayed {
		status = http.StatusOK
	}
	responses.WriteSuccessStatus(w, status, placement)
}
