package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// domainStatus maps ledger sentinels to HTTP status codes. Order matters only
// for errors that wrap more than one sentinel.
var domainStatus = []struct {
	err  error
	code int
}{
	{domain.ErrDuplicateRequest, http.StatusConflict},
	{domain.ErrUnknownAccount, http.StatusNotFound},
	{domain.ErrUnknownMember, http.StatusNotFound},
	{domain.ErrPanelNotFound, http.StatusNotFound},
	{domain.ErrListingNotFound, http.StatusNotFound},
	{domain.ErrDuplicateAccount, http.StatusConflict},
	{domain.ErrDuplicatePanel, http.StatusConflict},
	{domain.ErrAlreadyManaged, http.StatusConflict},
	{domain.ErrListingNotOpen, http.StatusConflict},
	{domain.ErrInvalidCredential, http.StatusUnauthorized},
	{domain.ErrUnauthorized, http.StatusForbidden},
	{domain.ErrNotAManager, http.StatusForbidden},
	{domain.ErrInvalidAccount, http.StatusUnprocessableEntity},
	{domain.ErrNotAUser, http.StatusUnprocessableEntity},
	{domain.ErrInvalidReading, http.StatusUnprocessableEntity},
	{domain.ErrCapacityExceeded, http.StatusUnprocessableEntity},
	{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
	{domain.ErrInvalidListing, http.StatusUnprocessableEntity},
	{domain.ErrPaymentMismatch, http.StatusUnprocessableEntity},
	{domain.ErrSelfPurchase, http.StatusUnprocessableEntity},
	{domain.ErrJournalInDoubt, http.StatusServiceUnavailable},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, m := range domainStatus {
		if errors.Is(err, m.err) {
			return m.code, err.Error()
		}
	}

	// Unexpected error (journal failure, encoding): log the real cause.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
