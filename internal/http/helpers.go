package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"finman/internal/core"
)

var errInvalidID = errors.New("expense id must be a positive integer")

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatMoney renders an amount with the configured symbol, e.g. "₹12.50".
func (s *Server) formatMoney(d decimal.Decimal) string {
	return core.FormatMoney(s.svc.Currency(), d)
}

// parseIDParam reads the {id} route parameter.
func parseIDParam(r *http.Request) (int64, error) {
	return parseID(chi.URLParam(r, "id"))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// wantsJSON reports whether the client sent or asked for JSON.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// validationMessage turns a validation error into text for the form.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a valid non-negative number."
	case errors.Is(err, core.ErrInvalidSplit):
		return "Split count must be at least 1."
	case errors.Is(err, core.ErrUnknownCategory):
		return "Please choose one of the listed categories."
	case errors.Is(err, core.ErrInvalidDate):
		return "Date must be in YYYY-MM-DD format."
	case errors.Is(err, core.ErrMissingField):
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return "Please fill in the " + strings.ReplaceAll(verr.Field, "_", " ") + " field."
		}
		return "Please fill in all required fields."
	default:
		return "Invalid input."
	}
}
