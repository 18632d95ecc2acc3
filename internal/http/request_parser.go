// Package http provides the web presenter: an HTML page and a JSON API over
// the expense service.
//
// This file implements utilities for parsing request bodies. Forms and JSON
// are accepted on the same endpoints.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finman/internal/core"
	"finman/internal/services"
)

// maxBodyBytes bounds request bodies; an expense is a handful of short fields.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing. A body over
// maxBodyBytes is an error rather than a truncated value.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// TooLarge reports whether the body was rejected for exceeding maxBodyBytes.
func (p *RequestBodyParser) TooLarge() bool {
	var maxErr *http.MaxBytesError
	return errors.As(p.err, &maxErr)
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ExpenseInput extracts the add-expense fields. A split count that is not
// an integer is a validation error; a missing one means a single person.
func (p *RequestBodyParser) ExpenseInput() (services.ExpenseInput, error) {
	in := services.ExpenseInput{
		Date:        p.Get("date"),
		Category:    p.Get("category"),
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
	}

	if raw := p.Get("split_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return in, &core.ValidationError{Field: "split_count", Err: core.ErrInvalidSplit}
		}
		in.SplitCount = n
	}
	return in, nil
}

// isValidationError reports whether err came from input validation.
func isValidationError(err error) bool {
	var verr *core.ValidationError
	return errors.As(err, &verr)
}
