package http

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
)

// ResponseBuilder provides a fluent API for building responses, so every
// handler sets status, headers and body the same way.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the body. Encoding failures become a 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode JSON response", "component", "http", "error", err)
		b.statusCode = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	b.headers["Content-Type"] = "application/json"
	b.body = append(body, '\n')
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *ResponseBuilder) BodyHTML(html string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Redirect turns the response into a 303 See Other to location.
func (b *ResponseBuilder) Redirect(location string) *ResponseBuilder {
	b.statusCode = http.StatusSeeOther
	b.headers["Location"] = location
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// errorBody is the JSON error shape of the API.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates an error response, JSON or an HTML fragment.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string, asJSON bool) *ResponseBuilder {
	if asJSON {
		return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
	}
	return NewResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string, asJSON bool) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, asJSON)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string, asJSON bool) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message, asJSON)
}

// ValidationErrorResponse creates a 422 naming the rejected field.
func ValidationErrorResponse(field, message string) *ResponseBuilder {
	return NewResponse().
		Status(http.StatusUnprocessableEntity).
		JSON(errorBody{Error: message, Field: field})
}
