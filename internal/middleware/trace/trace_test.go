package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "finman/internal/log"
)

func newTestRouter(buf *bytes.Buffer) http.Handler {
	logger := applog.New(applog.Config{
		Level:     slog.LevelDebug,
		Format:    "json",
		Component: applog.ComponentHTTP,
		Output:    buf,
	})

	r := chi.NewRouter()
	r.Use(NewMiddleware(logger, func(*http.Request) string { return "198.51.100.1" }).Handler)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.Write([]byte(GetRequestID(r.Context())))
	})
	r.Post("/fail", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	})
	return r
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := newTestRouter(&buf)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	id := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err, "request id should be a uuid")
	assert.Equal(t, id, rec.Body.String(), "handler sees the same id")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "inside handler", lines[0]["msg"])
	assert.Equal(t, id, lines[0][applog.FieldRequestID])

	done := lines[1]
	assert.Equal(t, "HTTP request completed", done["msg"])
	assert.Equal(t, "/items/{id}", done[applog.FieldRoute])
	assert.Equal(t, float64(200), done[applog.FieldStatusCode])
	assert.Equal(t, "198.51.100.1", done[applog.FieldClientIP])
}

func TestMiddleware_KeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := newTestRouter(&buf)

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, incoming, rec.Header().Get(RequestIDHeader))
}

func TestMiddleware_ReplacesMalformedRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := newTestRouter(&buf)

	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestMiddleware_LogsClientErrorsAsWarn(t *testing.T) {
	var buf bytes.Buffer
	h := newTestRouter(&buf)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fail", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	lines := decodeLines(t, &buf)
	require.NotEmpty(t, lines)
	last := lines[len(lines)-1]
	assert.Equal(t, "WARN", last["level"])
	assert.Equal(t, float64(422), last[applog.FieldStatusCode])
}

func TestGetRequestID_Empty(t *testing.T) {
	assert.Equal(t, "", GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
