package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finman/internal/core"
	"finman/internal/services"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func TestRequestBodyParser_ExpenseInput(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        services.ExpenseInput
		wantJSON    bool
	}{
		{
			name:        "form",
			contentType: "application/x-www-form-urlencoded",
			body:        "date=2024-01-15&category=Food&amount=12.50&description=Lunch&split_count=2",
			want: services.ExpenseInput{
				Date: "2024-01-15", Category: "Food", Amount: "12.50", Description: "Lunch", SplitCount: 2,
			},
		},
		{
			name:        "json with numeric values",
			contentType: "application/json",
			body:        `{"date":"2024-01-15","category":"Rent","amount":800,"split_count":3}`,
			want: services.ExpenseInput{
				Date: "2024-01-15", Category: "Rent", Amount: "800", SplitCount: 3,
			},
			wantJSON: true,
		},
		{
			name:        "json detected without content type",
			contentType: "",
			body:        `{"category":"Bills","amount":"40"}`,
			want:        services.ExpenseInput{Category: "Bills", Amount: "40"},
			wantJSON:    true,
		},
		{
			name:        "control characters and whitespace stripped",
			contentType: "application/x-www-form-urlencoded",
			body:        "category=+Food+&amount=1&description=%09Coffee%00+",
			want:        services.ExpenseInput{Category: "Food", Amount: "1", Description: "Coffee"},
		},
		{
			name:        "missing split count stays zero",
			contentType: "application/x-www-form-urlencoded",
			body:        "category=Food&amount=1&split_count=",
			want:        services.ExpenseInput{Category: "Food", Amount: "1"},
		},
		{
			name:        "empty body",
			contentType: "application/x-www-form-urlencoded",
			body:        "",
			want:        services.ExpenseInput{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.contentType, tt.body)

			got, err := p.ExpenseInput()
			if err != nil {
				t.Fatalf("ExpenseInput() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpenseInput() = %+v, want %+v", got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParser_BadSplitCount(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", "category=Food&amount=1&split_count=many")

	_, err := p.ExpenseInput()
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "split_count" || !errors.Is(err, core.ErrInvalidSplit) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	// Parse is memoized.
	if err := p.Parse(); err == nil {
		t.Fatal("expected the same error on second Parse")
	}
	if p.Get("amount") != "" {
		t.Error("Get should return empty after a failed parse")
	}
}

func TestRequestBodyParser_RejectsOversizedBody(t *testing.T) {
	body := "category=Food&amount=1&description=" + strings.Repeat("a", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err == nil {
		t.Fatal("expected an error for a body over the limit")
	}
	if !p.TooLarge() {
		t.Error("TooLarge() = false, want true")
	}
	if got := p.Get("description"); got != "" {
		t.Errorf("Get(description) = %d bytes, want nothing stored from a rejected body", len(got))
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{" 42 ", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseID(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseID(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		headers map[string]string
		want    bool
	}{
		{"api path", "/api/expenses", nil, true},
		{"json body", "/expenses", map[string]string{"Content-Type": "application/json; charset=utf-8"}, true},
		{"json accept", "/expenses", map[string]string{"Accept": "application/json"}, true},
		{"browser form", "/expenses", map[string]string{"Content-Type": "application/x-www-form-urlencoded", "Accept": "text/html"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := wantsJSON(req); got != tt.want {
				t.Errorf("wantsJSON() = %v, want %v", got, tt.want)
			}
		})
	}
}
