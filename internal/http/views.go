package http

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"finman/internal/core"
	"finman/internal/services"
)

// chartPalette colors pie slices in order; it wraps for unknown categories.
var chartPalette = []string{
	"#2563eb", // Food
	"#16a34a", // Rent
	"#f59e0b", // Bills
	"#db2777", // Entertainment
	"#7c3aed", // Shopping
	"#64748b", // Others
}

// formView echoes submitted values back into the add form.
type formView struct {
	Date        string
	Category    string
	Amount      string
	Description string
	SplitCount  int
}

type rowView struct {
	ID          int64
	Date        string
	Category    string
	Share       string
	Description string
	Note        string
	SplitCount  int
}

type confirmView struct {
	ID       int64
	Category string
	Amount   string
	Date     string
}

type sliceView struct {
	Color    template.CSS
	Category string
	Amount   string
	Percent  string
}

type chartView struct {
	Gradient template.CSS
	Slices   []sliceView
}

// pageView is the data behind index.html.
type pageView struct {
	Total      string
	Error      string
	Notice     string
	Form       formView
	Categories []core.Category
	Currency   string
	Confirm    *confirmView
	Rows       []rowView
	Chart      chartView
}

func defaultForm() formView {
	return formView{Date: core.Today().String(), SplitCount: 1}
}

func formFromInput(in services.ExpenseInput) formView {
	f := formView{
		Date:        in.Date,
		Category:    in.Category,
		Amount:      in.Amount,
		Description: in.Description,
		SplitCount:  in.SplitCount,
	}
	if f.SplitCount < 1 {
		f.SplitCount = 1
	}
	return f
}

// newPageView renders a snapshot into display strings.
func (s *Server) newPageView(snap services.Snapshot, form formView) pageView {
	v := pageView{
		Total:      s.formatMoney(snap.Summary.Total),
		Form:       form,
		Categories: core.Categories(),
		Currency:   s.svc.Currency(),
		Rows:       make([]rowView, 0, len(snap.Rows)),
		Chart:      s.chart(snap.Summary),
	}
	for _, r := range snap.Rows {
		v.Rows = append(v.Rows, rowView{
			ID:          r.Expense.ID,
			Date:        r.Expense.Date.String(),
			Category:    r.Expense.Category.String(),
			Share:       s.formatMoney(r.Share),
			Description: r.Expense.Description,
			Note:        r.Note,
			SplitCount:  r.Expense.SplitCount,
		})
	}
	return v
}

// confirmFor finds the row a delete confirmation refers to. Unknown or
// malformed ids yield nil, so a stale link just shows the page.
func (s *Server) confirmFor(snap services.Snapshot, raw string) *confirmView {
	if raw == "" {
		return nil
	}
	id, err := parseID(raw)
	if err != nil {
		return nil
	}
	for _, r := range snap.Rows {
		if r.Expense.ID == id {
			return &confirmView{
				ID:       id,
				Category: r.Expense.Category.String(),
				Amount:   s.formatMoney(r.Share),
				Date:     r.Expense.Date.String(),
			}
		}
	}
	return nil
}

// chart builds a CSS conic-gradient with one arc per category. Zero-valued
// categories still get a legend entry but no visible arc.
func (s *Server) chart(b core.Breakdown) chartView {
	if b.IsEmpty() {
		return chartView{}
	}

	var (
		cv    chartView
		stops []string
		start = decimal.Zero
	)
	for i, ca := range b.ByCategory {
		color := chartPalette[i%len(chartPalette)]
		end := start
		if b.Total.IsPositive() {
			end = start.Add(ca.Amount.Div(b.Total).Mul(decimal.NewFromInt(100)))
		}
		if i == len(b.ByCategory)-1 && b.Total.IsPositive() {
			end = decimal.NewFromInt(100)
		}
		stops = append(stops, fmt.Sprintf("%s %s%% %s%%", color, start.StringFixed(2), end.StringFixed(2)))
		start = end

		cv.Slices = append(cv.Slices, sliceView{
			Color:    template.CSS(color),
			Category: ca.Category.String(),
			Amount:   s.formatMoney(ca.Amount),
			Percent:  ca.Percent.StringFixed(1),
		})
	}

	if b.Total.IsPositive() {
		cv.Gradient = template.CSS("conic-gradient(" + strings.Join(stops, ", ") + ")")
	} else {
		cv.Gradient = template.CSS("var(--border)")
	}
	return cv
}

// JSON shapes of the API. Amounts are decimal strings with two places so
// clients never see binary floating point.

type expenseJSON struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Share       string `json:"share"`
	Description string `json:"description"`
	SplitCount  int    `json:"split_count"`
	Note        string `json:"note,omitempty"`
}

type categoryJSON struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Percent  string `json:"percent"`
}

type summaryJSON struct {
	Total      string         `json:"total"`
	Currency   string         `json:"currency"`
	ByCategory []categoryJSON `json:"by_category"`
}

// snapshotJSON is the view after a read or a change. ReloadError is set when
// a change was stored but the reload failed, leaving the lists empty.
type snapshotJSON struct {
	Expenses    []expenseJSON `json:"expenses"`
	Summary     summaryJSON   `json:"summary"`
	ReloadError bool          `json:"reload_error,omitempty"`
}

type createdJSON struct {
	ID int64 `json:"id"`
	snapshotJSON
}

func (s *Server) summaryJSON(b core.Breakdown) summaryJSON {
	out := summaryJSON{
		Total:      b.Total.StringFixed(2),
		Currency:   s.svc.Currency(),
		ByCategory: make([]categoryJSON, 0, len(b.ByCategory)),
	}
	for _, ca := range b.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryJSON{
			Category: ca.Category.String(),
			Amount:   ca.Amount.StringFixed(2),
			Percent:  ca.Percent.StringFixed(1),
		})
	}
	return out
}

func (s *Server) snapshotJSON(snap services.Snapshot) snapshotJSON {
	out := snapshotJSON{
		Expenses: make([]expenseJSON, 0, len(snap.Rows)),
		Summary:  s.summaryJSON(snap.Summary),
	}
	for _, r := range snap.Rows {
		out.Expenses = append(out.Expenses, expenseJSON{
			ID:          r.Expense.ID,
			Date:        r.Expense.Date.String(),
			Category:    r.Expense.Category.String(),
			Amount:      r.Expense.Amount.StringFixed(2),
			Share:       r.Share.StringFixed(2),
			Description: r.Expense.Description,
			SplitCount:  r.Expense.SplitCount,
			Note:        r.Note,
		})
	}
	return out
}
