package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ShareItem is one (category, share) pair fed to the aggregator.
type ShareItem struct {
	Category Category
	Share    decimal.Decimal
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category
	Amount   decimal.Decimal
	Percent  decimal.Decimal // of the grand total, one decimal place
}

// Breakdown is the per-category split of spending plus its grand total.
// Categories without records are absent rather than zero. Amounts keep the
// full precision of ShareOf; presenters round them to cents.
type Breakdown struct {
	ByCategory []CategoryAmount
	Total      decimal.Decimal
}

// Summarize sums shares per category. Known categories come out in display
// order; anything else follows in first-seen order.
func Summarize(items []ShareItem) Breakdown {
	totals := make(map[Category]decimal.Decimal)
	var unknown []Category
	total := decimal.Zero

	for _, it := range items {
		prev, seen := totals[it.Category]
		if !seen && !it.Category.Valid() {
			unknown = append(unknown, it.Category)
		}
		totals[it.Category] = prev.Add(it.Share)
		total = total.Add(it.Share)
	}

	b := Breakdown{ByCategory: []CategoryAmount{}, Total: total}
	order := append(Categories(), unknown...)
	for _, c := range order {
		amt, ok := totals[c]
		if !ok {
			continue
		}
		pct := decimal.Zero
		if !total.IsZero() {
			pct = amt.Mul(hundred).Div(total).Round(1)
		}
		b.ByCategory = append(b.ByCategory, CategoryAmount{Category: c, Amount: amt, Percent: pct})
	}
	return b
}

// SummarizeExpenses aggregates the user's share of each record.
func SummarizeExpenses(expenses []Expense) Breakdown {
	items := make([]ShareItem, 0, len(expenses))
	for _, e := range expenses {
		if e.IsDeleted() {
			continue
		}
		items = append(items, ShareItem{Category: e.Category, Share: e.Share()})
	}
	return Summarize(items)
}

// Amount returns the total for c and whether c has any records.
func (b Breakdown) Amount(c Category) (decimal.Decimal, bool) {
	for _, ca := range b.ByCategory {
		if ca.Category == c {
			return ca.Amount, true
		}
	}
	return decimal.Zero, false
}

// Map returns the breakdown as a category → amount mapping.
func (b Breakdown) Map() map[Category]decimal.Decimal {
	m := make(map[Category]decimal.Decimal, len(b.ByCategory))
	for _, ca := range b.ByCategory {
		m[ca.Category] = ca.Amount
	}
	return m
}

// IsEmpty reports whether there is nothing to chart.
func (b Breakdown) IsEmpty() bool {
	return len(b.ByCategory) == 0
}
