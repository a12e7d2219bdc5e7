package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary totals a set of transactions.
type Summary struct {
	Income     decimal.Decimal  `json:"income"`
	Expense    decimal.Decimal  `json:"expense"`
	Net        decimal.Decimal  `json:"net"`
	ByCategory []CategoryAmount `json:"expense_by_category"`
}

// Summarize aggregates txs. Expense categories are ordered by amount, largest
// first, ties by name.
func Summarize(txs []Transaction) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	byCat := map[string]decimal.Decimal{}
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expense = s.Expense.Add(t.Amount)
			byCat[t.Category] = byCat[t.Category].Add(t.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)

	s.ByCategory = make([]CategoryAmount, 0, len(byCat))
	for name, amount := range byCat {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})
	return s
}
