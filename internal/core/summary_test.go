package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSummarize(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Category: "Salary", Amount: decimal.NewFromInt(1000)},
		{Type: Expense, Category: "Rent", Amount: decimal.NewFromInt(500)},
		{Type: Expense, Category: "Food", Amount: decimal.RequireFromString("20.50")},
		{Type: Expense, Category: "Food", Amount: decimal.RequireFromString("30.25")},
	}
	s := Summarize(txs)
	if s.Income.String() != "1000" || s.Expense.String() != "550.75" || s.Net.String() != "449.25" {
		t.Fatalf("unexpected totals %+v", s)
	}
	if len(s.ByCategory) != 2 || s.ByCategory[0].Name != "Rent" || s.ByCategory[1].Amount.String() != "50.75" {
		t.Fatalf("unexpected categories %+v", s.ByCategory)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if !s.Net.IsZero() || len(s.ByCategory) != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
}
