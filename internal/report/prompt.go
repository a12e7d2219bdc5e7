package report

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

// DefaultMaxPromptChars bounds the prompt sent to the generator.
const DefaultMaxPromptChars = 900

const promptTemplate = `You are a financial advisor. Below is a list of financial transactions with date, type (expense or income), category and amount.
Analyze these transactions and write a detailed financial report. The report should include:
1. A summary of total income and total expenses.
2. The most frequent expense categories.
3. Any unusual or high spending patterns.
4. Suggestions to optimize expenses or increase savings.
5. Recommendations for future budgeting and expense management.

Here are the transactions:
%s
`

// Entry is a transaction as submitted for a report. Date may hold any
// representation accepted by core.Normalize.
type Entry struct {
	ID       string               `json:"id"`
	Date     any                  `json:"date"`
	Type     core.TransactionType `json:"type"`
	Category string               `json:"category"`
	Amount   decimal.Decimal      `json:"amount"`
}

// EntriesFrom converts already normalized transactions to entries.
func EntriesFrom(txs []core.Transaction) []Entry {
	out := make([]Entry, len(txs))
	for i, t := range txs {
		out[i] = Entry{ID: t.ID, Date: t.Date, Type: t.Type, Category: t.Category, Amount: t.Amount}
	}
	return out
}

type promptEntry struct {
	ID       string      `json:"id"`
	Date     string      `json:"date"`
	Type     string      `json:"type"`
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
}

// PromptBuilder renders entries into the report prompt.
type PromptBuilder struct {
	MaxChars int
}

// Build returns the prompt, cut to at most MaxChars runes. The cut ignores
// JSON structure, so the listing may end mid-record.
func (b PromptBuilder) Build(entries []Entry) (string, error) {
	listing := make([]promptEntry, 0, len(entries))
	for i, e := range entries {
		d, err := core.Normalize(e.Date)
		if err != nil {
			return "", fmt.Errorf("%w: entry %d (id %q): %w", core.ErrInvalidTransactionDate, i, e.ID, err)
		}
		listing = append(listing, promptEntry{
			ID:       e.ID,
			Date:     d.ISOInstant(),
			Type:     string(e.Type),
			Category: e.Category,
			Amount:   json.Number(e.Amount.String()),
		})
	}

	body, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}

	return truncateRunes(fmt.Sprintf(promptTemplate, body), b.maxChars()), nil
}

func (b PromptBuilder) maxChars() int {
	if b.MaxChars <= 0 {
		return DefaultMaxPromptChars
	}
	return b.MaxChars
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
