package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

type (
	TransactionType string

	// Transaction is the canonical entity handed to callers. Date has
	// already gone through Normalize.
	Transaction struct {
		ID       string          `json:"id"`
		Date     Date            `json:"date"`
		Type     TransactionType `json:"type"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
	}

	// TransactionInput is a transaction before the store assigns an ID.
	// Date may hold any representation accepted by Normalize.
	TransactionInput struct {
		Date     any
		Type     TransactionType
		Category string
		Amount   decimal.Decimal
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrEmptyCategory   = errors.New("empty category")
	ErrCategoryTooLong = errors.New("category too long (max 100 characters)")
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case Expense, Income:
		return true
	default:
		return false
	}
}

// ParseTransactionType accepts the lowercase wire form of a type.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// Validate checks the input the way the entry form does. The store layer
// does not repeat these checks.
func (in TransactionInput) Validate() error {
	if _, err := Normalize(in.Date); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return ErrEmptyCategory
	}
	if len(category) > 100 {
		return ErrCategoryTooLong
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
