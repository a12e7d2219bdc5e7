package core

// Suggested categories offered by the entry form. Other values are accepted.
var (
	IncomeCategories  = []string{"Salary", "Bonus", "Investment", "Rental Income", "Other"}
	ExpenseCategories = []string{"Rent", "Food", "Travel", "Cosmetics", "Bills", "Other"}
)

// CategoriesFor returns a copy of the suggested categories for t.
func CategoriesFor(t TransactionType) []string {
	switch t {
	case Income:
		return append([]string(nil), IncomeCategories...)
	case Expense:
		return append([]string(nil), ExpenseCategories...)
	default:
		return nil
	}
}
