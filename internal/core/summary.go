package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthPoint is one bucket of the income/expense time series.
type MonthPoint struct {
	Month   string `json:"month"` // YYYY-MM
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// CategoryStatus annotates a category's spend against its budget.
type CategoryStatus struct {
	Category    string  `json:"category"`
	Spent       Money   `json:"spent"`
	Ceiling     *Money  `json:"ceiling,omitempty"`
	State       string  `json:"state"`
	PercentUsed float64 `json:"percent_used"`
}

// Summary is the dashboard view of one user's ledger.
type Summary struct {
	TotalIncome  Money            `json:"total_income"`
	TotalExpense Money            `json:"total_expense"`
	Balance      Money            `json:"balance"`
	ByCategory   []CategoryAmount `json:"by_category"`
	Budgets      []CategoryStatus `json:"budgets"`
}
