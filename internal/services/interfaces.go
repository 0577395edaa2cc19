package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spendtrack/internal/models"
	"spendtrack/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, username, password string) (*models.User, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID, name, description string) (*models.Category, error)
	GetVisibleCategories(ctx context.Context, userID string) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID string, name, description *string) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// ExpenseFilter holds optional filter parameters for listing expenses.
type ExpenseFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CategoryID *string
}

// ExpenseUpdate carries the fields of a partial expense edit. Nil means unchanged.
type ExpenseUpdate struct {
	CategoryID  *string
	Amount      *decimal.Decimal
	Date        *time.Time
	Description *string
}

// ExpenseServicer defines the contract for expense-related business logic.
type ExpenseServicer interface {
	CreateExpense(ctx context.Context, userID, categoryID string, amount decimal.Decimal, date *time.Time, description *string) (*models.Expense, error)
	GetUserExpenses(ctx context.Context, userID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error)
	GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, userID, expenseID string, update ExpenseUpdate) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) error
}

// BudgetUpdate carries the fields of a partial budget edit. Nil means unchanged.
type BudgetUpdate struct {
	CategoryID *string
	Amount     *decimal.Decimal
	StartDate  *time.Time
	EndDate    *time.Time
}

// BudgetServicer defines the contract for budget-related business logic.
// Every read and write reconciles the derived fields against the expense
// table and persists them.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID, categoryID string, amount decimal.Decimal, startDate, endDate time.Time) (*models.Budget, error)
	GetUserBudgets(ctx context.Context, userID string) ([]models.Budget, error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
}

// CategoryTotal is one row of the per-category spending breakdown.
type CategoryTotal struct {
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// SpendingTotals summarises a user's spending over a window.
type SpendingTotals struct {
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	TotalSpending      decimal.Decimal `json:"total_spending"`
	SpendingByCategory []CategoryTotal `json:"spending_by_category"`
}

// TotalsServicer defines the contract for spending aggregation.
type TotalsServicer interface {
	// GetSpending aggregates expenses in [start, end]. Nil bounds default to
	// the current calendar month.
	GetSpending(ctx context.Context, userID string, start, end *time.Time) (*SpendingTotals, error)
}

// ReportServicer defines the contract for report snapshots.
type ReportServicer interface {
	GenerateReport(ctx context.Context, userID string, startDate, endDate time.Time) (*models.Report, error)
	GetLatestReport(ctx context.Context, userID string) (*models.Report, error)
	GetReportHistory(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Report], error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
