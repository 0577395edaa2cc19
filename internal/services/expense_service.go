package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spendtrack/internal/budgeting"
	apperrors "spendtrack/internal/errors"
	"spendtrack/internal/models"
	"spendtrack/internal/pagination"
)

// expenseService handles expense-related business logic.
type expenseService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB) ExpenseServicer {
	return &expenseService{db: db, now: time.Now}
}

// CreateExpense records an expense against a category the user can see.
// A nil date means now.
func (s *expenseService) CreateExpense(
	ctx context.Context,
	userID, categoryID string,
	amount decimal.Decimal,
	date *time.Time,
	description *string,
) (*models.Expense, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	db := s.db.WithContext(ctx)

	category, err := findVisibleCategory(db, userID, categoryID)
	if err != nil {
		return nil, err
	}

	when := s.now().UTC()
	if date != nil {
		when = date.UTC()
	}

	expense := &models.Expense{
		UserID:      userID,
		CategoryID:  category.ID,
		Amount:      amount,
		Description: description,
		Date:        when,
	}
	if err := db.Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	expense.Category = category
	return expense, nil
}

// GetUserExpenses lists the user's expenses ordered by category name, newest first within a category.
func (s *expenseService) GetUserExpenses(
	ctx context.Context,
	userID string,
	page pagination.PageRequest,
	filter ExpenseFilter,
) (*pagination.PageResponse[models.Expense], error) {
	page.Defaults()

	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Expense{}).Where("expenses.user_id = ?", userID)
		if filter.StartDate != nil {
			q = q.Where("expenses.date >= ?", budgeting.StartOfDay(filter.StartDate.UTC()))
		}
		if filter.EndDate != nil {
			q = q.Where("expenses.date <= ?", budgeting.EndOfDay(filter.EndDate.UTC()))
		}
		if filter.CategoryID != nil {
			q = q.Where("expenses.category_id = ?", *filter.CategoryID)
		}
		return q
	}

	var totalItems int64
	if err := scoped().Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var expenses []models.Expense
	err := scoped().
		Select("expenses.*").
		Joins("JOIN categories ON categories.id = expenses.category_id").
		Preload("Category", unscoped).
		Order("LOWER(categories.name) ASC, expenses.date DESC, expenses.id ASC").
		Scopes(pagination.Paginate(page)).
		Find(&expenses).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	result := pagination.NewPageResponse(expenses, page, totalItems)
	return &result, nil
}

// GetExpenseByID returns an expense the user owns.
func (s *expenseService) GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	return findOwnedExpense(s.db.WithContext(ctx), userID, expenseID)
}

// UpdateExpense applies a partial edit to an expense the user owns.
func (s *expenseService) UpdateExpense(ctx context.Context, userID, expenseID string, update ExpenseUpdate) (*models.Expense, error) {
	db := s.db.WithContext(ctx)

	expense, err := findOwnedExpense(db, userID, expenseID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.CategoryID != nil && *update.CategoryID != expense.CategoryID {
		category, err := findVisibleCategory(db, userID, *update.CategoryID)
		if err != nil {
			return nil, err
		}
		updates["category_id"] = category.ID
		expense.Category = category
	}
	if update.Amount != nil {
		if !update.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *update.Amount
	}
	if update.Date != nil {
		updates["date"] = update.Date.UTC()
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}

	if len(updates) > 0 {
		if err := db.Model(expense).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, err)
		}
	}

	return expense, nil
}

// DeleteExpense soft-deletes an expense the user owns.
func (s *expenseService) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	db := s.db.WithContext(ctx)

	expense, err := findOwnedExpense(db, userID, expenseID)
	if err != nil {
		return err
	}

	if err := db.Delete(expense).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

// findOwnedExpense checks existence first, then ownership.
func findOwnedExpense(db *gorm.DB, userID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	if err := db.Preload("Category", unscoped).Where("id = ?", expenseID).First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if expense.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return &expense, nil
}

// unscoped lets preloads resolve soft-deleted rows.
func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
