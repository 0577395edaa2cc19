package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spendtrack/internal/budgeting"
	apperrors "spendtrack/internal/errors"
	"spendtrack/internal/events"
	"spendtrack/internal/logger"
	"spendtrack/internal/models"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewBudgetService creates a new BudgetServicer. A nil publisher disables
// overspend notifications.
func NewBudgetService(db *gorm.DB, publisher events.Publisher) BudgetServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &budgetService{db: db, publisher: publisher, now: time.Now}
}

// CreateBudget creates a budget after checking the window and overlap rules.
func (s *budgetService) CreateBudget(
	ctx context.Context,
	userID, categoryID string,
	amount decimal.Decimal,
	startDate, endDate time.Time,
) (*models.Budget, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	window := budgeting.DayWindow(startDate.UTC(), endDate.UTC())
	if !window.Valid() {
		return nil, apperrors.ErrInvalidDateRange
	}

	db := s.db.WithContext(ctx)

	category, err := findVisibleCategory(db, userID, categoryID)
	if err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: category.ID,
		Amount:     amount,
		StartDate:  window.Start,
		EndDate:    window.End,
	}

	var becameOverspent bool
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.guardOverlap(tx, userID, category.ID, window, ""); err != nil {
			return err
		}

		total, err := sumBudgetExpenses(tx, budget)
		if err != nil {
			return err
		}
		becameOverspent = budgeting.Reconcile(budget, total, s.now())

		if err := tx.Create(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	budget.Category = category
	if becameOverspent {
		s.notifyOverspent(ctx, budget)
	}
	return budget, nil
}

// GetUserBudgets returns every budget of the user, reconciled, sorted by category name.
func (s *budgetService) GetUserBudgets(ctx context.Context, userID string) ([]models.Budget, error) {
	db := s.db.WithContext(ctx)

	var budgets []models.Budget
	if err := db.Preload("Category", unscoped).Where("user_id = ?", userID).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	for i := range budgets {
		if err := s.reconcile(ctx, db, &budgets[i]); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(budgets, func(i, j int) bool {
		a, b := categoryName(budgets[i].Category), categoryName(budgets[j].Category)
		if a != b {
			return a < b
		}
		return budgets[i].StartDate.Before(budgets[j].StartDate)
	})
	return budgets, nil
}

// GetBudgetByID returns a reconciled budget the user owns.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	db := s.db.WithContext(ctx)

	budget, err := findOwnedBudget(db, userID, budgetID)
	if err != nil {
		return nil, err
	}
	if err := s.reconcile(ctx, db, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

// UpdateBudget applies a partial edit. A new start date may not be earlier
// than today, the window must stay ordered, and it must not overlap another
// budget of the same category.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error) {
	db := s.db.WithContext(ctx)

	budget, err := findOwnedBudget(db, userID, budgetID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	// Stored dates may come back in the server zone; day math runs in UTC.
	start, end := budget.StartDate.UTC(), budget.EndDate.UTC()
	if update.StartDate != nil {
		start = update.StartDate.UTC()
		if budgeting.BeforeDay(start, now.UTC()) {
			return nil, apperrors.ErrStartDateInPast
		}
	}
	if update.EndDate != nil {
		end = update.EndDate.UTC()
	}
	window := budgeting.DayWindow(start, end)
	if !window.Valid() {
		return nil, apperrors.ErrInvalidDateRange
	}

	categoryID := budget.CategoryID
	if update.CategoryID != nil && *update.CategoryID != budget.CategoryID {
		category, err := findVisibleCategory(db, userID, *update.CategoryID)
		if err != nil {
			return nil, err
		}
		categoryID = category.ID
		budget.Category = category
	}

	if update.Amount != nil {
		if !update.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		budget.Amount = *update.Amount
	}

	budget.CategoryID = categoryID
	budget.StartDate = window.Start
	budget.EndDate = window.End

	var becameOverspent bool
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.guardOverlap(tx, userID, categoryID, window, budget.ID); err != nil {
			return err
		}

		total, err := sumBudgetExpenses(tx, budget)
		if err != nil {
			return err
		}
		becameOverspent = budgeting.Reconcile(budget, total, now)

		err = tx.Model(budget).Omit(clause.Associations).Updates(map[string]interface{}{
			"category_id":    budget.CategoryID,
			"amount":         budget.Amount,
			"start_date":     budget.StartDate,
			"end_date":       budget.EndDate,
			"is_active":      budget.IsActive,
			"is_overspent":   budget.IsOverspent,
			"total_expenses": budget.TotalExpenses,
		}).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if becameOverspent {
		s.notifyOverspent(ctx, budget)
	}
	return budget, nil
}

// DeleteBudget soft-deletes a budget the user owns.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	db := s.db.WithContext(ctx)

	budget, err := findOwnedBudget(db, userID, budgetID)
	if err != nil {
		return err
	}

	if err := db.Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

func (s *budgetService) guardOverlap(db *gorm.DB, userID, categoryID string, window budgeting.Window, excludeID string) error {
	overlaps, err := hasOverlap(db, userID, categoryID, window, excludeID)
	if err != nil {
		return err
	}
	if overlaps {
		return apperrors.ErrBudgetOverlap
	}
	return nil
}

// hasOverlap reports whether another budget of the user for the category
// intersects the window. Touching endpoints count.
func hasOverlap(db *gorm.DB, userID, categoryID string, window budgeting.Window, excludeID string) (bool, error) {
	query := db.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Where("start_date <= ? AND end_date >= ?", window.End, window.Start)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return count > 0, nil
}

// reconcile recomputes the derived fields of a stored budget and persists them.
func (s *budgetService) reconcile(ctx context.Context, db *gorm.DB, budget *models.Budget) error {
	total, err := sumBudgetExpenses(db, budget)
	if err != nil {
		return err
	}

	becameOverspent := budgeting.Reconcile(budget, total, s.now())

	err = db.Model(budget).Omit(clause.Associations).Updates(map[string]interface{}{
		"is_active":      budget.IsActive,
		"is_overspent":   budget.IsOverspent,
		"total_expenses": budget.TotalExpenses,
	}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}

	if becameOverspent {
		s.notifyOverspent(ctx, budget)
	}
	return nil
}

func (s *budgetService) notifyOverspent(ctx context.Context, budget *models.Budget) {
	event := events.New(events.BudgetOverspent, budget.UserID, budget.ID, map[string]string{
		"category_id":    budget.CategoryID,
		"amount":         budget.Amount.String(),
		"total_expenses": budget.TotalExpenses.String(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Get().Warnw("failed to publish budget event",
			"error", err,
			"budget_id", budget.ID,
			"user_id", budget.UserID,
		)
	}
}

// sumBudgetExpenses totals the user's expenses in the budget's category and window.
func sumBudgetExpenses(db *gorm.DB, budget *models.Budget) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := db.Model(&models.Expense{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND category_id = ?", budget.UserID, budget.CategoryID).
		Where("date >= ? AND date <= ?", budget.StartDate, budget.EndDate).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return row.Total.Round(2), nil
}

// findOwnedBudget checks existence first, then ownership.
func findOwnedBudget(db *gorm.DB, userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := db.Preload("Category", unscoped).Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if budget.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return &budget, nil
}

func categoryName(c *models.Category) string {
	if c == nil {
		return ""
	}
	return strings.ToLower(c.Name)
}
