package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendtrack/internal/budgeting"
	apperrors "spendtrack/internal/errors"
	"spendtrack/internal/models"
)

// totalsService aggregates spending.
type totalsService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTotalsService creates a new TotalsServicer.
func NewTotalsService(db *gorm.DB) TotalsServicer {
	return &totalsService{db: db, now: time.Now}
}

// GetSpending sums the user's expenses in the window, overall and per
// category. Categories without expenses are left out; the breakdown is
// sorted by category name.
func (s *totalsService) GetSpending(ctx context.Context, userID string, start, end *time.Time) (*SpendingTotals, error) {
	window := budgeting.MonthWindow(s.now().UTC())
	if start != nil {
		window.Start = budgeting.StartOfDay(start.UTC())
	}
	if end != nil {
		window.End = budgeting.EndOfDay(end.UTC())
	}
	if !window.Valid() {
		return nil, apperrors.ErrInvalidDateRange
	}

	var rows []CategoryTotal
	err := s.db.WithContext(ctx).
		Model(&models.Expense{}).
		Select("categories.name AS category, COALESCE(SUM(expenses.amount), 0) AS total_amount").
		Joins("JOIN categories ON categories.id = expenses.category_id").
		Where("expenses.user_id = ?", userID).
		Where("expenses.date >= ? AND expenses.date <= ?", window.Start, window.End).
		Group("categories.id, categories.name").
		Order("LOWER(categories.name) ASC, categories.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	total := decimal.Zero
	for i := range rows {
		rows[i].TotalAmount = rows[i].TotalAmount.Round(2)
		total = total.Add(rows[i].TotalAmount)
	}
	if rows == nil {
		rows = []CategoryTotal{}
	}

	return &SpendingTotals{
		StartDate:          window.Start,
		EndDate:            window.End,
		TotalSpending:      total,
		SpendingByCategory: rows,
	}, nil
}
