package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendtrack/internal/budgeting"
	apperrors "spendtrack/internal/errors"
	"spendtrack/internal/events"
	"spendtrack/internal/logger"
	"spendtrack/internal/models"
	"spendtrack/internal/pagination"
)

// reportService builds and reads report snapshots.
type reportService struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewReportService creates a new ReportServicer. A nil publisher disables
// report notifications.
func NewReportService(db *gorm.DB, publisher events.Publisher) ReportServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &reportService{db: db, publisher: publisher, now: time.Now}
}

// GenerateReport snapshots the user's expenses in [startDate, endDate],
// grouped by category. The whole end day is included.
func (s *reportService) GenerateReport(ctx context.Context, userID string, startDate, endDate time.Time) (*models.Report, error) {
	window := budgeting.DayWindow(startDate.UTC(), endDate.UTC())
	if !window.Valid() {
		return nil, apperrors.ErrInvalidDateRange
	}

	db := s.db.WithContext(ctx)

	var expenses []models.Expense
	err := db.Preload("Category", unscoped).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, window.Start, window.End).
		Order("date ASC, id ASC").
		Find(&expenses).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if len(expenses) == 0 {
		return nil, apperrors.ErrNoExpenses
	}

	groups := groupByCategory(expenses)

	report := &models.Report{
		UserID:      userID,
		StartDate:   window.Start,
		EndDate:     window.End,
		GeneratedAt: s.now().UTC(),
	}

	total := decimal.Zero
	for i, g := range groups {
		budgetID, err := findReportBudget(db, userID, g.categoryID, window)
		if err != nil {
			return nil, err
		}

		entry := models.ReportCategory{
			Position:         i,
			CategoryID:       g.categoryID,
			BudgetID:         budgetID,
			CategoryExpenses: g.sum,
		}
		for j, e := range g.expenses {
			entry.Expenses = append(entry.Expenses, models.ReportExpense{Position: j, ExpenseID: e.ID})
		}
		report.Categories = append(report.Categories, entry)
		total = total.Add(g.sum)
	}
	report.TotalExpenses = total

	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(report).Error
	}); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	saved, err := s.loadReport(db.Where("id = ?", report.ID))
	if err != nil {
		return nil, err
	}

	s.notifyGenerated(ctx, saved)
	return saved, nil
}

// GetLatestReport returns the user's most recently generated report, fully resolved.
func (s *reportService) GetLatestReport(ctx context.Context, userID string) (*models.Report, error) {
	return s.loadReport(s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("generated_at DESC, id DESC"))
}

// GetReportHistory lists report headers, most recent first.
func (s *reportService) GetReportHistory(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Report], error) {
	page.Defaults()

	db := s.db.WithContext(ctx)

	var totalItems int64
	if err := db.Model(&models.Report{}).Where("user_id = ?", userID).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var reports []models.Report
	err := db.Where("user_id = ?", userID).
		Order("generated_at DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&reports).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	result := pagination.NewPageResponse(reports, page, totalItems)
	return &result, nil
}

// loadReport fetches the first report matching query with every reference
// resolved. Deleted categories, expenses and budgets still resolve.
func (s *reportService) loadReport(query *gorm.DB) (*models.Report, error) {
	var report models.Report
	err := query.
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Categories.Category", unscoped).
		Preload("Categories.Budget", unscoped).
		Preload("Categories.Expenses", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Categories.Expenses.Expense", unscoped).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return &report, nil
}

func (s *reportService) notifyGenerated(ctx context.Context, report *models.Report) {
	event := events.New(events.ReportGenerated, report.UserID, report.ID, map[string]string{
		"total_expenses": report.TotalExpenses.String(),
		"categories":     strconv.Itoa(len(report.Categories)),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Get().Warnw("failed to publish report event",
			"error", err,
			"report_id", report.ID,
			"user_id", report.UserID,
		)
	}
}

type categoryGroup struct {
	categoryID string
	name       string
	expenses   []models.Expense
	sum        decimal.Decimal
}

// groupByCategory buckets expenses by category, keeping their input order
// within a bucket. Buckets are sorted by category name, then id.
func groupByCategory(expenses []models.Expense) []*categoryGroup {
	index := make(map[string]*categoryGroup)
	var groups []*categoryGroup

	for _, e := range expenses {
		g, ok := index[e.CategoryID]
		if !ok {
			g = &categoryGroup{categoryID: e.CategoryID, sum: decimal.Zero}
			if e.Category != nil {
				g.name = strings.ToLower(e.Category.Name)
			}
			index[e.CategoryID] = g
			groups = append(groups, g)
		}
		g.expenses = append(g.expenses, e)
		g.sum = g.sum.Add(e.Amount)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].name != groups[j].name {
			return groups[i].name < groups[j].name
		}
		return groups[i].categoryID < groups[j].categoryID
	})
	return groups
}

// findReportBudget picks the user's budget for the category, preferring one
// whose window intersects the report window, latest start first. When none
// intersects it falls back to the latest budget for the category so a report
// still shows the cap the user last set.
func findReportBudget(db *gorm.DB, userID, categoryID string, window budgeting.Window) (*string, error) {
	base := func() *gorm.DB {
		return db.Where("user_id = ? AND category_id = ?", userID, categoryID).Order("start_date DESC")
	}

	id, err := firstBudgetID(base().Where("start_date <= ? AND end_date >= ?", window.End, window.Start))
	if err != nil || id != nil {
		return id, err
	}
	return firstBudgetID(base())
}

func firstBudgetID(query *gorm.DB) (*string, error) {
	var budget models.Budget
	if err := query.First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return &budget.ID, nil
}
