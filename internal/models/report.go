package models

import (
	"time"

	"spendtrack/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Report is an immutable snapshot of a user's spending over a date window.
// No Base embed, no soft deletes: reports are only ever created and listed.
type Report struct {
	ID            string           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string           `gorm:"type:uuid;not null;index:idx_reports_user_generated" json:"user_id"`
	StartDate     time.Time        `gorm:"not null" json:"start_date"`
	EndDate       time.Time        `gorm:"not null" json:"end_date"`
	TotalExpenses decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"total_expenses"`
	GeneratedAt   time.Time        `gorm:"not null;index:idx_reports_user_generated" json:"generated_at"`
	Categories    []ReportCategory `gorm:"foreignKey:ReportID" json:"categories,omitempty"`
}

// ReportCategory is one per-category group inside a report.
type ReportCategory struct {
	ID               string          `gorm:"type:uuid;primaryKey" json:"-"`
	ReportID         string          `gorm:"type:uuid;not null;index" json:"-"`
	Position         int             `gorm:"not null" json:"-"`
	CategoryID       string          `gorm:"type:uuid;not null" json:"category_id"`
	BudgetID         *string         `gorm:"type:uuid" json:"budget_id"`
	CategoryExpenses decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"category_expenses"`
	Expenses         []ReportExpense `gorm:"foreignKey:ReportCategoryID" json:"expenses"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Budget   *Budget   `gorm:"foreignKey:BudgetID" json:"budget"`
}

// ReportExpense references one expense captured by a report group.
type ReportExpense struct {
	ID               string `gorm:"type:uuid;primaryKey" json:"-"`
	ReportCategoryID string `gorm:"type:uuid;not null;index" json:"-"`
	Position         int    `gorm:"not null" json:"-"`
	ExpenseID        string `gorm:"type:uuid;not null" json:"expense_id"`

	Expense *Expense `gorm:"foreignKey:ExpenseID" json:"expense,omitempty"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook generates a UUIDv7 for new records
func (rc *ReportCategory) BeforeCreate(tx *gorm.DB) error {
	if rc.ID == "" {
		rc.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook generates a UUIDv7 for new records
func (re *ReportExpense) BeforeCreate(tx *gorm.DB) error {
	if re.ID == "" {
		re.ID = uuid.New()
	}
	return nil
}
