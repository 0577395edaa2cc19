package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget caps spending for one category over an inclusive date window.
// IsActive, IsOverspent and TotalExpenses are derived from the expenses in
// the window; they are persisted but recomputed on every read and write.
type Budget struct {
	Base
	UserID        string          `gorm:"type:uuid;not null;index:idx_budgets_user_category" json:"user_id"`
	CategoryID    string          `gorm:"type:uuid;not null;index:idx_budgets_user_category" json:"category_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	StartDate     time.Time       `gorm:"not null" json:"start_date"`
	EndDate       time.Time       `gorm:"not null" json:"end_date"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	IsOverspent   bool            `gorm:"not null" json:"is_overspent"`
	TotalExpenses decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_expenses"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
