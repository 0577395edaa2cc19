package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spending record.
type Expense struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index:idx_expenses_user_date" json:"user_id"`
	CategoryID  string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description *string         `json:"description"`
	Date        time.Time       `gorm:"not null;index:idx_expenses_user_date" json:"date"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
