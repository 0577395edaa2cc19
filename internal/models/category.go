package models

// Availability controls who can see and use a category.
type Availability string

const (
	// AvailableForEveryone marks a global, unowned category.
	AvailableForEveryone Availability = "Everyone"
	// AvailableForUser marks a category owned by its creator.
	AvailableForUser Availability = "User"
)

// Category represents an expense category
type Category struct {
	Base
	UserID       *string      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name         string       `gorm:"not null" json:"name"`
	Description  string       `gorm:"not null" json:"description"`
	AvailableFor Availability `gorm:"not null;default:'User'" json:"available_for"`
}

// OwnedBy reports whether the category belongs to the given user.
// Global categories are owned by nobody.
func (c *Category) OwnedBy(userID string) bool {
	return c.UserID != nil && *c.UserID == userID
}

// VisibleTo reports whether the user may attach expenses or budgets to the category.
func (c *Category) VisibleTo(userID string) bool {
	return c.AvailableFor == AvailableForEveryone || c.OwnedBy(userID)
}
