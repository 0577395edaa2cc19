package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "spendtrack/internal/errors"
	"spendtrack/internal/models"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a category owned by the user.
func (s *categoryService) CreateCategory(ctx context.Context, userID, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	db := s.db.WithContext(ctx)
	if err := checkDuplicateCategoryName(db, userID, name, ""); err != nil {
		return nil, err
	}

	owner := userID
	category := &models.Category{
		UserID:       &owner,
		Name:         name,
		Description:  description,
		AvailableFor: models.AvailableForUser,
	}
	if err := db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	return category, nil
}

// GetVisibleCategories returns the global categories plus the user's own, by name.
func (s *categoryService) GetVisibleCategories(ctx context.Context, userID string) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.WithContext(ctx).
		Where("(available_for = ? OR user_id = ?)", models.AvailableForEveryone, userID).
		Order("LOWER(name) ASC, id ASC").
		Find(&categories).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return categories, nil
}

// GetCategoryByID returns a category the user can see.
func (s *categoryService) GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	return findVisibleCategory(s.db.WithContext(ctx), userID, categoryID)
}

// UpdateCategory changes the name and/or description of a category the user owns.
func (s *categoryService) UpdateCategory(ctx context.Context, userID, categoryID string, name, description *string) (*models.Category, error) {
	db := s.db.WithContext(ctx)

	category, err := findOwnedCategory(db, userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name cannot be empty")
		}
		if trimmed != category.Name {
			if err := checkDuplicateCategoryName(db, userID, trimmed, category.ID); err != nil {
				return nil, err
			}
		}
		updates["name"] = trimmed
	}
	if description != nil {
		updates["description"] = *description
	}

	if len(updates) > 0 {
		if err := db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, err)
		}
	}

	return category, nil
}

// DeleteCategory soft-deletes a category the user owns. Expenses, budgets and
// reports that reference it keep resolving it.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	db := s.db.WithContext(ctx)

	category, err := findOwnedCategory(db, userID, categoryID)
	if err != nil {
		return err
	}

	if err := db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

func findCategory(db *gorm.DB, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return &category, nil
}

// findVisibleCategory checks existence first, then visibility.
func findVisibleCategory(db *gorm.DB, userID, categoryID string) (*models.Category, error) {
	category, err := findCategory(db, categoryID)
	if err != nil {
		return nil, err
	}
	if !category.VisibleTo(userID) {
		return nil, apperrors.ErrForbidden
	}
	return category, nil
}

// findOwnedCategory checks existence first, then ownership. Global
// categories are owned by nobody and so can't be modified through the API.
func findOwnedCategory(db *gorm.DB, userID, categoryID string) (*models.Category, error) {
	category, err := findCategory(db, categoryID)
	if err != nil {
		return nil, err
	}
	if !category.OwnedBy(userID) {
		return nil, apperrors.ErrForbidden
	}
	return category, nil
}

func checkDuplicateCategoryName(db *gorm.DB, userID, name, excludeID string) error {
	query := db.Model(&models.Category{}).Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(name))
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if count > 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category with this name already exists")
	}
	return nil
}
