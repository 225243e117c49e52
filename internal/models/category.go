package models

import "time"

// ChatCategory is a top-level taxonomy node visitors pick when asking for help.
type ChatCategory struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ChatSubcategory optionally refines a category.
type ChatSubcategory struct {
	ID          int64     `db:"id" json:"id"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CategoryInput creates a category.
type CategoryInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// SubcategoryInput creates a subcategory.
type SubcategoryInput struct {
	CategoryID  int64  `json:"category_id" binding:"required,gt=0"`
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// TaxonomyUpdate carries a partial update; nil fields are left untouched.
type TaxonomyUpdate struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// Empty reports whether the update changes nothing.
func (u TaxonomyUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.IsActive == nil
}
