package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"livechat-service/internal/models"
)

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubcategoryNotFound = errors.New("subcategory not found")
	ErrDuplicateName       = errors.New("name already exists")
)

const (
	categoryColumns    = `id, name, description, is_active, created_at`
	subcategoryColumns = `id, category_id, name, description, is_active, created_at`
)

// CategoryRepository abstracts the chat taxonomy.
type CategoryRepository interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]models.ChatCategory, error)
	GetCategory(ctx context.Context, id int64) (models.ChatCategory, error)
	CreateCategory(ctx context.Context, in models.CategoryInput) (models.ChatCategory, error)
	UpdateCategory(ctx context.Context, id int64, upd models.TaxonomyUpdate) (models.ChatCategory, error)
	DeleteCategory(ctx context.Context, id int64) (soft bool, err error)

	ListSubcategories(ctx context.Context, categoryID *int64, activeOnly bool) ([]models.ChatSubcategory, error)
	GetSubcategory(ctx context.Context, id int64) (models.ChatSubcategory, error)
	CreateSubcategory(ctx context.Context, in models.SubcategoryInput) (models.ChatSubcategory, error)
	UpdateSubcategory(ctx context.Context, id int64, upd models.TaxonomyUpdate) (models.ChatSubcategory, error)
	DeleteSubcategory(ctx context.Context, id int64) (soft bool, err error)
}

// CategoryRepo is a sqlx implementation of CategoryRepository.
type CategoryRepo struct {
	db *sqlx.DB
}

// NewCategoryRepo constructs a CategoryRepo.
func NewCategoryRepo(db *sqlx.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) ListCategories(ctx context.Context, activeOnly bool) ([]models.ChatCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM chat_categories`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	list := []models.ChatCategory{}
	err := r.db.SelectContext(ctx, &list, query+` ORDER BY name ASC`)
	return list, err
}

func (r *CategoryRepo) GetCategory(ctx context.Context, id int64) (models.ChatCategory, error) {
	var cat models.ChatCategory
	err := r.db.GetContext(ctx, &cat, `SELECT `+categoryColumns+` FROM chat_categories WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatCategory{}, ErrCategoryNotFound
	}
	return cat, err
}

func (r *CategoryRepo) CreateCategory(ctx context.Context, in models.CategoryInput) (models.ChatCategory, error) {
	var cat models.ChatCategory
	err := r.db.GetContext(ctx, &cat, `INSERT INTO chat_categories (name, description) VALUES ($1, $2)
        RETURNING `+categoryColumns, in.Name, in.Description)
	if isUniqueViolation(err) {
		return models.ChatCategory{}, ErrDuplicateName
	}
	return cat, err
}

func (r *CategoryRepo) UpdateCategory(ctx context.Context, id int64, upd models.TaxonomyUpdate) (models.ChatCategory, error) {
	var cat models.ChatCategory
	err := r.db.GetContext(ctx, &cat, `UPDATE chat_categories
        SET name = COALESCE($2, name), description = COALESCE($3, description), is_active = COALESCE($4, is_active)
        WHERE id = $1
        RETURNING `+categoryColumns, id, upd.Name, upd.Description, upd.IsActive)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.ChatCategory{}, ErrCategoryNotFound
	case isUniqueViolation(err):
		return models.ChatCategory{}, ErrDuplicateName
	}
	return cat, err
}

// DeleteCategory deactivates a category that requests or subcategories still reference and removes it otherwise.
func (r *CategoryRepo) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	return r.deleteNode(ctx, "chat_categories", id, ErrCategoryNotFound,
		`SELECT (SELECT COUNT(*) FROM chat_requests WHERE category_id = $1)
            + (SELECT COUNT(*) FROM chat_subcategories WHERE category_id = $1)`)
}

func (r *CategoryRepo) ListSubcategories(ctx context.Context, categoryID *int64, activeOnly bool) ([]models.ChatSubcategory, error) {
	var (
		where []string
		args  []any
	)
	if categoryID != nil {
		args = append(args, *categoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if activeOnly {
		where = append(where, "is_active = TRUE")
	}
	query := `SELECT ` + subcategoryColumns + ` FROM chat_subcategories`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	list := []models.ChatSubcategory{}
	err := r.db.SelectContext(ctx, &list, query+` ORDER BY name ASC`, args...)
	return list, err
}

func (r *CategoryRepo) GetSubcategory(ctx context.Context, id int64) (models.ChatSubcategory, error) {
	var sub models.ChatSubcategory
	err := r.db.GetContext(ctx, &sub, `SELECT `+subcategoryColumns+` FROM chat_subcategories WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSubcategory{}, ErrSubcategoryNotFound
	}
	return sub, err
}

func (r *CategoryRepo) CreateSubcategory(ctx context.Context, in models.SubcategoryInput) (models.ChatSubcategory, error) {
	if _, err := r.GetCategory(ctx, in.CategoryID); err != nil {
		return models.ChatSubcategory{}, err
	}
	var sub models.ChatSubcategory
	err := r.db.GetContext(ctx, &sub, `INSERT INTO chat_subcategories (category_id, name, description) VALUES ($1, $2, $3)
        RETURNING `+subcategoryColumns, in.CategoryID, in.Name, in.Description)
	if isUniqueViolation(err) {
		return models.ChatSubcategory{}, ErrDuplicateName
	}
	return sub, err
}

func (r *CategoryRepo) UpdateSubcategory(ctx context.Context, id int64, upd models.TaxonomyUpdate) (models.ChatSubcategory, error) {
	var sub models.ChatSubcategory
	err := r.db.GetContext(ctx, &sub, `UPDATE chat_subcategories
        SET name = COALESCE($2, name), description = COALESCE($3, description), is_active = COALESCE($4, is_active)
        WHERE id = $1
        RETURNING `+subcategoryColumns, id, upd.Name, upd.Description, upd.IsActive)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.ChatSubcategory{}, ErrSubcategoryNotFound
	case isUniqueViolation(err):
		return models.ChatSubcategory{}, ErrDuplicateName
	}
	return sub, err
}

// DeleteSubcategory deactivates a subcategory that requests reference and removes it otherwise.
func (r *CategoryRepo) DeleteSubcategory(ctx context.Context, id int64) (bool, error) {
	return r.deleteNode(ctx, "chat_subcategories", id, ErrSubcategoryNotFound,
		`SELECT COUNT(*) FROM chat_requests WHERE subcategory_id = $1`)
}

func (r *CategoryRepo) deleteNode(ctx context.Context, table string, id int64, notFound error, refQuery string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id=$1)`, id); err != nil {
		return false, err
	}
	if !exists {
		return false, notFound
	}

	var refs int
	if err := tx.GetContext(ctx, &refs, refQuery, id); err != nil {
		return false, err
	}

	soft := refs > 0
	if soft {
		_, err = tx.ExecContext(ctx, `UPDATE `+table+` SET is_active = FALSE WHERE id=$1`, id)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	}
	if err != nil {
		return false, err
	}
	return soft, tx.Commit()
}
