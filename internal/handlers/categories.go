package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"livechat-service/internal/apperrors"
	"livechat-service/internal/models"
	"livechat-service/internal/repositories"
	"livechat-service/internal/telemetry"
)

// CategoryAdminHandler manages the category and subcategory taxonomy.
type CategoryAdminHandler struct {
	categories repositories.CategoryRepository
	audit      *telemetry.AuditEmitter
}

func NewCategoryAdminHandler(categories repositories.CategoryRepository, audit *telemetry.AuditEmitter) *CategoryAdminHandler {
	return &CategoryAdminHandler{categories: categories, audit: audit}
}

// taxonomyError translates repository errors into the shared error classes.
func taxonomyError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrCategoryNotFound), errors.Is(err, repositories.ErrSubcategoryNotFound):
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, err.Error())
	case errors.Is(err, repositories.ErrDuplicateName):
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	default:
		return err
	}
}

// ListCategories returns every category, inactive ones included.
func (h *CategoryAdminHandler) ListCategories(c *gin.Context) {
	list, err := h.categories.ListCategories(c.Request.Context(), false)
	if err != nil {
		respondError(c, err, "failed to load categories")
		return
	}
	if list == nil {
		list = []models.ChatCategory{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

func (h *CategoryAdminHandler) CreateCategory(c *gin.Context) {
	var in models.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.categories.CreateCategory(c.Request.Context(), in)
	if err != nil {
		respondError(c, taxonomyError(err), "failed to create category")
		return
	}
	audit(c, h.audit, "chat.category.create", "category created", map[string]string{
		"category_id": strconv.FormatInt(created.ID, 10),
		"name":        created.Name,
	})
	c.JSON(http.StatusCreated, created)
}

func (h *CategoryAdminHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	upd, ok := bindUpdate(c)
	if !ok {
		return
	}
	updated, err := h.categories.UpdateCategory(c.Request.Context(), id, upd)
	if err != nil {
		respondError(c, taxonomyError(err), "failed to update category")
		return
	}
	audit(c, h.audit, "chat.category.update", "category updated", map[string]string{
		"category_id": strconv.FormatInt(id, 10),
	})
	c.JSON(http.StatusOK, updated)
}

// DeleteCategory deactivates a referenced category and removes an unreferenced one.
func (h *CategoryAdminHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	soft, err := h.categories.DeleteCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, taxonomyError(err), "failed to delete category")
		return
	}
	audit(c, h.audit, "chat.category.delete", "category deleted", map[string]string{
		"category_id": strconv.FormatInt(id, 10),
		"soft":        strconv.FormatBool(soft),
	})
	c.JSON(http.StatusOK, deletionResponse(soft))
}

// ListSubcategories returns subcategories, optionally of one ?category_id.
func (h *CategoryAdminHandler) ListSubcategories(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		categoryID = &id
	}
	list, err := h.categories.ListSubcategories(c.Request.Context(), categoryID, false)
	if err != nil {
		respondError(c, err, "failed to load subcategories")
		return
	}
	if list == nil {
		list = []models.ChatSubcategory{}
	}
	c.JSON(http.StatusOK, gin.H{"subcategories": list})
}

func (h *CategoryAdminHandler) CreateSubcategory(c *gin.Context) {
	var in models.SubcategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.categories.CreateSubcategory(c.Request.Context(), in)
	if errors.Is(err, repositories.ErrCategoryNotFound) {
		respondError(c, fmt.Errorf("%w: unknown category %d", apperrors.ErrValidation, in.CategoryID), "")
		return
	}
	if err != nil {
		respondError(c, taxonomyError(err), "failed to create subcategory")
		return
	}
	audit(c, h.audit, "chat.subcategory.create", "subcategory created", map[string]string{
		"subcategory_id": strconv.FormatInt(created.ID, 10),
		"category_id":    strconv.FormatInt(created.CategoryID, 10),
	})
	c.JSON(http.StatusCreated, created)
}

func (h *CategoryAdminHandler) UpdateSubcategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	upd, ok := bindUpdate(c)
	if !ok {
		return
	}
	updated, err := h.categories.UpdateSubcategory(c.Request.Context(), id, upd)
	if err != nil {
		respondError(c, taxonomyError(err), "failed to update subcategory")
		return
	}
	audit(c, h.audit, "chat.subcategory.update", "subcategory updated", map[string]string{
		"subcategory_id": strconv.FormatInt(id, 10),
	})
	c.JSON(http.StatusOK, updated)
}

// DeleteSubcategory deactivates a referenced subcategory and removes an unreferenced one.
func (h *CategoryAdminHandler) DeleteSubcategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	soft, err := h.categories.DeleteSubcategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, taxonomyError(err), "failed to delete subcategory")
		return
	}
	audit(c, h.audit, "chat.subcategory.delete", "subcategory deleted", map[string]string{
		"subcategory_id": strconv.FormatInt(id, 10),
		"soft":           strconv.FormatBool(soft),
	})
	c.JSON(http.StatusOK, deletionResponse(soft))
}

func bindUpdate(c *gin.Context) (models.TaxonomyUpdate, bool) {
	var upd models.TaxonomyUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return upd, false
	}
	if upd.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return upd, false
	}
	return upd, true
}

func deletionResponse(soft bool) gin.H {
	if soft {
		return gin.H{"success": true, "deactivated": true, "message": "Still in use; deactivated instead of deleted"}
	}
	return gin.H{"success": true, "deactivated": false, "message": "Deleted"}
}
