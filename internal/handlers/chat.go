package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"livechat-service/internal/middleware"
	"livechat-service/internal/models"
	"livechat-service/internal/repositories"
	"livechat-service/internal/telemetry"
)

const anonymousVisitor = "Anonymous"

// RequestService is the request lifecycle the chat endpoints drive.
type RequestService interface {
	Create(ctx context.Context, in models.CreateChatRequestInput) (models.CreatedChatRequest, error)
	ListPending(ctx context.Context) ([]models.ChatRequestSummary, error)
	ListRejected(ctx context.Context) ([]models.ChatRequestSummary, error)
	Status(ctx context.Context, requestID int64, userID string) (models.RequestStatusView, error)
	Accept(ctx context.Context, requestID int64, agentID, agentName string) (models.ChatSession, error)
	Reject(ctx context.Context, requestID int64, agentID string, reason *string) error
	Cancel(ctx context.Context, requestID int64, userID string) error
}

// ChatHandler serves the visitor request flow and the agent request queue.
type ChatHandler struct {
	requests   RequestService
	categories repositories.CategoryRepository
	audit      *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(requests RequestService, categories repositories.CategoryRepository, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{requests: requests, categories: categories, audit: audit}
}

type categoryView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListCategories returns active categories.
func (h *ChatHandler) ListCategories(c *gin.Context) {
	categories, err := h.categories.ListCategories(c.Request.Context(), true)
	if err != nil {
		respondError(c, err, "failed to load categories")
		return
	}

	out := make([]categoryView, 0, len(categories))
	for _, cat := range categories {
		out = append(out, categoryView{ID: cat.ID, Name: cat.Name, Description: cat.Description})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// ListSubcategories returns the active subcategories of one category.
func (h *ChatHandler) ListSubcategories(c *gin.Context) {
	categoryID, ok := parseID(c, "category_id")
	if !ok {
		return
	}

	subcategories, err := h.categories.ListSubcategories(c.Request.Context(), &categoryID, true)
	if err != nil {
		respondError(c, err, "failed to load subcategories")
		return
	}
	if subcategories == nil {
		subcategories = []models.ChatSubcategory{}
	}
	c.JSON(http.StatusOK, subcategories)
}

// CreateRequest opens a pending chat request for an anonymous visitor.
func (h *ChatHandler) CreateRequest(c *gin.Context) {
	var in models.CreateChatRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.requests.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "failed to create chat request")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"request_id":       created.RequestID,
		"user_id":          created.UserID,
		"category_name":    created.CategoryName,
		"subcategory_name": created.SubcategoryName,
		"expires_at":       created.ExpiresAt,
		"message":          "Chat request submitted. Waiting for an available agent.",
	})
}

type cancelRequestBody struct {
	UserID    string `json:"user_id" binding:"required"`
	RequestID int64  `json:"request_id" binding:"required,gt=0"`
}

// CancelRequest lets the visitor withdraw a pending request.
func (h *ChatHandler) CancelRequest(c *gin.Context) {
	var body cancelRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.requests.Cancel(c.Request.Context(), body.RequestID, body.UserID); err != nil {
		respondError(c, err, "failed to cancel chat request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat request canceled"})
}

// RequestStatus lets the visitor poll a request they created.
func (h *ChatHandler) RequestStatus(c *gin.Context) {
	requestID, ok := parseID(c, "request_id")
	if !ok {
		return
	}
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	view, err := h.requests.Status(c.Request.Context(), requestID, userID)
	if err != nil {
		respondError(c, err, "failed to load chat request")
		return
	}
	c.JSON(http.StatusOK, view)
}

type requestView struct {
	ID              int64      `json:"id"`
	UserID          string     `json:"user_id"`
	UserName        string     `json:"user_name"`
	UserEmail       *string    `json:"user_email"`
	CategoryName    string     `json:"category_name"`
	SubcategoryName *string    `json:"subcategory_name"`
	Message         *string    `json:"message"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	AssignedTo      *string    `json:"assigned_to,omitempty"`
}

func toRequestViews(list []models.ChatRequestSummary) []requestView {
	out := make([]requestView, 0, len(list))
	for _, r := range list {
		name := anonymousVisitor
		if r.UserName != nil && *r.UserName != "" {
			name = *r.UserName
		}
		out = append(out, requestView{
			ID:              r.ID,
			UserID:          r.UserID,
			UserName:        name,
			UserEmail:       r.UserEmail,
			CategoryName:    r.CategoryName,
			SubcategoryName: r.SubcategoryName,
			Message:         r.Message,
			CreatedAt:       r.CreatedAt,
			ExpiresAt:       r.ExpiresAt,
			RejectedAt:      r.RejectedAt,
			RejectionReason: r.RejectionReason,
			AssignedTo:      r.AssignedTo,
		})
	}
	return out
}

// ListRequests returns pending, unexpired requests oldest first.
func (h *ChatHandler) ListRequests(c *gin.Context) {
	list, err := h.requests.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load chat requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": toRequestViews(list)})
}

// ListRejected returns rejected requests newest first.
func (h *ChatHandler) ListRejected(c *gin.Context) {
	list, err := h.requests.ListRejected(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load rejected requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": toRequestViews(list)})
}

// AcceptRequest assigns a pending request to the calling agent and opens its session.
func (h *ChatHandler) AcceptRequest(c *gin.Context) {
	requestID, ok := parseID(c, "id")
	if !ok {
		return
	}
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	session, err := h.requests.Accept(c.Request.Context(), requestID, principal.ID, principal.DisplayName())
	if err != nil {
		respondError(c, err, "failed to accept chat request")
		return
	}

	audit(c, h.audit, "chat.request.accept", "chat request accepted", map[string]string{
		"request_id": strconv.FormatInt(requestID, 10),
		"session_id": strconv.FormatInt(session.ID, 10),
	})
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"session_id":      session.ID,
		"user_id":         session.UserID,
		"support_user_id": session.SupportUserID,
		"message":         "Chat request accepted",
	})
}

type rejectRequestBody struct {
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

// RejectRequest declines a pending request. The body, and its reason, are optional.
func (h *ChatHandler) RejectRequest(c *gin.Context) {
	requestID, ok := parseID(c, "id")
	if !ok {
		return
	}
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body rejectRequestBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.requests.Reject(c.Request.Context(), requestID, principal.ID, body.Reason); err != nil {
		respondError(c, err, "failed to reject chat request")
		return
	}

	audit(c, h.audit, "chat.request.reject", "chat request rejected", map[string]string{
		"request_id": strconv.FormatInt(requestID, 10),
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat request rejected"})
}
