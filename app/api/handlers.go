package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/semi-weekly/app/article"
	"github.com/lysyi3m/semi-weekly/app/database"
	"github.com/lysyi3m/semi-weekly/app/report"
	"github.com/lysyi3m/semi-weekly/app/review"
)

func NewHandler(reviews ReviewServiceInterface, builder ReportBuilderInterface, articles ArticleCounter, defaultYear int) *Handler {
	return &Handler{
		reviews:     reviews,
		builder:     builder,
		generator:   report.NewGenerator(),
		articles:    articles,
		defaultYear: defaultYear,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.articles.GetArticleCount(c.Request.Context()); err == nil {
		health["articles"] = count
	}

	health["categories"] = article.CategoryLabels()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetReport(c *gin.Context) {
	year, ok := h.yearParam(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	rep, err := h.builder.Build(c.Request.Context(), year)
	if err != nil {
		slog.Error("Database error", "operation", "build_report", "year", year, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	html, err := h.generator.Run(rep)
	if err != nil {
		slog.Error("Report rendering error", "year", year, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("X-Report-Items", strconv.Itoa(rep.Total))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (h *Handler) APIListItems(c *gin.Context) {
	year, ok := h.yearParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year parameter"})
		return
	}

	items, err := h.reviews.ListItems(c.Request.Context(), year)
	if err != nil {
		slog.Error("Database error", "operation", "list_items", "year", year, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	pending := 0
	for _, item := range items {
		if item.Status == article.ReviewStatusPending {
			pending++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"year":       year,
		"items":      items,
		"total":      len(items),
		"pending":    pending,
		"categories": article.CategoryLabels(),
	})
}

func (h *Handler) APISaveItem(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	var req itemRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	edit := review.Edit{Title: req.Title, Category: req.Category, Summary: req.Summary, Notes: req.Notes}

	var err error
	switch req.Action {
	case "", actionSave:
		err = h.reviews.Save(c.Request.Context(), id, edit)
	case actionSaveApprove:
		err = h.reviews.SaveAndApprove(c.Request.Context(), id, edit)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action", "action": req.Action})
		return
	}

	if !h.handleReviewError(c, "save_item", id, err) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "action": req.Action, "status": "ok"})
}

func (h *Handler) APIApproveItem(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	if !h.handleReviewError(c, "approve_item", id, h.reviews.Approve(c.Request.Context(), id)) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": string(article.ReviewStatusReviewed)})
}

func (h *Handler) APIDeleteItem(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	if !h.handleReviewError(c, "delete_item", id, h.reviews.Delete(c.Request.Context(), id)) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}

func (h *Handler) APIListLinks(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	links, err := h.reviews.Links(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "list_links", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]linkResponse, 0, len(links))
	for _, link := range links {
		response = append(response, linkResponse{
			ID:        link.ID,
			FromID:    link.FromArticleID,
			ToID:      link.ToArticleID,
			Relation:  link.Relation,
			Note:      link.Note,
			CreatedAt: link.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "links": response, "total": len(response)})
}

func (h *Handler) APIAddLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	linkID, err := h.reviews.Link(c.Request.Context(), req.FromID, req.ToID, req.Relation, req.Note)
	switch {
	case errors.Is(err, review.ErrSelfLink):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, review.ErrArticleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	case err != nil:
		slog.Error("Database error", "operation", "add_link", "from_id", req.FromID, "to_id", req.ToID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": linkID, "from_id": req.FromID, "to_id": req.ToID})
}

func (h *Handler) APIRemoveLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	err := h.reviews.Unlink(c.Request.Context(), req.FromID, req.ToID, req.Relation)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	case err != nil:
		slog.Error("Database error", "operation", "remove_link", "from_id", req.FromID, "to_id", req.ToID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"from_id": req.FromID, "to_id": req.ToID, "deleted": true})
}

// handleReviewError writes the error response and reports whether the
// handler may continue.
func (h *Handler) handleReviewError(c *gin.Context, operation string, id int64, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, review.ErrArticleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found", "id": id})
	default:
		slog.Error("Database error", "operation", operation, "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
	return false
}

func (h *Handler) yearParam(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return h.defaultYear, true
	}

	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 || year > 9999 {
		return 0, false
	}
	return year, true
}

func articleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article id"})
		return 0, false
	}
	return id, true
}
