package handler

import (
	"net/http"

	"travel-expense-api/internal/middleware"
	"travel-expense-api/internal/model"
	"travel-expense-api/internal/service"
	"travel-expense-api/pkg/pagination"
	"travel-expense-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	historyService service.HistoryService
}

func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// RegisterRoutes binds the audit trail read endpoints.
func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	history := router.Group("/api")
	history.Use(middleware.RequireAuth())
	{
		history.GET("/prepayments/:id/history", h.entityHistory(model.EntityPrepayment))
		history.GET("/prepayments/:id/approvals", h.entityApprovals(model.EntityPrepayment))
		history.GET("/reports/:id/history", h.entityHistory(model.EntityReport))
		history.GET("/reports/:id/approvals", h.entityApprovals(model.EntityReport))
		history.GET("/reports/:id/expense-rejections", h.ExpenseRejections)
	}
}

func (h *HistoryHandler) entityHistory(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		params := pagination.Parse(c)

		entries, total, err := h.historyService.ListHistory(c.Request.Context(), entityType, id, params.Page, params.Limit)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, listEnvelope{
			Items: entries,
			Total: total,
			Page:  params.Page,
			Limit: params.Limit,
		}))
	}
}

func (h *HistoryHandler) entityApprovals(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}

		approvals, err := h.historyService.ListApprovals(c.Request.Context(), entityType, id)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, approvals))
	}
}

func (h *HistoryHandler) ExpenseRejections(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	rejections, err := h.historyService.ListExpenseRejections(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rejections))
}
