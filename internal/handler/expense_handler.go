package handler

import (
	"io"
	"net/http"

	"travel-expense-api/internal/middleware"
	"travel-expense-api/internal/service"
	"travel-expense-api/internal/storage"
	"travel-expense-api/pkg/response"

	"github.com/gin-gonic/gin"
)

// maxReceiptSize caps uploaded receipt files at 10 MiB.
const maxReceiptSize = 10 << 20

type ExpenseHandler struct {
	expenseService service.ExpenseService
	fileStorage    storage.FileStorage
}

func NewExpenseHandler(expenseService service.ExpenseService, fileStorage storage.FileStorage) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, fileStorage: fileStorage}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	expenses := router.Group("/api/expenses")
	expenses.Use(middleware.RequireAuth())
	{
		expenses.POST("", h.Create)
		expenses.GET("/:id", h.Get)
		expenses.PUT("/:id", h.Update)
		expenses.DELETE("/:id", h.Delete)
		expenses.POST("/:id/approve", h.Approve)
		expenses.POST("/:id/reject", h.Reject)
		expenses.POST("/receipts", h.UploadReceipt)
	}

	reports := router.Group("/api/reports")
	reports.Use(middleware.RequireAuth())
	{
		reports.GET("/:id/expenses", h.ListByReport)
	}
}

// ListByReport returns every expense line on a report
func (h *ExpenseHandler) ListByReport(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	expenses, err := h.expenseService.ListByReport(c.Request.Context(), actorID, id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expenses))
}

func (h *ExpenseHandler) Create(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), actorID, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

func (h *ExpenseHandler) Get(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.Get(c.Request.Context(), actorID, id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

func (h *ExpenseHandler) Update(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	expense, err := h.expenseService.Update(c.Request.Context(), actorID, id, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.expenseService.Delete(c.Request.Context(), actorID, id); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id.String()}))
}

// Approve accepts one expense line during accounting review
func (h *ExpenseHandler) Approve(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.expenseService.ApproveExpense(c.Request.Context(), actorID, id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject rejects one expense line during accounting review
func (h *ExpenseHandler) Reject(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.expenseService.RejectExpense(c.Request.Context(), actorID, id, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UploadReceipt stores a receipt image and returns the path to reference from
// an expense's receipt_file field.
func (h *ExpenseHandler) UploadReceipt(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing file upload"))
		return
	}
	if fileHeader.Size > maxReceiptSize {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "File too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Unable to read upload"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Unable to read upload"))
		return
	}

	path, err := h.fileStorage.Save("receipts", fileHeader.Filename, content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{"path": path}))
}
