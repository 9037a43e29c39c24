package handler

import (
	"net/http"

	"travel-expense-api/internal/middleware"
	"travel-expense-api/internal/service"
	"travel-expense-api/pkg/pagination"
	"travel-expense-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	reports.Use(middleware.RequireAuth())
	{
		reports.POST("", h.CreateReimbursement)
		reports.GET("", h.List)
		reports.GET("/:id", h.Get)
		reports.POST("/:id/submit", h.Submit)
		reports.POST("/:id/approve", h.Approve)
		reports.POST("/:id/reject", h.Reject)
		reports.POST("/:id/fund-return", h.SubmitFundReturn)
	}
}

// CreateReimbursement creates a standalone expense report with no prepayment.
// Prepayment-linked reports are created automatically when treasury approves
// the prepayment.
func (h *ReportHandler) CreateReimbursement(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.CreateReimbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	report, err := h.reportService.CreateReimbursement(c.Request.Context(), actorID, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, report))
}

func (h *ReportHandler) List(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	filter := service.ReportFilter{
		Status:     c.Query("status"),
		ReportType: c.Query("report_type"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	reports, total, err := h.reportService.List(c.Request.Context(), actorID, filter)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, listEnvelope{
		Items: reports,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

func (h *ReportHandler) Get(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	report, err := h.reportService.Get(c.Request.Context(), actorID, id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

func (h *ReportHandler) Submit(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.reportService.Submit(c.Request.Context(), actorID, id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Approve advances the report through its current review stage. After
// accounting approval the response carries the settlement branch the budget
// comparison selected.
func (h *ReportHandler) Approve(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.reportService.Approve(c.Request.Context(), actorID, id)
	if err != nil {
		if service.KindOf(err) == service.KindPreconditionFailed && result.NewStatus != "" {
			status := statusFor(err)
			c.JSON(status, response.Response{
				Status:     "error",
				StatusCode: status,
				Data:       result,
				Error:      err.Error(),
			})
			return
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

func (h *ReportHandler) Reject(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.RejectReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.reportService.Reject(c.Request.Context(), actorID, id, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// SubmitFundReturn records the employee's return documents while the report
// waits in FUNDS_RETURN_PENDING.
func (h *ReportHandler) SubmitFundReturn(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.FundReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.reportService.SubmitFundReturn(c.Request.Context(), actorID, id, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
