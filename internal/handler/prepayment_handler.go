package handler

import (
	"net/http"

	"travel-expense-api/internal/middleware"
	"travel-expense-api/internal/service"
	"travel-expense-api/pkg/pagination"
	"travel-expense-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type PrepaymentHandler struct {
	prepaymentService service.PrepaymentService
}

func NewPrepaymentHandler(prepaymentService service.PrepaymentService) *PrepaymentHandler {
	return &PrepaymentHandler{prepaymentService: prepaymentService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *PrepaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	prepayments := router.Group("/api/prepayments")
	prepayments.Use(middleware.RequireAuth())
	{
		prepayments.POST("", h.Create)
		prepayments.GET("", h.List)
		prepayments.GET("/:id", h.Get)
		prepayments.POST("/:id/submit", h.Submit)
		prepayments.POST("/:id/approve", h.Approve)
		prepayments.POST("/:id/reject", h.Reject)
	}
}

// Create registers a new travel prepayment request
// @Summary      Create prepayment
// @Description  Creates a prepayment request in PENDING status owned by the caller
// @Tags         prepayments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePrepaymentRequest  true  "Prepayment payload"
// @Success      201      {object}  response.Response{data=service.PrepaymentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/prepayments [post]
func (h *PrepaymentHandler) Create(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.CreatePrepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	prepayment, err := h.prepaymentService.Create(c.Request.Context(), actorID, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, prepayment))
}

// List returns the caller's prepayments (all of them for approver profiles)
// @Summary      List prepayments
// @Tags         prepayments
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response
// @Router       /api/prepayments [get]
func (h *PrepaymentHandler) List(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	filter := service.PrepaymentFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	prepayments, total, err := h.prepaymentService.List(c.Request.Context(), actorID, filter)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, listEnvelope{
		Items: prepayments,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

// Get returns one prepayment by id
// @Summary      Get prepayment
// @Tags         prepayments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Prepayment ID"
// @Success      200  {object}  response.Response{data=service.PrepaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/prepayments/{id} [get]
func (h *PrepaymentHandler) Get(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	prepayment, err := h.prepaymentService.Get(c.Request.Context(), actorID, id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, prepayment))
}

// Submit sends a PENDING or REJECTED prepayment to supervisor review
// @Summary      Submit prepayment
// @Tags         prepayments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Prepayment ID"
// @Success      200  {object}  response.Response{data=service.TransitionResult}
// @Failure      409  {object}  response.Response
// @Router       /api/prepayments/{id}/submit [post]
func (h *PrepaymentHandler) Submit(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.prepaymentService.Submit(c.Request.Context(), actorID, id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Approve advances the prepayment through its current review stage
// @Summary      Approve prepayment
// @Description  The acting stage is derived from the prepayment's current status
// @Tags         prepayments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true   "Prepayment ID"
// @Param        payload  body      service.ApprovePrepaymentRequest  false  "Approval payload"
// @Success      200      {object}  response.Response{data=service.TransitionResult}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/prepayments/{id}/approve [post]
func (h *PrepaymentHandler) Approve(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.ApprovePrepaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	result, err := h.prepaymentService.Approve(c.Request.Context(), actorID, id, req)
	if err != nil {
		// An auto-revert still reports the resulting status alongside the error.
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

// Reject rejects the prepayment at its current review stage
// @Summary      Reject prepayment
// @Tags         prepayments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Prepayment ID"
// @Param        payload  body      service.RejectRequest  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.TransitionResult}
// @Failure      400      {object}  response.Response
// @Router       /api/prepayments/{id}/reject [post]
func (h *PrepaymentHandler) Reject(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.prepaymentService.Reject(c.Request.Context(), actorID, id, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
