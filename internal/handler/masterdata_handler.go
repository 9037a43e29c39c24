package handler

import (
	"context"
	"net/http"

	"travel-expense-api/internal/middleware"
	"travel-expense-api/internal/model"
	"travel-expense-api/internal/service"
	"travel-expense-api/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MasterDataHandler struct {
	masterData service.MasterDataService
}

func NewMasterDataHandler(masterData service.MasterDataService) *MasterDataHandler {
	return &MasterDataHandler{masterData: masterData}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup. Reads
// are open to any authenticated user; writes are restricted to accounting.
func (h *MasterDataHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := router.Group("/api")
	read.Use(middleware.RequireAuth())
	{
		read.GET("/countries", h.ListCountries)
		read.GET("/currencies", h.ListCurrencies)
		read.GET("/categories", h.ListCategories)
		read.GET("/suppliers", h.ListSuppliers)
		read.GET("/taxes", h.ListTaxes)
		read.GET("/locations", h.ListLocations)
	}

	write := router.Group("/api")
	write.Use(middleware.RequireProfile(model.ProfileAccounting))
	{
		write.POST("/countries", bindCreate(h.masterData.CreateCountry))
		write.PUT("/countries/:id", bindUpdate(h.masterData.UpdateCountry))
		write.DELETE("/countries/:id", bindDelete(h.masterData.DeleteCountry))

		write.POST("/currencies", bindCreate(h.masterData.CreateCurrency))
		write.PUT("/currencies/:id", bindUpdate(h.masterData.UpdateCurrency))
		write.DELETE("/currencies/:id", bindDelete(h.masterData.DeleteCurrency))

		write.POST("/categories", bindCreate(h.masterData.CreateCategory))
		write.PUT("/categories/:id", bindUpdate(h.masterData.UpdateCategory))
		write.DELETE("/categories/:id", bindDelete(h.masterData.DeleteCategory))

		write.POST("/suppliers", bindCreate(h.masterData.CreateSupplier))
		write.PUT("/suppliers/:id", bindUpdate(h.masterData.UpdateSupplier))
		write.DELETE("/suppliers/:id", bindDelete(h.masterData.DeleteSupplier))

		write.POST("/taxes", bindCreate(h.masterData.CreateTax))
		write.PUT("/taxes/:id", bindUpdate(h.masterData.UpdateTax))
		write.DELETE("/taxes/:id", bindDelete(h.masterData.DeleteTax))

		write.POST("/locations", bindCreate(h.masterData.CreateLocation))
		write.PUT("/locations/:id", bindUpdate(h.masterData.UpdateLocation))
		write.DELETE("/locations/:id", bindDelete(h.masterData.DeleteLocation))
	}
}

// --- List endpoints ---

func (h *MasterDataHandler) ListCountries(c *gin.Context) {
	listOf(c, h.masterData.ListCountries)
}

func (h *MasterDataHandler) ListCurrencies(c *gin.Context) {
	listOf(c, h.masterData.ListCurrencies)
}

func (h *MasterDataHandler) ListCategories(c *gin.Context) {
	listOf(c, h.masterData.ListCategories)
}

func (h *MasterDataHandler) ListSuppliers(c *gin.Context) {
	listOf(c, h.masterData.ListSuppliers)
}

func (h *MasterDataHandler) ListTaxes(c *gin.Context) {
	listOf(c, h.masterData.ListTaxes)
}

func (h *MasterDataHandler) ListLocations(c *gin.Context) {
	listOf(c, h.masterData.ListLocations)
}

// --- Generic adapters ---
// Master-data CRUD is uniform; these fold the per-entity handlers into one
// binding each.

func listOf[Res any](c *gin.Context, list func(ctx context.Context) ([]Res, error)) {
	rows, err := list(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

func bindCreate[Req any, Res any](create func(ctx context.Context, req Req) (Res, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
		row, err := create(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, response.Success(http.StatusCreated, row))
	}
}

func bindUpdate[Req any, Res any](update func(ctx context.Context, id uuid.UUID, req Req) (Res, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req Req
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
		row, err := update(c.Request.Context(), id, req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, row))
	}
}

func bindDelete(del func(ctx context.Context, id uuid.UUID) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := del(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id.String()}))
	}
}
