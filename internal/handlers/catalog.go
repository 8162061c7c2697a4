package handlers

import (
	"net/http"
	"strconv"

	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/gin-gonic/gin"
)

// ListCategories handles GET /api/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategory handles GET /api/categories/:id
func (h *Handlers) GetCategory(c *gin.Context) {
	category, err := h.catalogService.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// CreateCategory handles POST /api/categories
func (h *Handlers) CreateCategory(c *gin.Context) {
	var in models.CategoryInput
	if !h.bindJSON(c, &in) {
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), &in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/categories/:id
func (h *Handlers) UpdateCategory(c *gin.Context) {
	var in models.CategoryInput
	if !h.bindJSON(c, &in) {
		return
	}

	category, err := h.catalogService.UpdateCategory(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/categories/:id
func (h *Handlers) DeleteCategory(c *gin.Context) {
	if err := h.catalogService.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListProducts handles GET /api/products
func (h *Handlers) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// FeaturedProducts handles GET /api/products/featured
func (h *Handlers) FeaturedProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	products, err := h.catalogService.FeaturedProducts(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// ProductsByCategory handles GET /api/products/category/:categoryId
func (h *Handlers) ProductsByCategory(c *gin.Context) {
	products, err := h.catalogService.ProductsByCategory(c.Request.Context(), c.Param("categoryId"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// ProductCounts handles GET /api/admin/products/counts
func (h *Handlers) ProductCounts(c *gin.Context) {
	counts, err := h.catalogService.ProductCounts(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// GetProduct handles GET /api/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct handles POST /api/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	var in models.ProductInput
	if !h.bindJSON(c, &in) {
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products/:id
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var in models.ProductInput
	if !h.bindJSON(c, &in) {
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	if err := h.catalogService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
