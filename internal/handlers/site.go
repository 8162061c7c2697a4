package handlers

import (
	"net/http"

	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/gin-gonic/gin"
)

// ListSponsors handles GET /api/sponsors. Only enabled sponsors are shown.
func (h *Handlers) ListSponsors(c *gin.Context) {
	sponsors, err := h.catalogService.ListSponsors(c.Request.Context(), true)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sponsors)
}

// AdminListSponsors handles GET /api/admin/sponsors
func (h *Handlers) AdminListSponsors(c *gin.Context) {
	sponsors, err := h.catalogService.ListSponsors(c.Request.Context(), false)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sponsors)
}

// GetSponsor handles GET /api/admin/sponsors/:id
func (h *Handlers) GetSponsor(c *gin.Context) {
	sponsor, err := h.catalogService.GetSponsor(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sponsor)
}

// CreateSponsor handles POST /api/admin/sponsors
func (h *Handlers) CreateSponsor(c *gin.Context) {
	var in models.SponsorInput
	if !h.bindJSON(c, &in) {
		return
	}

	sponsor, err := h.catalogService.CreateSponsor(c.Request.Context(), &in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sponsor)
}

// UpdateSponsor handles PUT /api/admin/sponsors/:id
func (h *Handlers) UpdateSponsor(c *gin.Context) {
	var in models.SponsorInput
	if !h.bindJSON(c, &in) {
		return
	}

	sponsor, err := h.catalogService.UpdateSponsor(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sponsor)
}

// DeleteSponsor handles DELETE /api/admin/sponsors/:id
func (h *Handlers) DeleteSponsor(c *gin.Context) {
	if err := h.catalogService.DeleteSponsor(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSettings handles GET /api/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.catalogService.GetSettings(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var in models.SiteSettingsInput
	if !h.bindJSON(c, &in) {
		return
	}

	settings, err := h.catalogService.UpdateSettings(c.Request.Context(), &in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
