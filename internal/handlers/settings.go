// internal/handlers/settings.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/infonomu/bni/internal/models"
	"github.com/infonomu/bni/internal/services"
	"github.com/infonomu/bni/internal/utils"
)

type SettingsHandler struct {
	settingsService *services.SettingsService
}

func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// GET /settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetSettings(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch settings")
		return
	}

	utils.SuccessResponse(c, gin.H{"settings": settings})
}

// PUT /admin/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), &req)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to update settings")
		return
	}

	utils.SuccessResponse(c, gin.H{"settings": settings})
}

// GET /categories
func (h *SettingsHandler) GetCategories(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{"categories": models.Categories})
}
