// internal/handlers/category.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/teambind/support-server/internal/i18n"
	"github.com/teambind/support-server/internal/services"
	"github.com/teambind/support-server/internal/utils"
)

type CategoryHandler struct {
	cache services.CategoryCache
}

func NewCategoryHandler(cache services.CategoryCache) *CategoryHandler {
	return &CategoryHandler{cache: cache}
}

type CategoryCacheStatus struct {
	Initialized bool   `json:"initialized"`
	Size        int    `json:"size"`
	Message     string `json:"message,omitempty"`
}

// POST /admin/categories/reload
func (h *CategoryHandler) Reload(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, _ := utils.GetUserIDFromContext(c)

	if err := h.cache.Reload(c.Request.Context()); err != nil {
		logrus.WithField("admin_id", adminID).WithError(err).Error("Category cache reload failed")
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "CACHE_RELOAD_FAILED",
			i18n.T(lang, i18n.KeyCacheReloadFailed), nil)
		return
	}

	logrus.WithFields(logrus.Fields{
		"admin_id": adminID,
		"size":     h.cache.Size(),
	}).Info("Category cache reloaded")

	utils.SuccessResponse(c, CategoryCacheStatus{
		Initialized: h.cache.Initialized(),
		Size:        h.cache.Size(),
		Message:     i18n.T(lang, i18n.KeyCacheReloaded),
	})
}

// GET /admin/categories/status
func (h *CategoryHandler) Status(c *gin.Context) {
	utils.SuccessResponse(c, CategoryCacheStatus{
		Initialized: h.cache.Initialized(),
		Size:        h.cache.Size(),
	})
}
