package handlers

import (
	"net/http"

	"PulseWatch/internal/backend/services"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) GetSLOConfig(c *gin.Context) {
	monitorID := c.Param("id")

	cfg, err := h.sloService.GetConfig(c.Request.Context(), h.owner(c), monitorID)
	if err != nil {
		h.respondError(c, err, "get_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("slo_config", gin.H{
		"slo": cfg,
	}))
}

// UpdateSLOConfig частичное обновление: включение, цель, окно
func (h *Handlers) UpdateSLOConfig(c *gin.Context) {
	monitorID := c.Param("id")

	var req services.UpdateSLORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "Invalid SLO config"))
		return
	}

	cfg, err := h.sloService.UpdateConfig(c.Request.Context(), h.owner(c), monitorID, req)
	if err != nil {
		h.respondError(c, err, "update_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("slo_updated", gin.H{
		"slo": cfg,
	}))
}

func (h *Handlers) GetSLOSummary(c *gin.Context) {
	monitorID := c.Param("id")

	summary, err := h.sloService.Summary(c.Request.Context(), h.owner(c), monitorID)
	if err != nil {
		h.respondError(c, err, "summary_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("slo_summary", gin.H{
		"summary": summary,
	}))
}
