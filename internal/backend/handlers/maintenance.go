package handlers

import (
	"net/http"

	"PulseWatch/internal/backend/services"

	"github.com/gin-gonic/gin"
)

// CreateMaintenance планирует окно обслуживания монитора
func (h *Handlers) CreateMaintenance(c *gin.Context) {
	monitorID := c.Param("id")

	var req services.CreateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "title, starts_at and ends_at are required"))
		return
	}

	window, err := h.maintenanceService.CreateWindow(c.Request.Context(), h.owner(c), monitorID, req)
	if err != nil {
		h.respondError(c, err, "create_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse("maintenance_created", gin.H{
		"window": window,
	}))
}

func (h *Handlers) ListMaintenance(c *gin.Context) {
	monitorID := c.Param("id")

	windows, err := h.maintenanceService.ListWindows(c.Request.Context(), h.owner(c), monitorID)
	if err != nil {
		h.respondError(c, err, "list_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, ListResponse("maintenance_list", "windows", windows, len(windows), len(windows)))
}

func (h *Handlers) CancelMaintenance(c *gin.Context) {
	windowID := c.Param("window_id")

	window, err := h.maintenanceService.CancelWindow(c.Request.Context(), h.owner(c), windowID)
	if err != nil {
		h.respondError(c, err, "cancel_failed", "window_id", windowID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("maintenance_cancelled", gin.H{
		"window": window,
	}))
}
