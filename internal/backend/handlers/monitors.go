package handlers

import (
	"net/http"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/backend/services"
	"PulseWatch/pkg/validator"

	"github.com/gin-gonic/gin"
)

// monitorView монитор со статусом для отображения
type monitorView struct {
	*models.Monitor
	DisplayStatus models.DisplayStatus `json:"display_status"`
}

func viewOf(m *models.Monitor) monitorView {
	return monitorView{Monitor: m, DisplayStatus: m.DisplayStatus()}
}

// CreateMonitor создает новый монитор
func (h *Handlers) CreateMonitor(c *gin.Context) {
	var req services.CreateMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "URL is required"))
		return
	}

	monitor, err := h.monitorService.CreateMonitor(c.Request.Context(), h.owner(c), req)
	if err != nil {
		h.respondError(c, err, "create_failed", "url", req.URL)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse("monitor_created", gin.H{
		"monitor_id": monitor.ID,
		"monitor":    viewOf(monitor),
	}))
}

// ListMonitors мониторы владельца
func (h *Handlers) ListMonitors(c *gin.Context) {
	monitors, err := h.monitorService.ListMonitors(c.Request.Context(), h.owner(c))
	if err != nil {
		h.respondError(c, err, "list_failed")
		return
	}

	views := make([]monitorView, len(monitors))
	for i, m := range monitors {
		views[i] = viewOf(m)
	}

	c.JSON(http.StatusOK, ListResponse("monitors_list", "monitors", views, len(views), len(views)))
}

func (h *Handlers) GetMonitor(c *gin.Context) {
	monitorID := c.Param("id")

	monitor, err := h.monitorService.GetMonitor(c.Request.Context(), h.owner(c), monitorID)
	if err != nil {
		h.respondError(c, err, "get_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("monitor_found", gin.H{
		"monitor": viewOf(monitor),
	}))
}

func (h *Handlers) DeleteMonitor(c *gin.Context) {
	monitorID := c.Param("id")

	if err := h.monitorService.DeleteMonitor(c.Request.Context(), h.owner(c), monitorID); err != nil {
		h.respondError(c, err, "delete_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("monitor_deleted", gin.H{
		"monitor_id": monitorID,
	}))
}

func (h *Handlers) PauseMonitor(c *gin.Context) {
	h.setPaused(c, true)
}

func (h *Handlers) ResumeMonitor(c *gin.Context) {
	h.setPaused(c, false)
}

func (h *Handlers) setPaused(c *gin.Context, paused bool) {
	monitorID := c.Param("id")

	monitor, err := h.monitorService.SetPaused(c.Request.Context(), h.owner(c), monitorID, paused)
	if err != nil {
		h.respondError(c, err, "update_failed", "monitor_id", monitorID)
		return
	}

	message := "monitor_resumed"
	if paused {
		message = "monitor_paused"
	}
	c.JSON(http.StatusOK, SuccessResponse(message, gin.H{
		"monitor": viewOf(monitor),
	}))
}

// UpdateInterval меняет интервал проверки, допустимы только значения из набора
func (h *Handlers) UpdateInterval(c *gin.Context) {
	monitorID := c.Param("id")

	var req struct {
		IntervalMs int64 `json:"interval_ms" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "interval_ms is required"))
		return
	}

	monitor, err := h.monitorService.UpdateInterval(c.Request.Context(), h.owner(c), monitorID, req.IntervalMs)
	if err != nil {
		h.respondError(c, err, "update_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("interval_updated", gin.H{
		"monitor": viewOf(monitor),
	}))
}

// ListIntervals допустимые интервалы проверки
func (h *Handlers) ListIntervals(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse("intervals_list", gin.H{
		"intervals_ms": validator.AllowedIntervalsMs(),
	}))
}

func (h *Handlers) GetAssertions(c *gin.Context) {
	monitorID := c.Param("id")

	assertions, err := h.monitorService.GetAssertions(c.Request.Context(), h.owner(c), monitorID)
	if err != nil {
		h.respondError(c, err, "get_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("assertions_found", gin.H{
		"assertions": assertions,
	}))
}

func (h *Handlers) UpdateAssertions(c *gin.Context) {
	monitorID := c.Param("id")

	var req models.AssertionConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "Invalid assertion config"))
		return
	}

	monitor, err := h.monitorService.UpdateAssertions(c.Request.Context(), h.owner(c), monitorID, req)
	if err != nil {
		h.respondError(c, err, "update_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("assertions_updated", gin.H{
		"assertions": monitor.Assertions,
	}))
}

// GetMetrics данные для дашборда и страницы статуса
func (h *Handlers) GetMetrics(c *gin.Context) {
	monitorID := c.Param("id")

	metrics, err := h.metricsService.GetMetrics(c.Request.Context(), h.owner(c), monitorID)
	if err != nil {
		h.respondError(c, err, "metrics_failed", "monitor_id", monitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("metrics", gin.H{
		"metrics": metrics,
	}))
}
