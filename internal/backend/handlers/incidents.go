package handlers

import (
	"net/http"
	"strconv"

	"PulseWatch/internal/backend/services"

	"github.com/gin-gonic/gin"
)

// ListIncidents инциденты владельца. Параметры: monitor_id, sort, order,
// lookback_days, limit, include_hidden
func (h *Handlers) ListIncidents(c *gin.Context) {
	req := services.ListIncidentsRequest{
		MonitorID: c.Query("monitor_id"),
		Sort:      c.Query("sort"),
		Order:     c.Query("order"),
	}
	// маршрут /monitors/:id/incidents
	if id := c.Param("id"); id != "" {
		req.MonitorID = id
	}

	var ok bool
	if req.LookbackDays, ok = queryInt(c, "lookback_days", "invalid_lookback"); !ok {
		return
	}
	if req.Limit, ok = queryInt(c, "limit", "invalid_limit"); !ok {
		return
	}
	if raw := c.Query("include_hidden"); raw != "" {
		includeHidden, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "include_hidden must be a boolean"))
			return
		}
		req.IncludeHidden = includeHidden
	}

	listing, err := h.incidentService.ListIncidents(c.Request.Context(), h.owner(c), req)
	if err != nil {
		h.respondError(c, err, "list_failed", "monitor_id", req.MonitorID)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("incidents_list", gin.H{
		"incidents": listing.Incidents,
		"display":   listing.Display,
		"count":     len(listing.Incidents),
		"total":     listing.Total,
		"hidden":    listing.Hidden,
	}))
}

// HideIncident скрывает диапазон инцидентов, причина обязательна
func (h *Handlers) HideIncident(c *gin.Context) {
	var req services.HideIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "monitor_id and started_at are required"))
		return
	}

	hidden, err := h.incidentService.HideIncident(c.Request.Context(), h.owner(c), req)
	if err != nil {
		h.respondError(c, err, "hide_failed", "monitor_id", req.MonitorID)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse("incident_hidden", gin.H{
		"hidden": hidden,
	}))
}

// queryInt читает необязательный целый параметр, 0 - значение по умолчанию
func queryInt(c *gin.Context, name, code string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(code, name+" must be an integer"))
		return 0, false
	}
	return v, true
}
