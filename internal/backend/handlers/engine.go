package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetTelemetry снимок телеметрии планировщика
func (h *Handlers) GetTelemetry(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse("telemetry", gin.H{
		"telemetry": h.engineService.Telemetry(),
	}))
}

func (h *Handlers) GetFailsafe(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse("failsafe", gin.H{
		"failsafe": h.engineService.Failsafe(),
	}))
}

// ResetFailsafe оператор снимает срабатывание failsafe
func (h *Handlers) ResetFailsafe(c *gin.Context) {
	state := h.engineService.ResetFailsafe()
	c.JSON(http.StatusOK, SuccessResponse("failsafe_reset", gin.H{
		"failsafe": state,
	}))
}

// ValidateTarget прогоняет URL через проверку SSRF без создания монитора
func (h *Handlers) ValidateTarget(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "url is required"))
		return
	}

	verdict := h.engineService.ValidateTarget(c.Request.Context(), req.URL)
	c.JSON(http.StatusOK, SuccessResponse("target_validated", gin.H{
		"verdict": verdict,
	}))
}
