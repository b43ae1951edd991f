package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"PulseWatch/internal/backend/dependencies"
	"PulseWatch/internal/backend/services"
	"PulseWatch/internal/recorder"

	"github.com/gin-gonic/gin"
)

const (
	OwnerHeader = "X-Owner-ID"
	ownerKey    = "owner"
)

type Handlers struct {
	monitorService     *services.MonitorService
	sloService         *services.SLOService
	maintenanceService *services.MaintenanceService
	incidentService    *services.IncidentService
	metricsService     *services.MetricsService
	engineService      *services.EngineService
	hub                *recorder.Hub
	logger             *slog.Logger
}

func NewHandlers(container *dependencies.Container) *Handlers {
	logger := container.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handlers{
		monitorService:     container.MonitorService,
		sloService:         container.SLOService,
		maintenanceService: container.MaintenanceService,
		incidentService:    container.IncidentService,
		metricsService:     container.MetricsService,
		engineService:      container.EngineService,
		hub:                container.Hub,
		logger:             logger.With("component", "http"),
	}
}

// OwnerMiddleware требует идентификатор владельца. Аутентификация
// выполняется шлюзом перед сервисом, сюда приходит уже проверенный owner
func (h *Handlers) OwnerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse("missing_owner", OwnerHeader+" header is required"))
			c.Abort()
			return
		}

		c.Set(ownerKey, owner)
		c.Next()
	}
}

// возвращает владельца из контекста
func (h *Handlers) owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}

// respondError переводит ошибки сервисов в HTTP ответ
func (h *Handlers) respondError(c *gin.Context, err error, code string, attrs ...any) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse(verr.Code, verr.Message))
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse("not_found", "Resource not found"))
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse("forbidden", "Resource belongs to another owner"))
	default:
		h.logger.Error("request failed", append([]any{"error", err, "code", code}, attrs...)...)
		c.JSON(http.StatusInternalServerError, ErrorResponse(code, "Internal server error"))
	}
}
