package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// создает успешный JSON ответ
func SuccessResponse(message string, data interface{}) gin.H {
	response := gin.H{
		"success":   true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	if data != nil {
		response["data"] = data
	}

	return response
}

// создает JSON ответ с ошибкой
func ErrorResponse(code string, message string) gin.H {
	return gin.H{
		"success":   false,
		"error":     code,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}
}

// ListResponse список с общим количеством до применения лимита
func ListResponse(message string, key string, items interface{}, count int, total int) gin.H {
	return SuccessResponse(message, gin.H{
		key:     items,
		"count": count,
		"total": total,
	})
}
