// Package handlers exposes the stock, order and notification services over HTTP.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// reply writes a service result. Infrastructure errors are logged and hidden.
func reply(c *gin.Context, log *zap.Logger, ok bool, message string, err error, data interface{}) {
	if err != nil {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("message", message),
			zap.Error(err))
		fail(c, http.StatusInternalServerError, message)
		return
	}
	if !ok {
		fail(c, statusFor(message), message)
		return
	}
	success(c, message, data)
}

func statusFor(message string) int {
	if strings.Contains(strings.ToLower(message), "not found") {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func parseIDParam(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid "+param)
		return 0, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, param string) int {
	v, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return 0
	}
	return v
}
