// internal/handlers/function.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/infonomu/bni/internal/mailer"
)

// FunctionHandler exposes the notification dispatch as its own invocable
// endpoint. It keeps the standalone function's response shape and CORS
// behavior rather than the versioned API envelope.
type FunctionHandler struct {
	dispatcher *mailer.Dispatcher
	configured bool
}

func NewFunctionHandler(dispatcher *mailer.Dispatcher, configured bool) *FunctionHandler {
	return &FunctionHandler{
		dispatcher: dispatcher,
		configured: configured,
	}
}

func functionCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
}

// OPTIONS /functions/send-order-email
func (h *FunctionHandler) Preflight(c *gin.Context) {
	functionCORS(c)
	c.String(http.StatusOK, "ok")
}

// POST /functions/send-order-email
func (h *FunctionHandler) SendOrderEmail(c *gin.Context) {
	functionCORS(c)

	if !h.configured {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Resend API key not configured",
		})
		return
	}

	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "order_id is required",
		})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "order_id is required",
		})
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, mailer.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Order not found",
			})
			return
		}
		logrus.WithError(err).Error("order email dispatch failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
