// internal/handlers/order.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/infonomu/bni/internal/services"
	"github.com/infonomu/bni/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// POST /orders
//
// Guests may order; a valid token attaches the buyer identity.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if identityID, ok := currentIdentity(c); ok {
		req.BuyerID = &identityID
	} else {
		req.BuyerID = nil
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			utils.NotFoundResponse(c, "Product")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{"order": order})
}

// GET /orders/mine
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	identityID, ok := currentIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	orders, err := h.orderService.GetMyOrders(c.Request.Context(), identityID)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch orders")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GET /orders/received
func (h *OrderHandler) GetReceivedOrders(c *gin.Context) {
	identityID, ok := currentIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	orders, err := h.orderService.GetSellerOrders(c.Request.Context(), identityID)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch orders")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}
