package handler

import (
	"net/http"

	"vinobridge/internal/middleware"
	"vinobridge/internal/model"
	"vinobridge/internal/pricing"
	"vinobridge/internal/service"
	"vinobridge/pkg/apperror"
	"vinobridge/pkg/pagination"
	"vinobridge/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorFrom rebuilds the acting identity from the middleware context.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	rawID, ok := c.Get("userID")
	if !ok {
		return service.Actor{}, false
	}
	idStr, ok := rawID.(string)
	if !ok {
		return service.Actor{}, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return service.Actor{}, false
	}
	role, _ := c.Get("userRole")
	roleStr, _ := role.(string)
	return service.Actor{ID: id, Role: roleStr}, true
}

func requireActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing or malformed identity"))
	}
	return actor, ok
}

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RolePartner, model.RoleDistributor)
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	partnerOrAdmin := middleware.RequireRole(model.RoleAdmin, model.RolePartner)
	distributorOrAdmin := middleware.RequireRole(model.RoleAdmin, model.RoleDistributor)

	orders := router.Group("/api/orders")
	{
		orders.GET("", anyRole, h.ListOrders)
		orders.POST("", partnerOrAdmin, h.CreateOrder)
		orders.POST("/calculator", anyRole, h.QuoteLine)
		orders.GET("/:id", anyRole, h.GetOrder)
		orders.POST("/:id/items", partnerOrAdmin, h.AddLineItem)
		orders.DELETE("/:id/items/:itemId", partnerOrAdmin, h.RemoveLineItem)
		orders.POST("/:id/submit", partnerOrAdmin, h.SubmitOrder)
		orders.POST("/:id/approve", adminOnly, h.ApproveOrder)
		orders.POST("/:id/verification", distributorOrAdmin, h.VerificationResponse)
		orders.PATCH("/:id/status", adminOnly, h.UpdateStatus)
		orders.POST("/:id/schedule", distributorOrAdmin, h.ScheduleDelivery)
		orders.POST("/:id/deliver", distributorOrAdmin, h.MarkDelivered)
		orders.POST("/:id/stock-receipt", distributorOrAdmin, h.ConfirmStockReceipt)
		orders.POST("/:id/cancel", anyRole, h.CancelOrder)
		orders.PATCH("/:id/variables", adminOnly, h.UpdateVariables)
	}
}

// fail maps a service error onto the response envelope.
func fail(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// ListOrders returns orders visible to the caller, optionally by status
// @Summary      List orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Param        status  query  string  false  "Filter by order status"
// @Success      200  {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	params := pagination.Parse(c)

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), actor, c.Query("status"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, orders, params.Page, params.Limit, total))
}

// CreateOrder opens a new draft order
// @Summary      Create order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateOrderRequest  true  "Order payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// GetOrder returns one order with its items and parties
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// AddLineItem appends a wine to a draft or revision order
// @Summary      Add line item
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "Order ID"
// @Param        payload  body  service.AddLineItemRequest  true  "Line item payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/items [post]
func (h *OrderHandler) AddLineItem(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.AddLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.AddLineItem(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// RemoveLineItem deletes a line item from a draft or revision order
// @Summary      Remove line item
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id      path  string  true  "Order ID"
// @Param        itemId  path  string  true  "Line item ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id}/items/{itemId} [delete]
func (h *OrderHandler) RemoveLineItem(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	order, err := h.orderService.RemoveLineItem(c.Request.Context(), actor, c.Param("id"), c.Param("itemId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// SubmitOrder moves a draft into review
// @Summary      Submit order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/submit [post]
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	order, err := h.orderService.SubmitOrder(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ApproveOrder approves a submitted order and assigns its distributor
// @Summary      Approve order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Order ID"
// @Param        payload  body  service.ApproveOrderRequest  true  "Approval payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/approve [post]
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.ApproveOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.ApproveOrder(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// VerificationResponse records the distributor's client verification result
// @Summary      Record verification result
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                               true  "Order ID"
// @Param        payload  body  service.VerificationResponseRequest  true  "Verification payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/verification [post]
func (h *OrderHandler) VerificationResponse(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.VerificationResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.VerificationResponse(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateStatus performs a generic admin status transition
// @Summary      Update order status
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Order ID"
// @Param        payload  body  service.UpdateStatusRequest  true  "Target status"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ScheduleDelivery sets or replaces the delivery date
// @Summary      Schedule delivery
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                           true  "Order ID"
// @Param        payload  body  service.ScheduleDeliveryRequest  true  "Delivery date"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/schedule [post]
func (h *OrderHandler) ScheduleDelivery(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.ScheduleDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.ScheduleDelivery(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// MarkDelivered closes an out-for-delivery order
// @Summary      Mark order delivered
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                        true  "Order ID"
// @Param        payload  body  service.MarkDeliveredRequest  true  "Delivery proof"
// @Success      200  {object}  response.Response
// @Failure      412  {object}  response.Response
// @Router       /api/orders/{id}/deliver [post]
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.MarkDeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.MarkDelivered(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ConfirmStockReceipt confirms arrival of cases at the distributor
// @Summary      Confirm stock receipt
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                              true  "Order ID"
// @Param        payload  body  service.ConfirmStockReceiptRequest  true  "Item IDs"
// @Success      200  {object}  response.Response
// @Failure      412  {object}  response.Response
// @Router       /api/orders/{id}/stock-receipt [post]
func (h *OrderHandler) ConfirmStockReceipt(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.ConfirmStockReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.ConfirmStockReceipt(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CancelOrder cancels any non-terminal order and frees reserved stock
// @Summary      Cancel order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "Order ID"
// @Param        payload  body  service.CancelOrderRequest  true  "Cancellation reason"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateVariables replaces the order's rate configuration
// @Summary      Update order rate configuration
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                               true  "Order ID"
// @Param        payload  body  service.UpdateOrderVariablesRequest  true  "Rates"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/variables [patch]
func (h *OrderHandler) UpdateVariables(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.UpdateOrderVariablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.UpdateOrderVariables(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// QuoteLine runs the per-line price calculator without touching any order
// @Summary      Quote a single line
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.OrderQuoteRequest  true  "Quote inputs"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/calculator [post]
func (h *OrderHandler) QuoteLine(c *gin.Context) {
	var req service.OrderQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	quote := h.orderService.QuoteLine(req)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, newQuoteView(quote)))
}

// quoteView rounds the calculator output to two decimals for display; the
// engine itself never rounds.
type quoteView struct {
	ImportTax          float64 `json:"import_tax"`
	LandedPrice        float64 `json:"landed_price"`
	PriceAfterMargin   float64 `json:"price_after_margin"`
	VAT                float64 `json:"vat"`
	CustomerQuotePrice float64 `json:"customer_quote_price"`
}

func newQuoteView(q pricing.OrderQuote) quoteView {
	return quoteView{
		ImportTax:          pricing.Round2(q.ImportTax),
		LandedPrice:        pricing.Round2(q.LandedPrice),
		PriceAfterMargin:   pricing.Round2(q.PriceAfterMargin),
		VAT:                pricing.Round2(q.VAT),
		CustomerQuotePrice: pricing.Round2(q.CustomerQuotePrice),
	}
}
