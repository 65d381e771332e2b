package handler

import (
	"net/http"

	"vinobridge/internal/middleware"
	"vinobridge/internal/model"
	"vinobridge/internal/service"
	"vinobridge/pkg/pagination"
	"vinobridge/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RolePartner, model.RoleDistributor)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	router.GET("/api/notifications", anyRole, h.ListNotifications)
	router.GET("/api/invoices", adminOnly, h.ListInvoices)
}

// ListNotifications returns the caller's in-app notifications, newest first
// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	params := pagination.Parse(c)
	notifications, total, err := h.notificationService.ListForActor(c.Request.Context(), actor, params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, notifications, params.Page, params.Limit, total))
}

// ListInvoices returns invoices produced by the async invoice job
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/invoices [get]
func (h *NotificationHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)
	invoices, total, err := h.notificationService.ListInvoices(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, invoices, params.Page, params.Limit, total))
}
