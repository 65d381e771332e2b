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

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RolePartner, model.RoleDistributor)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	router.GET("/api/orders/:id/timeline", anyRole, h.OrderTimeline)
	router.GET("/api/audit", adminOnly, h.List)
}

// OrderTimeline returns an order's activity entries in chronological order
// @Summary      Order timeline
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id}/timeline [get]
func (h *AuditHandler) OrderTimeline(c *gin.Context) {
	entries, err := h.auditService.OrderTimeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// List returns the global activity trail, newest first
// @Summary      List audit entries
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	entries, total, err := h.auditService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, entries, params.Page, params.Limit, total))
}
