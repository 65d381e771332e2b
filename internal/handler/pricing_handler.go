package handler

import (
	"net/http"
	"strconv"

	"vinobridge/internal/middleware"
	"vinobridge/internal/model"
	"vinobridge/internal/pricing"
	"vinobridge/internal/service"
	"vinobridge/pkg/pagination"
	"vinobridge/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// priceItemView is the display shape of a calculated row: USD figures
// rounded to two decimals, AED figures to whole dirhams. Stored values stay
// unrounded; rounding happens only here at the response edge.
type priceItemView struct {
	ID          uuid.UUID `json:"id"`
	RowIndex    int       `json:"row_index"`
	ProductName string    `json:"product_name"`
	Vintage     *string   `json:"vintage"`
	CaseConfig  int       `json:"case_config"`
	Currency    string    `json:"currency"`
	UnitPrice   float64   `json:"unit_price"`

	CaseUSD   float64 `json:"case_usd"`
	BottleUSD float64 `json:"bottle_usd"`
	CaseAED   float64 `json:"case_aed"`
	BottleAED float64 `json:"bottle_aed"`

	DeliveredCaseUSD   float64 `json:"delivered_case_usd"`
	DeliveredBottleUSD float64 `json:"delivered_bottle_usd"`
	DeliveredCaseAED   float64 `json:"delivered_case_aed"`
	DeliveredBottleAED float64 `json:"delivered_bottle_aed"`
}

func newPriceItemView(item model.PricingLineItem) priceItemView {
	return priceItemView{
		ID:          item.ID,
		RowIndex:    item.RowIndex,
		ProductName: item.ProductName,
		Vintage:     item.Vintage,
		CaseConfig:  item.CaseConfig,
		Currency:    item.Currency,
		UnitPrice:   pricing.Round2(item.UnitPrice),

		CaseUSD:   pricing.Round2(item.CaseUSD),
		BottleUSD: pricing.Round2(item.BottleUSD),
		CaseAED:   pricing.RoundWhole(item.CaseAED),
		BottleAED: pricing.RoundWhole(item.BottleAED),

		DeliveredCaseUSD:   pricing.Round2(item.DeliveredCaseUSD),
		DeliveredBottleUSD: pricing.Round2(item.DeliveredBottleUSD),
		DeliveredCaseAED:   pricing.RoundWhole(item.DeliveredCaseAED),
		DeliveredBottleAED: pricing.RoundWhole(item.DeliveredBottleAED),
	}
}

func newPriceItemViews(items []model.PricingLineItem) []priceItemView {
	views := make([]priceItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newPriceItemView(item))
	}
	return views
}

type PricingHandler struct {
	pricingService service.BulkPricingService
}

func NewPricingHandler(pricingService service.BulkPricingService) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	sessions := router.Group("/api/pricing/sessions")
	{
		sessions.GET("", adminOnly, h.ListSessions)
		sessions.POST("", adminOnly, h.CreateSession)
		sessions.GET("/:id", adminOnly, h.GetSession)
		sessions.PUT("/:id/mapping", adminOnly, h.UpdateMapping)
		sessions.PUT("/:id/variables", adminOnly, h.UpdateVariables)
		sessions.POST("/:id/calculate", adminOnly, h.RunCalculation)
		sessions.GET("/:id/items", adminOnly, h.ListItems)
	}
	items := router.Group("/api/pricing/items")
	{
		items.PATCH("/:id/case-config", adminOnly, h.UpdateItemCaseConfig)
	}
}

// CreateSession uploads an xlsx product list and opens a pricing session
// @Summary      Upload pricing sheet
// @Tags         pricing
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file                 formData  file    true   "xlsx workbook"
// @Param        name                 formData  string  false  "Session name"
// @Param        default_case_config  formData  int     false  "Fallback pack size (default: 6)"
// @Param        default_currency     formData  string  false  "Fallback currency (default: GBP)"
// @Success      201  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/pricing/sessions [post]
func (h *PricingHandler) CreateSession(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing file upload"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to open upload: "+err.Error()))
		return
	}
	defer file.Close()

	req := service.CreateSessionRequest{
		Name:            c.PostForm("name"),
		FileName:        fileHeader.Filename,
		DefaultCurrency: c.PostForm("default_currency"),
	}
	if req.Name == "" {
		req.Name = fileHeader.Filename
	}
	if raw := c.PostForm("default_case_config"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			req.DefaultCaseConfig = parsed
		}
	}

	session, err := h.pricingService.CreateSession(c.Request.Context(), actor, req, file)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, session))
}

// GetSession returns a pricing session
// @Summary      Get pricing session
// @Tags         pricing
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Session ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/pricing/sessions/{id} [get]
func (h *PricingHandler) GetSession(c *gin.Context) {
	session, err := h.pricingService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, session))
}

// ListSessions returns pricing sessions, newest first
// @Summary      List pricing sessions
// @Tags         pricing
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/pricing/sessions [get]
func (h *PricingHandler) ListSessions(c *gin.Context) {
	params := pagination.Parse(c)
	sessions, total, err := h.pricingService.ListSessions(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, sessions, params.Page, params.Limit, total))
}

// UpdateMapping stores the column mapping for a session
// @Summary      Update column mapping
// @Tags         pricing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                        true  "Session ID"
// @Param        payload  body  service.UpdateMappingRequest  true  "Field to column index map"
// @Success      200  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/pricing/sessions/{id}/mapping [put]
func (h *PricingHandler) UpdateMapping(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.UpdateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	session, err := h.pricingService.UpdateMapping(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, session))
}

// UpdateVariables replaces the session's rate configuration
// @Summary      Update calculation variables
// @Tags         pricing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                          true  "Session ID"
// @Param        payload  body  service.UpdateVariablesRequest  true  "Rates and markups"
// @Success      200  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/pricing/sessions/{id}/variables [put]
func (h *PricingHandler) UpdateVariables(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.UpdateVariablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	session, err := h.pricingService.UpdateVariables(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, session))
}

// RunCalculation regenerates the session's full price list
// @Summary      Run calculation
// @Tags         pricing
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Session ID"
// @Success      200  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/pricing/sessions/{id}/calculate [post]
func (h *PricingHandler) RunCalculation(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	items, err := h.pricingService.RunCalculation(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, newPriceItemViews(items)))
}

// ListItems returns the calculated price list for a session
// @Summary      List calculated items
// @Tags         pricing
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Session ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/pricing/sessions/{id}/items [get]
func (h *PricingHandler) ListItems(c *gin.Context) {
	items, err := h.pricingService.ListItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, newPriceItemViews(items)))
}

// UpdateItemCaseConfig recomputes one item with a different pack size
// @Summary      Update item case configuration
// @Tags         pricing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                               true  "Item ID"
// @Param        payload  body  service.UpdateItemCaseConfigRequest  true  "New pack size"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/pricing/items/{id}/case-config [patch]
func (h *PricingHandler) UpdateItemCaseConfig(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.UpdateItemCaseConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.pricingService.UpdateItemCaseConfig(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, newPriceItemView(*item)))
}
