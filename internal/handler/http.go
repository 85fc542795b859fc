package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portal-server/internal/clients"
	"portal-server/internal/models"
	"portal-server/internal/service"
)

// PortalHandler carries the dependencies of the portal HTTP API.
type PortalHandler struct {
	tokens         *service.TokenManager
	gateway        clients.Gateway
	accounts       *service.AccountCache
	inventory      *service.InventoryService
	imports        *service.ImportService
	authorizations *service.AuthorizationService
	admin          *clients.YetiAdminClient // nil when no admin API is configured
	logger         *zap.Logger
}

// NewPortalHandler creates the portal API handler. admin may be nil;
// the admin routes are then not registered.
func NewPortalHandler(
	tokens *service.TokenManager,
	gateway clients.Gateway,
	accounts *service.AccountCache,
	inventory *service.InventoryService,
	imports *service.ImportService,
	authorizations *service.AuthorizationService,
	admin *clients.YetiAdminClient,
	logger *zap.Logger,
) *PortalHandler {
	return &PortalHandler{
		tokens:         tokens,
		gateway:        gateway,
		accounts:       accounts,
		inventory:      inventory,
		imports:        imports,
		authorizations: authorizations,
		admin:          admin,
		logger:         logger.Named("PortalHandler"),
	}
}

// RegisterRoutes mounts the portal API. The rate limiter guards only
// the proxy surface; portal-local CRUD is not metered.
func (h *PortalHandler) RegisterRoutes(router *gin.Engine, rateLimit gin.HandlerFunc) {
	api := router.Group("/api")

	api.POST("/proxy", rateLimit, h.proxy)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.login)
		auth.POST("/logout", h.logout)
		auth.GET("/session", h.session)
	}

	api.GET("/account", h.accountSummary)
	api.POST("/rates/check", h.checkRate)

	numbers := api.Group("/numbers")
	{
		numbers.GET("", h.listNumbers)
		numbers.POST("/order", h.orderNumbers)
		numbers.POST("/import", h.importNumbers)
	}

	authz := api.Group("/authorizations")
	{
		authz.GET("", h.listAuthorizations)
		authz.POST("", h.createAuthorization)
		authz.PATCH("/:id/status", h.updateAuthorizationStatus)
	}

	if h.admin != nil {
		api.GET("/admin/nodes", h.adminNodes)
	}
}

func (h *PortalHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	if err := h.tokens.Login(c.Request.Context(), req.Login, req.Password); err != nil {
		handleServiceError(c, err)
		return
	}

	loginsTotal.Inc()
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"identity":      h.tokens.Identity(),
	})
}

func (h *PortalHandler) logout(c *gin.Context) {
	h.tokens.Logout(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

func (h *PortalHandler) session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"authenticated": h.tokens.Authenticated(),
		"identity":      h.tokens.Identity(),
	})
}

func (h *PortalHandler) accountSummary(c *gin.Context) {
	force := c.Query("force") == "true"

	snap, err := h.accounts.Get(c.Request.Context(), force)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// checkRate forwards a destination rate lookup to the switch. The body
// passes through untouched in both directions.
func (h *PortalHandler) checkRate(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	res, err := h.gateway.Call(c.Request.Context(), "/check-rate", http.MethodPost, payload)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PortalHandler) adminNodes(c *gin.Context) {
	res, err := h.admin.Call(c.Request.Context(), "/nodes", http.MethodGet)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	nodes, err := clients.DecodeResources(res.Data)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}
