package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portal-server/internal/clients"
	"portal-server/internal/models"
)

// proxy forwards a logical upstream call described by the request body.
// The bearer credential never leaves the process; login through the
// proxy returns only the session identity.
func (h *PortalHandler) proxy(c *gin.Context) {
	var req proxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	if err := clients.ValidateEndpoint(req.Endpoint); err != nil {
		handleServiceError(c, err)
		return
	}
	method, err := clients.ValidateMethod(req.Method)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	proxyRequestsTotal.WithLabelValues(method).Inc()

	// Login travels through the proxy like every other call but is
	// consumed by the token manager instead of being forwarded as-is.
	if req.Endpoint == "/auth" && method == http.MethodPost {
		if req.Auth == nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeValidation, Message: "auth credentials are required for /auth"})
			return
		}
		if err := h.tokens.Login(c.Request.Context(), req.Auth.Login, req.Auth.Password); err != nil {
			handleServiceError(c, err)
			return
		}
		loginsTotal.Inc()
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"authenticated": true,
				"identity":      h.tokens.Identity(),
			},
			"status": http.StatusOK,
		})
		return
	}

	var payload interface{}
	if len(req.Data) > 0 {
		payload = json.RawMessage(req.Data)
	}

	res, err := h.gateway.Call(c.Request.Context(), req.Endpoint, method, payload)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	h.logger.Debug("Proxy call served", zap.String("endpoint", req.Endpoint), zap.Int("status", res.Status))
	c.JSON(http.StatusOK, res)
}
