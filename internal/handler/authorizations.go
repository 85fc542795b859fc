package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portal-server/internal/models"
)

func (h *PortalHandler) createAuthorization(c *gin.Context) {
	requester := h.tokens.Identity()
	if requester == "" {
		handleServiceError(c, models.ErrUnauthenticated)
		return
	}

	var req createAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	created, err := h.authorizations.Create(c.Request.Context(), req.Numero, requester, req.DocumentRefs)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *PortalHandler) listAuthorizations(c *gin.Context) {
	requester := h.tokens.Identity()
	if requester == "" {
		handleServiceError(c, models.ErrUnauthenticated)
		return
	}

	requests, err := h.authorizations.ListByRequester(c.Request.Context(), requester)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// updateAuthorizationStatus is the back-office transition endpoint; the
// portal UI only reads statuses.
func (h *PortalHandler) updateAuthorizationStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeValidation, Message: "invalid request id"})
		return
	}

	var req updateAuthorizationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	updated, err := h.authorizations.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
