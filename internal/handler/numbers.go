package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portal-server/internal/models"
)

const (
	defaultNumberPageSize = 100
	maxNumberPageSize     = 1000
)

func (h *PortalHandler) listNumbers(c *gin.Context) {
	filter := models.NumberFilter{
		Status: c.DefaultQuery("status", models.NumberStatusAvailable),
		Region: c.Query("region"),
		Prefix: c.Query("prefix"),
		Limit:  defaultNumberPageSize,
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxNumberPageSize {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeValidation, Message: "limit must be between 1 and 1000"})
			return
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeValidation, Message: "offset must be non-negative"})
			return
		}
		filter.Offset = n
	}

	numbers, err := h.inventory.List(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": numbers})
}

func (h *PortalHandler) orderNumbers(c *gin.Context) {
	orderedBy := h.tokens.Identity()
	if orderedBy == "" {
		handleServiceError(c, models.ErrUnauthenticated)
		return
	}

	var req orderNumbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeValidation, Message: "invalid number id: " + raw})
			return
		}
		ids = append(ids, id)
	}

	ordered, err := h.inventory.Order(c.Request.Context(), ids, orderedBy)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	numberOrdersTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"ordered": ordered})
}

func (h *PortalHandler) importNumbers(c *gin.Context) {
	var req importNumbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.imports.ImportCSV(c.Request.Context(), req.CSVData)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
