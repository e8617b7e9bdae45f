package handler

import (
	"net/http"

	"comet-be/internal/apperr"
	"comet-be/internal/product"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	svc product.Service
}

func NewProductHandler(svc product.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// Get handles GET /api/products/:productId.
func (h *ProductHandler) Get(c *gin.Context) {
	detail, err := h.svc.Get(c.Request.Context(), c.Param("productId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Update handles POST /api/products/:productId.
func (h *ProductHandler) Update(c *gin.Context) {
	var input product.UpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperr.Validation("Invalid request body"))
		return
	}

	detail, err := h.svc.Update(c.Request.Context(), c.Param("productId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Delete handles DELETE /api/products/:productId.
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("productId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}
