package api

import (
	"net/http"
	"strconv"

	"balmar-shop/internal/service"
	"balmar-shop/internal/store"

	"github.com/gin-gonic/gin"
)

// listProducts returns unsold listings, newest first
func (h *Handler) listProducts(c *gin.Context) {
	filter := store.ProductFilter{
		Category: c.Query("category"),
		SellerID: c.Query("seller_id"),
		Search:   c.Query("q"),
	}

	if v := c.Query("max_price"); v != "" {
		maxPrice, err := strconv.ParseInt(v, 10, 64)
		if err != nil || maxPrice < 0 {
			badRequest(c, "Invalid max_price", err)
			return
		}
		filter.MaxPrice = maxPrice
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			badRequest(c, "Invalid limit", err)
			return
		}
		filter.Limit = limit
	}

	products, err := h.products.ListAvailable(c.Request.Context(), filter)
	if err != nil {
		h.renderError(c, "Failed to list products", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, "Product not found", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), currentUser(c), &in)
	if err != nil {
		h.renderError(c, "Failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var upd service.ProductUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), c.Param("id"), currentUser(c), &upd)
	if err != nil {
		h.renderError(c, "Failed to update product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.products.DeleteProduct(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		h.renderError(c, "Failed to delete product", err)
		return
	}
	c.Status(http.StatusNoContent)
}
