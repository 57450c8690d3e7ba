package api

import (
	"net/http"

	"balmar-shop/internal/rules"
	"balmar-shop/internal/service"

	"github.com/gin-gonic/gin"
)

type rateRequest struct {
	Rating int `json:"rating" binding:"required"`
}

type trustScoreRequest struct {
	TrustScore *int `json:"trust_score" binding:"required"`
}

// register creates an account and returns a bearer token for it
func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, "Failed to register user", err)
		return
	}

	token, err := h.issueToken(user.ID)
	if err != nil {
		h.renderError(c, "Failed to issue token", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  user,
		"token": token,
	})
}

// getUser returns a public profile. trust_score is the stored score, set on the
// last recompute or admin override; trust_preview is what a recompute would give now.
func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, "User not found", err)
		return
	}

	profile := *user
	profile.Email = ""
	c.JSON(http.StatusOK, gin.H{
		"user":          profile,
		"trust_preview": rules.CalculateTrustScore(user),
	})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.renderError(c, "Failed to update profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), currentUser(c)); err != nil {
		h.renderError(c, "Failed to delete account", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) rateSeller(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	seller, err := h.users.RateSeller(c.Request.Context(), currentUser(c), c.Param("id"), req.Rating)
	if err != nil {
		h.renderError(c, "Failed to rate seller", err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

func (h *Handler) follow(c *gin.Context) {
	if err := h.users.Follow(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.renderError(c, "Failed to follow seller", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requestVerification queues an identity check; the outcome arrives as a notification
func (h *Handler) requestVerification(c *gin.Context) {
	if err := h.users.RequestVerification(c.Request.Context(), currentUser(c)); err != nil {
		h.renderError(c, "Failed to request verification", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "PENDING"})
}

func (h *Handler) listNotifications(c *gin.Context) {
	notes, err := h.users.Notifications(c.Request.Context(), currentUser(c))
	if err != nil {
		h.renderError(c, "Failed to list notifications", err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	if err := h.users.MarkNotificationRead(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.renderError(c, "Failed to mark notification read", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) overrideTrustScore(c *gin.Context) {
	var req trustScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	user, err := h.users.OverrideTrustScore(c.Request.Context(), c.Param("id"), *req.TrustScore)
	if err != nil {
		h.renderError(c, "Failed to override trust score", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) recomputeTrustScore(c *gin.Context) {
	user, trust, err := h.users.RecomputeTrustScore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, "Failed to recompute trust score", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"trust": trust,
	})
}
