package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"seatwatch-backend/internal/model"
	"seatwatch-backend/internal/mw"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
	Email    string `json:"email"`
}

func (h *Handler) pushEnabled(c *gin.Context) bool {
	if h.push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured"})
		return false
	}
	return true
}

// callerEmail returns the caller's email. Push endpoints receive seat notices
// for an email, so only that email's owner may manage them.
func callerEmail(c *gin.Context) (string, bool) {
	identity := mw.IdentityFrom(c)
	if identity == nil || identity.Email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return "", false
	}
	return identity.Email, true
}

// PutSubscription handles the creation or replacement of a subscription
// for the caller's email.
func (h *Handler) PutSubscription(c *gin.Context) {
	if !h.pushEnabled(c) {
		return
	}
	email, ok := callerEmail(c)
	if !ok {
		return
	}

	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body := strings.ToLower(strings.TrimSpace(req.Email)); body != "" && body != email {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot subscribe another email"})
		return
	}

	existing, err := h.push.GetPushSubscription(c.Request.Context(), req.Endpoint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil && existing.Email != email {
		c.JSON(http.StatusForbidden, gin.H{"error": "subscription belongs to another email"})
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		Email:    email,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.push.UpsertPushSubscription(c.Request.Context(), &subscription); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	if !h.pushEnabled(c) {
		return
	}
	email, ok := callerEmail(c)
	if !ok {
		return
	}

	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.push.GetPushSubscription(c.Request.Context(), req.Endpoint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	if existing.Email != email {
		c.JSON(http.StatusForbidden, gin.H{"error": "subscription belongs to another email"})
		return
	}

	if err := h.push.DeletePushSubscription(c.Request.Context(), req.Endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL decoding; push endpoints are
// stored exactly as the browser reported them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription handles the retrieval of a subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	if !h.pushEnabled(c) {
		return
	}

	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	subscription, err := h.push.GetPushSubscription(c.Request.Context(), raw)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if subscription == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": subscription.Email})
}
