package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/ads"
	"github.com/typolo/ultimessenger/internal/models"
)

type AdsHandler struct {
	ads *ads.Service
}

func NewAdsHandler(adSvc *ads.Service) *AdsHandler {
	return &AdsHandler{ads: adSvc}
}

// Active returns the currently running promotion, or null.
func (h *AdsHandler) Active(c *gin.Context) {
	ad, err := h.ads.GetActive()
	if err != nil {
		fail(c, err, "failed to fetch ads")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ad": ad})
}

// View bumps a promotion's view counter.
func (h *AdsHandler) View(c *gin.Context) {
	if err := h.ads.IncrementViews(c.Param("id")); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// All lists every promotion record (admin only).
func (h *AdsHandler) All(c *gin.Context) {
	list, err := h.ads.All()
	if err != nil {
		fail(c, err, "failed to fetch ads")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ads": list})
}

// Set upserts a promotion record (admin only).
func (h *AdsHandler) Set(c *gin.Context) {
	var ad models.AdConfig
	if err := c.ShouldBindJSON(&ad); err != nil || ad.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	saved, err := h.ads.Set(ad)
	if err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ad": saved})
}

// Activate makes one promotion active and deactivates the rest (admin only).
func (h *AdsHandler) Activate(c *gin.Context) {
	if err := h.ads.Activate(c.Param("id")); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
