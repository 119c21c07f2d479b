// Package handlers exposes the domain services over gin. Validation errors
// become 4xx with translated text; storage-unavailable is always surfaced as
// 503, never swallowed.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/store"
	"github.com/typolo/ultimessenger/pkg/i18n"
)

var __ = i18n.Translate

// fail maps an internal error onto the right status code and translated body.
func fail(c *gin.Context, err error, fallback string) {
	if errors.Is(err, store.ErrUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": __("storage unavailable")})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": __(fallback)})
}

func currentUID(c *gin.Context) (string, bool) {
	uid, exists := c.Get("uid")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": __("unauthorized")})
		return "", false
	}
	return uid.(string), true
}
