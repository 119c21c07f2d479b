package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/stories"
)

type StoriesHandler struct {
	stories *stories.Service
}

func NewStoriesHandler(storySvc *stories.Service) *StoriesHandler {
	return &StoriesHandler{stories: storySvc}
}

// List returns the unexpired stories, newest first.
func (h *StoriesHandler) List(c *gin.Context) {
	list, err := h.stories.Active()
	if err != nil {
		fail(c, err, "failed to fetch stories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": list})
}

type AddStoryRequest struct {
	Username string              `json:"username"`
	Avatar   string              `json:"avatar"`
	Frames   []models.StoryFrame `json:"frames" binding:"required"`
}

// Add posts a story for the caller; expiry is stamped server-side.
func (h *StoriesHandler) Add(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req AddStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Frames) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}

	story, err := h.stories.Add(models.Story{
		UserID:   uid,
		Username: req.Username,
		Avatar:   req.Avatar,
		Frames:   req.Frames,
	})
	if err != nil {
		fail(c, err, "failed to save story")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"story": story})
}
