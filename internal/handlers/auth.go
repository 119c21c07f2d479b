package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/auth"
	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/session"
)

type AuthHandler struct {
	authSvc  *auth.Service
	sessions *session.Manager
}

func NewAuthHandler(authSvc *auth.Service, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, sessions: sessions}
}

type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates a new account, signs it in locally, and returns a token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}

	user, err := h.authSvc.Register(req.Username, req.Password, req.DisplayName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __(err.Error())})
		return
	}

	if err := h.sessions.Login(*user); err != nil {
		if errors.Is(err, session.ErrAccountLimit) {
			c.JSON(http.StatusConflict, gin.H{"error": __("account limit reached")})
			return
		}
		fail(c, err, "internal server error")
		return
	}

	token, err := h.authSvc.GenerateToken(user.UID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": __("failed to generate token")})
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user.Public()})
}

// Login authenticates a user, adds the account to the device session list
// (capped at three), and returns a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}

	user, token, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": __(err.Error())})
		return
	}

	if err := h.sessions.Login(*user); err != nil {
		if errors.Is(err, session.ErrAccountLimit) {
			c.JSON(http.StatusConflict, gin.H{"error": __("account limit reached")})
			return
		}
		fail(c, err, "internal server error")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, User: user.Public()})
}

// Switch activates another already-known account.
func (h *AuthHandler) Switch(c *gin.Context) {
	uid := c.Param("uid")
	if err := h.sessions.SwitchAccount(uid); err != nil {
		if errors.Is(err, session.ErrUnknownAccount) {
			c.JSON(http.StatusNotFound, gin.H{"error": __("account not signed in")})
			return
		}
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_uid": h.sessions.ActiveUID()})
}

// Logout removes the active account and activates the next known one.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_uid": h.sessions.ActiveUID()})
}

// Accounts lists every locally known account resolved to its current record.
func (h *AuthHandler) Accounts(c *gin.Context) {
	users, err := h.sessions.Accounts()
	if err != nil {
		fail(c, err, "failed to fetch users")
		return
	}
	public := make([]models.User, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	c.JSON(http.StatusOK, gin.H{"accounts": public, "active_uid": h.sessions.ActiveUID()})
}

// AuthMiddleware validates the JWT and stores uid/username on the context.
func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := ""

		if authHeader != "" {
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				token = authHeader[7:]
			}
		}

		// If not in header, try query parameter (for WebSocket)
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": __("missing authorization token")})
			c.Abort()
			return
		}

		claims, err := h.authSvc.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": __("invalid token")})
			c.Abort()
			return
		}

		exists, err := h.authSvc.UserExists(claims.UID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": __("failed to validate user")})
			c.Abort()
			return
		}
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": __("user not found")})
			c.Abort()
			return
		}

		c.Set("uid", claims.UID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// AdminMiddleware restricts a route group to admin accounts. Must run after
// AuthMiddleware.
func (h *AuthHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := currentUID(c)
		if !ok {
			c.Abort()
			return
		}
		user, err := h.authSvc.GetUserByUsername(c.GetString("username"))
		if err != nil || user.UID != uid || !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": __("admin access required")})
			c.Abort()
			return
		}
		c.Next()
	}
}
