package main

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/typolo/ultimessenger/internal/accounts"
	"github.com/typolo/ultimessenger/internal/ads"
	"github.com/typolo/ultimessenger/internal/auth"
	"github.com/typolo/ultimessenger/internal/bootstrap"
	"github.com/typolo/ultimessenger/internal/botfather"
	"github.com/typolo/ultimessenger/internal/calls"
	"github.com/typolo/ultimessenger/internal/chats"
	"github.com/typolo/ultimessenger/internal/handlers"
	"github.com/typolo/ultimessenger/internal/messages"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/push"
	"github.com/typolo/ultimessenger/internal/session"
	"github.com/typolo/ultimessenger/internal/store"
	"github.com/typolo/ultimessenger/internal/stories"
	"github.com/typolo/ultimessenger/internal/stream"
	"github.com/typolo/ultimessenger/pkg/config"
	"github.com/typolo/ultimessenger/pkg/i18n"
)

var __ = i18n.Translate

func rateLimitMiddleware(limiterInstance *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiterContext, err := limiterInstance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": __("rate limiter error")})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiterContext.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limiterContext.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", limiterContext.Reset))

		if limiterContext.Reached {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": __("rate limit exceeded")})
			c.Abort()
			return
		}

		c.Next()
	}
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseBodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w responseBodyWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func serverErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		blw := &responseBodyWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Printf(
				"HTTP %d %s %s ip=%s duration=%s errors=%q response=%q",
				c.Writer.Status(),
				c.Request.Method,
				c.Request.URL.Path,
				c.ClientIP(),
				time.Since(start).Truncate(time.Millisecond),
				c.Errors.ByType(gin.ErrorTypeAny).String(),
				strings.TrimSpace(blw.body.String()),
			)
		}
	}
}

func panicRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf(
			"panic recovered method=%s path=%s ip=%s error=%v\n%s",
			c.Request.Method,
			c.Request.URL.Path,
			c.ClientIP(),
			recovered,
			debug.Stack(),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": __("internal server error")})
	})
}

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 {
		if err := runCommand(cfg, os.Args[1:]); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := runServer(cfg); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func runCommand(cfg *config.Config, args []string) error {
	command := args[0]

	switch command {
	case "status":
		return runStatus(cfg, os.Stdout, args[1:])
	case "-h", "--help", "help":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(out *os.File) {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  ultimessenger           Start the web server")
	fmt.Fprintln(out, "  ultimessenger status    Show application statistics")
	fmt.Fprintln(out, "  ultimessenger status --json")
}

func runServer(cfg *config.Config) error {
	os.MkdirAll(cfg.DataDir, 0755)

	st, err := store.Open(filepath.Join(cfg.DataDir, "store"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := bootstrap.Run(st); err != nil {
		return err
	}

	notifier := notify.New()

	sessions, err := session.New(cfg.DataDir, st, notifier)
	if err != nil {
		return fmt.Errorf("failed to load session state: %w", err)
	}

	authSvc := auth.New(st, cfg.JWTSecret)
	accountsSvc := accounts.New(st, notifier, sessions, cfg.PresenceOnlineWindow)
	chatSvc := chats.New(st, notifier)
	pushNotifier := push.New(st, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	msgSvc := messages.New(st, notifier, chatSvc, pushNotifier)
	storySvc := stories.New(st, notifier, cfg.StoryTTL)
	callSvc := calls.New(st, notifier)
	streamSvc := stream.New(st, notifier)
	adSvc := ads.New(st, notifier)
	botSvc := botfather.New(st)

	hub := notify.NewHub(notifier, func(uid string) {
		if err := accountsSvc.Heartbeat(uid); err != nil {
			log.Printf("heartbeat for %s failed: %v", uid, err)
		}
	})
	go hub.Run()

	authHandler := handlers.NewAuthHandler(authSvc, sessions)
	usersHandler := handlers.NewUsersHandler(accountsSvc)
	chatsHandler := handlers.NewChatsHandler(chatSvc)
	msgHandler := handlers.NewMessagesHandler(msgSvc, chatSvc, botSvc)
	storiesHandler := handlers.NewStoriesHandler(storySvc)
	callsHandler := handlers.NewCallsHandler(callSvc)
	streamHandler := handlers.NewStreamHandler(streamSvc, accountsSvc)
	adsHandler := handlers.NewAdsHandler(adSvc)
	pushHandler := handlers.NewPushHandler(pushNotifier, notifier)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(serverErrorLogger())
	router.Use(gin.Logger())
	router.Use(panicRecovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Public endpoints
	api := router.Group("/api")
	{
		loginLimiter := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 5})
		registerLimiter := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 2})

		api.POST("/auth/register", rateLimitMiddleware(registerLimiter), authHandler.Register)
		api.POST("/auth/login", rateLimitMiddleware(loginLimiter), authHandler.Login)

		api.GET("/push/key", pushHandler.VAPIDKey)
	}

	// Protected endpoints
	protected := api.Group("")
	protected.Use(authHandler.AuthMiddleware())
	{
		// Local accounts
		protected.GET("/accounts", authHandler.Accounts)
		protected.POST("/accounts/switch/:uid", authHandler.Switch)
		protected.POST("/auth/logout", authHandler.Logout)

		// Users
		protected.GET("/users", usersHandler.Search)
		protected.GET("/users/:uid", usersHandler.GetProfile)
		protected.PUT("/profile", usersHandler.UpdateProfile)
		protected.POST("/heartbeat", usersHandler.Heartbeat)
		protected.POST("/users/:uid/block", usersHandler.Block)
		protected.DELETE("/users/:uid/block", usersHandler.Unblock)

		// Conversations
		protected.GET("/conversations", chatsHandler.Mine)
		protected.POST("/conversations", chatsHandler.Create)
		protected.PUT("/conversations/:id", chatsHandler.Update)
		protected.DELETE("/conversations/:id", chatsHandler.Delete)

		// Messages
		protected.GET("/conversations/:id/messages", msgHandler.List)
		protected.POST("/conversations/:id/messages", msgHandler.Send)
		protected.PUT("/messages/:messageId", msgHandler.Edit)
		protected.POST("/messages/:messageId/reactions", msgHandler.React)
		protected.PUT("/messages/:messageId/seen", msgHandler.Seen)
		protected.DELETE("/messages/:messageId", msgHandler.Delete)

		// Stories
		protected.GET("/stories", storiesHandler.List)
		protected.POST("/stories", storiesHandler.Add)

		// Calls
		protected.GET("/calls", callsHandler.Active)
		protected.POST("/calls", callsHandler.Initiate)
		protected.PUT("/calls/:id", callsHandler.UpdateStatus)

		// Live stream
		protected.GET("/stream", streamHandler.Get)
		protected.POST("/stream/requests", streamHandler.RequestJoin)
		protected.DELETE("/stream/requests", streamHandler.CancelJoin)
		protected.POST("/stream/messages", streamHandler.SendMessage)

		// Ads
		protected.GET("/ads/active", adsHandler.Active)
		protected.POST("/ads/:id/view", adsHandler.View)

		// Push
		protected.POST("/push/subscribe", pushHandler.Subscribe)
	}

	// Admin endpoints
	admin := protected.Group("/admin")
	admin.Use(authHandler.AdminMiddleware())
	{
		admin.POST("/users/:uid/ban", usersHandler.Ban)
		admin.DELETE("/users/:uid/ban", usersHandler.Unban)
		admin.POST("/users/:uid/credit", usersHandler.Credit)

		admin.POST("/stream", streamHandler.Start)
		admin.DELETE("/stream", streamHandler.Stop)
		admin.PUT("/stream", streamHandler.Update)
		admin.POST("/stream/guest", streamHandler.SetGuest)
		admin.DELETE("/stream/guest", streamHandler.ClearGuest)

		admin.GET("/ads", adsHandler.All)
		admin.POST("/ads", adsHandler.Set)
		admin.POST("/ads/:id/activate", adsHandler.Activate)

		admin.POST("/broadcast/open-app", pushHandler.OpenApp)

		admin.GET("/online", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"online": hub.ConnectedUIDs()})
		})
	}

	// WebSocket endpoint
	router.GET("/ws", authHandler.AuthMiddleware(), hub.HandleWebSocket)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if !st.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	log.Printf("Starting server on %s", addr)

	// Setup graceful shutdown
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigint
		log.Println("\nShutting down gracefully...")
		st.Close()
		os.Exit(0)
	}()

	if err := router.Run(addr); err != nil {
		return err
	}

	return nil
}
