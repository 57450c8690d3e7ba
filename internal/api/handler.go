package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"balmar-shop/internal/models"
	"balmar-shop/internal/rules"
	"balmar-shop/internal/service"
	"balmar-shop/internal/store"
	"balmar-shop/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// UserAPI is the account surface the handlers need
type UserAPI interface {
	Register(ctx context.Context, req *service.RegisterRequest) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req *service.UpdateProfileRequest) (*models.User, error)
	DeleteUser(ctx context.Context, userID string) error
	RateSeller(ctx context.Context, raterID, sellerID string, rating int) (*models.User, error)
	RecomputeTrustScore(ctx context.Context, userID string) (*models.User, rules.TrustScore, error)
	OverrideTrustScore(ctx context.Context, userID string, score int) (*models.User, error)
	Follow(ctx context.Context, userID, sellerID string) error
	Notifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
	RequestVerification(ctx context.Context, userID string) error
}

// ProductAPI is the catalogue surface the handlers need
type ProductAPI interface {
	ListAvailable(ctx context.Context, filter store.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	CreateProduct(ctx context.Context, sellerID string, in *service.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID, sellerID string, upd *service.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID, sellerID string) error
}

// TransactionAPI is the checkout surface the handlers need
type TransactionAPI interface {
	QuoteFees(ctx context.Context, req *service.QuoteRequest) (*service.Quote, error)
	CreateTransaction(ctx context.Context, req *service.CreateTransactionRequest) (*models.Transaction, bool, error)
	GetTransaction(ctx context.Context, txnID, userID string) (*models.Transaction, error)
	ListUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	ExportTransactions(ctx context.Context) ([]models.Transaction, error)
	ApplyAction(ctx context.Context, txnID, actorID string, action rules.Action, details service.ActionDetails) (*models.Transaction, error)
	Complete(ctx context.Context, txnID, actorID string) (*models.Transaction, error)
	Cancel(ctx context.Context, txnID, actorID string) (*models.Transaction, error)
}

// MessagingAPI is the chat surface the handlers need
type MessagingAPI interface {
	StartConversation(ctx context.Context, buyerID, productID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	Messages(ctx context.Context, conversationID, userID string) ([]models.Message, error)
	SendMessage(ctx context.Context, req *service.SendMessageRequest) (*models.Message, error)
	RespondToOffer(ctx context.Context, messageID, responderID, status string) (*models.Message, error)
	Subscribable(ctx context.Context, conversationID, userID string) error
}

// Subscriber streams live conversation updates
type Subscriber interface {
	Subscribe(ctx context.Context, conversationID string) (*redis.PubSub, error)
}

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services behind the HTTP API
type Services struct {
	Users         UserAPI
	Products      ProductAPI
	Transactions  TransactionAPI
	Messaging     MessagingAPI
	Conversations Subscriber
}

// Options configures authentication, CORS and readiness
type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration
	AdminAPIKey    string
	AllowedOrigins []string
	Readiness      map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	users         UserAPI
	products      ProductAPI
	transactions  TransactionAPI
	messaging     MessagingAPI
	conversations Subscriber
	opts          Options
	logger        *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, opts Options) *Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 72 * time.Hour
	}
	return &Handler{
		users:         svc.Users,
		products:      svc.Products,
		transactions:  svc.Transactions,
		messaging:     svc.Messaging,
		conversations: svc.Conversations,
		opts:          opts,
		logger:        util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(cors.New(h.corsConfig()))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/users", h.register)
		v1.GET("/users/:id", h.getUser)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
	}

	authed := v1.Group("", h.authMiddleware(false))
	{
		authed.PATCH("/users/me", h.updateProfile)
		authed.DELETE("/users/me", h.deleteAccount)
		authed.POST("/users/me/kyc", h.requestVerification)
		authed.GET("/users/me/notifications", h.listNotifications)
		authed.GET("/users/me/transactions", h.listTransactions)
		authed.POST("/users/:id/rate", h.rateSeller)
		authed.POST("/users/:id/follow", h.follow)
		authed.POST("/notifications/:id/read", h.markNotificationRead)

		authed.POST("/products", h.createProduct)
		authed.PATCH("/products/:id", h.updateProduct)
		authed.DELETE("/products/:id", h.deleteProduct)

		authed.POST("/transactions/quote", h.quote)
		authed.POST("/transactions", h.createTransaction)
		authed.GET("/transactions/:id", h.getTransaction)
		authed.POST("/transactions/:id/actions", h.applyAction)
		authed.POST("/transactions/:id/cancel", h.cancelTransaction)
		authed.POST("/transactions/:id/complete", h.completeTransaction)

		authed.POST("/conversations", h.startConversation)
		authed.GET("/conversations", h.listConversations)
		authed.GET("/conversations/:id/messages", h.listMessages)
		authed.POST("/conversations/:id/messages", h.sendMessage)
		authed.POST("/messages/:id/respond", h.respondToOffer)
	}

	// browsers cannot set headers on a websocket upgrade
	v1.GET("/conversations/:id/ws", h.authMiddleware(true), h.conversationSocket)

	admin := v1.Group("/admin", h.adminMiddleware())
	{
		admin.GET("/transactions/export", h.exportTransactions)
		admin.PUT("/users/:id/trust-score", h.overrideTrustScore)
		admin.POST("/users/:id/trust-score/recompute", h.recomputeTrustScore)
	}
}

func (h *Handler) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-API-KEY"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range h.opts.AllowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = h.opts.AllowedOrigins
	return cfg
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every backing dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.opts.Readiness {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrProductSold),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrOfferNotPending),
		errors.Is(err, service.ErrKYCInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) renderError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
