package api

import (
	"net/http"
	"time"

	authdelivery "kithbook-backend/internal/auth/delivery"
	authUsecase "kithbook-backend/internal/auth/usecase"
	contactdelivery "kithbook-backend/internal/contact/delivery"
	syncdelivery "kithbook-backend/internal/sync/delivery"
	"kithbook-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	authUsecase    authUsecase.AuthUsecase
	authHandler    *authdelivery.AuthHandler
	contactHandler *contactdelivery.ContactHandler
	syncHandler    *syncdelivery.SyncHandler
	config         *config.Config
	logger         *zap.Logger
}

func NewHandler(
	authUc authUsecase.AuthUsecase,
	contactHandler *contactdelivery.ContactHandler,
	syncHandler *syncdelivery.SyncHandler,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		authUsecase:    authUc,
		authHandler:    authdelivery.NewAuthHandler(authUc),
		contactHandler: contactHandler,
		syncHandler:    syncHandler,
		config:         cfg,
		logger:         logger.Named("http"),
	}
}

// Router builds the gin engine with middleware and every route
func (h *Handler) Router() *gin.Engine {
	if h.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(h.requestLogger())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

// Server wraps the router for graceful shutdown
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if userID := c.GetString("userID"); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			h.logger.Error("Request failed", fields...)
		default:
			h.logger.Debug("Request", fields...)
		}
	}
}
