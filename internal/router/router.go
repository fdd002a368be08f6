package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"disperse-backend/internal/config"
	"disperse-backend/internal/handlers"
	"disperse-backend/internal/middleware"
)

// Setup wires the HTTP surface: the five transaction endpoints under /api,
// plus health and metrics.
func Setup(h *handlers.DisperseHandler, cfg *config.Config) *gin.Engine {
	if !strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/disperse-eth", h.DisperseEth)
		api.POST("/disperse-erc20", h.DisperseErc20)
		api.POST("/collect-erc20", h.CollectErc20)
		api.POST("/transfer", h.Transfer)
		api.POST("/approve", h.Approve)
	}

	return r
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		switch {
		case len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*"):
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "":
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
