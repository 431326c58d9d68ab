package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ecoppen/freqdash/internal/database"
	"github.com/ecoppen/freqdash/internal/exchange"
)

// Handler carries the dependencies the HTTP layer reads from. The exchange
// registry serves the live pass-through endpoints; everything else comes
// from the store.
type Handler struct {
	db       *database.PostgresDB
	redis    *database.RedisClient
	store    *database.Store
	registry *exchange.Registry
}

// NewHandler wires the HTTP layer. db and redis may be nil in tests; the
// health endpoint then reports those services as ok.
func NewHandler(db *database.PostgresDB, redis *database.RedisClient, store *database.Store, registry *exchange.Registry) *Handler {
	return &Handler{
		db:       db,
		redis:    redis,
		store:    store,
		registry: registry,
	}
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  Services  `json:"services"`
	System    System    `json:"system"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type System struct {
	CPUPct float64 `json:"cpu_pct"`
	RAMPct float64 `json:"ram_pct"`
}

// SetupRoutes registers every endpoint on the router.
func SetupRoutes(router *gin.Engine, h *Handler) {
	// Health check endpoint
	router.GET("/health", h.healthCheck)

	// Live exchange pass-through, same surface the dashboard widgets poll.
	router.GET("/getprice", h.getPrice)
	router.GET("/getprices", h.getPrices)
	router.GET("/getkline", h.getKline)
	router.GET("/getnews", h.getNews)

	// Dashboard read API over the canonical store.
	v1 := router.Group("/api/v1")
	{
		hosts := v1.Group("/hosts")
		{
			hosts.GET("", h.listHosts)
			hosts.GET("/:id", h.getHost)
			hosts.GET("/:id/trades", h.getHostTrades)
			hosts.GET("/:id/trades/:tradeID/orders", h.getTradeOrders)
			hosts.GET("/:id/balances", h.getHostBalances)
			hosts.GET("/:id/logs", h.getHostLogs)
		}
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Services: Services{
			Database: "ok",
			Redis:    "ok",
		},
	}

	// Check database health
	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}
	}

	// Check Redis health
	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}
	}

	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		response.System.CPUPct = pcts[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		response.System.RAMPct = vm.UsedPercent
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
