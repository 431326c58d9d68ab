package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecoppen/freqdash/internal/database"
	"github.com/ecoppen/freqdash/internal/models"
)

const defaultLogLimit = 100

// HostSummary is one dashboard row: the host record plus its aggregated
// trading record.
type HostSummary struct {
	models.Host
	ExchangeDisplay    string              `json:"exchange_display"`
	Stats              database.TradeStats `json:"stats"`
	DaysFromFirstTrade int64               `json:"days_from_first_trade"`
}

func (h *Handler) listHosts(c *gin.Context) {
	ctx := c.Request.Context()

	hosts, err := h.store.GetHosts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summaries := make([]HostSummary, 0, len(hosts))
	for _, host := range hosts {
		stats, err := h.store.GetTradeStats(ctx, host.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		summary := HostSummary{
			Host:            host,
			ExchangeDisplay: models.DisplayName(host.Exchange),
			Stats:           stats,
		}
		if stats.FirstTradeTS != nil {
			elapsed := time.Since(time.UnixMilli(*stats.FirstTradeTS))
			summary.DaysFromFirstTrade = int64(elapsed.Hours() / 24)
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"hosts": summaries})
}

func hostID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid host id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) getHost(c *gin.Context) {
	id, ok := hostID(c)
	if !ok {
		return
	}

	host, err := h.store.GetHost(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if host == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "host not found"})
		return
	}

	c.JSON(http.StatusOK, host)
}

func (h *Handler) getHostTrades(c *gin.Context) {
	id, ok := hostID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	var trades []models.Trade
	var err error
	switch c.DefaultQuery("status", "open") {
	case "open":
		trades, err = h.store.GetOpenTrades(c.Request.Context(), id)
	case "closed":
		trades, err = h.store.GetClosedTrades(c.Request.Context(), id, limit)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be open or closed"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (h *Handler) getTradeOrders(c *gin.Context) {
	id, ok := hostID(c)
	if !ok {
		return
	}

	tradeID, err := strconv.ParseInt(c.Param("tradeID"), 10, 64)
	if err != nil || tradeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade id"})
		return
	}

	orders, err := h.store.GetOrdersForTrade(c.Request.Context(), id, tradeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getHostBalances(c *gin.Context) {
	id, ok := hostID(c)
	if !ok {
		return
	}

	balances, err := h.store.GetBalances(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

func (h *Handler) getHostLogs(c *gin.Context) {
	id, ok := hostID(c)
	if !ok {
		return
	}

	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	logs, err := h.store.GetLogs(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
