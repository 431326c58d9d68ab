package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecoppen/freqdash/internal/database"
	"github.com/ecoppen/freqdash/internal/exchange"
	"github.com/ecoppen/freqdash/internal/freqtrade"
	"github.com/ecoppen/freqdash/internal/models"
	"github.com/ecoppen/freqdash/internal/tunnel"
)

// Scraper reconciles the canonical store against the remote bot instances
// and the public exchange APIs. One cycle walks every instance over its
// tunnel, then refreshes price snapshots and news.
type Scraper struct {
	store       *database.Store
	cache       *database.RedisClient
	registry    *exchange.Registry
	tunnels     []*tunnel.Tunnel
	newsSources []string
	interval    time.Duration
}

// New builds a scraper. cache may be nil; newsSources names the exchanges
// whose announcement feeds are collected each cycle.
func New(store *database.Store, cache *database.RedisClient, registry *exchange.Registry, tunnels []*tunnel.Tunnel, newsSources []string, interval time.Duration) *Scraper {
	return &Scraper{
		store:       store,
		cache:       cache,
		registry:    registry,
		tunnels:     tunnels,
		newsSources: newsSources,
		interval:    interval,
	}
}

// Run executes one cycle immediately and then keeps cycling on the
// configured interval until the context is cancelled.
func (s *Scraper) Run(ctx context.Context) {
	s.Cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cycle(ctx)
		}
	}
}

// Cycle runs one full reconciliation pass. Failures are contained per
// instance and per exchange; the cycle always runs to completion.
func (s *Scraper) Cycle(ctx context.Context) {
	log := logrus.WithField("cycle", uuid.NewString())
	started := time.Now()
	log.Info("Reconciliation cycle started")

	for _, tun := range s.tunnels {
		if err := s.scrapeInstance(ctx, log, tun); err != nil {
			log.WithError(err).WithField("host", tun.SSHAddress()).Warn("Instance scrape failed")
		}
	}

	s.snapshotPrices(ctx, log)
	s.collectNews(ctx, log)

	log.WithField("elapsed", time.Since(started).String()).Info("Reconciliation cycle finished")
}

// scrapeInstance brings the tunnel up for the duration of one instance
// pass. The tunnel binds a fresh local port on every start, so the client
// is rebuilt each time.
func (s *Scraper) scrapeInstance(ctx context.Context, log *logrus.Entry, tun *tunnel.Tunnel) error {
	if err := tun.Start(); err != nil {
		return fmt.Errorf("failed to start tunnel: %w", err)
	}
	defer tun.Stop()

	client := freqtrade.NewClient(tun.LocalURL(), tun.APIUsername(), tun.APIPassword())
	defer client.ClearToken()

	return s.reconcile(ctx, log, client, tun.SSHAddress(), tun.RemoteAddress())
}

// reconcile runs the per-instance state machine: identify the bot, upsert
// its host row, then pull trades, health, balances, logs and pair lists.
// Anything after the host upsert degrades to a logged warning so one bad
// endpoint does not discard the rest of the pass.
func (s *Scraper) reconcile(ctx context.Context, log *logrus.Entry, client *freqtrade.Client, host, remoteHost string) error {
	// A broken token endpoint is not fatal: the client keeps reading over
	// basic auth with the sentinel token in place.
	if token := client.Login(ctx); token == freqtrade.NoToken {
		log.WithField("host", remoteHost).Warn("No jwt retrieved, continuing over basic auth")
	}

	cfg, err := client.ShowConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch config: %w", err)
	}
	if cfg.Version == "" {
		return errors.New("instance reported no version")
	}

	hostID, err := s.store.UpsertHost(ctx, models.Host{
		Host:            host,
		RemoteHost:      remoteHost,
		Exchange:        cfg.Exchange,
		Strategy:        cfg.Strategy,
		State:           cfg.State,
		StakeCurrency:   cfg.StakeCurrency,
		TradingMode:     cfg.TradingMode,
		RunMode:         cfg.RunMode,
		BotVersion:      cfg.Version,
		StrategyVersion: cfg.StrategyVersion,
	})
	if err != nil {
		return err
	}

	log = log.WithFields(logrus.Fields{"host": host, "host_id": hostID})

	if sys, err := client.GetSysinfo(ctx); err != nil {
		log.WithError(err).Warn("Failed to fetch sysinfo")
	} else if err := s.store.AddSysinfo(ctx, models.SysInfo{
		HostID: hostID,
		CPUPct: joinCPU(sys.CPUPct),
		RAMPct: sys.RAMPct,
	}); err != nil {
		log.WithError(err).Warn("Failed to store sysinfo")
	}

	s.reconcileTrades(ctx, log, client, hostID)

	if health, err := client.GetHealth(ctx); err != nil {
		log.WithError(err).Warn("Failed to fetch health")
	} else if health.LastProcessTS != nil {
		if err := s.store.AttachLastProcessTS(ctx, hostID, *health.LastProcessTS); err != nil {
			log.WithError(err).Warn("Failed to store last process timestamp")
		}
	}

	s.reconcileBalance(ctx, log, client, hostID)
	s.reconcileLogs(ctx, log, client, hostID)
	s.reconcileBaseLists(ctx, log, client, hostID)

	if locks, err := client.GetLocks(ctx); err != nil {
		log.WithError(err).Warn("Failed to fetch locks")
	} else if len(locks) > 0 {
		log.WithField("locks", len(locks)).Info("Instance holds pair locks")
	}

	return nil
}

// reconcileTrades pulls closed trades incrementally from the oldest stored
// open trade id, then refreshes the open set. Both go through the same
// upsert so a trade that closed since the last cycle flips in place.
func (s *Scraper) reconcileTrades(ctx context.Context, log *logrus.Entry, client *freqtrade.Client, hostID int64) {
	offset, err := s.store.GetOldestOpenTradeID(ctx, hostID)
	if err != nil {
		log.WithError(err).Warn("Failed to determine trade offset")
		return
	}

	closed, err := client.GetClosedTrades(ctx, offset)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch closed trades")
	} else if err := s.store.UpsertTrades(ctx, hostID, closed); err != nil {
		log.WithError(err).Warn("Failed to store closed trades")
	} else {
		log.WithFields(logrus.Fields{"offset": offset, "trades": len(closed)}).Debug("Closed trades reconciled")
	}

	open, err := client.GetOpenTrades(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch open trades")
		return
	}
	if err := s.store.UpsertTrades(ctx, hostID, open); err != nil {
		log.WithError(err).Warn("Failed to store open trades")
	}
}

func (s *Scraper) reconcileBalance(ctx context.Context, log *logrus.Entry, client *freqtrade.Client, hostID int64) {
	balance, err := client.GetBalance(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch balance")
		return
	}

	balances := make([]models.Balance, 0, len(balance.Currencies))
	for _, c := range balance.Currencies {
		balances = append(balances, models.Balance{
			HostID:   hostID,
			Currency: c.Currency,
			Free:     c.Free,
			Balance:  c.Balance,
		})
	}
	if err := s.store.ReplaceBalances(ctx, hostID, balances); err != nil {
		log.WithError(err).Warn("Failed to store balances")
	}

	if balance.StartingCapital != nil {
		if err := s.store.UpdateStartingCapital(ctx, hostID, *balance.StartingCapital); err != nil {
			log.WithError(err).Warn("Failed to store starting capital")
		}
	}
}

func (s *Scraper) reconcileLogs(ctx context.Context, log *logrus.Entry, client *freqtrade.Client, hostID int64) {
	lines, err := client.GetLogs(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch logs")
		return
	}

	entries := make([]models.LogEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, models.LogEntry{
			HostID:    hostID,
			Timestamp: line.Timestamp,
			Name:      line.Name,
			Level:     line.Level,
			Message:   line.Message,
		})
	}

	inserted, err := s.store.AppendLogs(ctx, hostID, entries)
	if err != nil {
		log.WithError(err).Warn("Failed to store logs")
		return
	}
	log.WithField("inserted", inserted).Debug("Logs reconciled")
}

func (s *Scraper) reconcileBaseLists(ctx context.Context, log *logrus.Entry, client *freqtrade.Client, hostID int64) {
	if whitelist, err := client.GetWhitelist(ctx); err != nil {
		log.WithError(err).Warn("Failed to fetch whitelist")
	} else if err := s.store.ReplaceBaseList(ctx, hostID, models.ListTypeWhite, whitelist); err != nil {
		log.WithError(err).Warn("Failed to store whitelist")
	}

	if blacklist, err := client.GetBlacklist(ctx); err != nil {
		log.WithError(err).Warn("Failed to fetch blacklist")
	} else if err := s.store.ReplaceBaseList(ctx, hostID, models.ListTypeBlack, blacklist); err != nil {
		log.WithError(err).Warn("Failed to store blacklist")
	}
}

// snapshotPrices refreshes the price table for every (exchange, trading
// mode) pair currently present in hosts. An empty ticker set is treated as
// a failed fetch and leaves the previous snapshot in place.
func (s *Scraper) snapshotPrices(ctx context.Context, log *logrus.Entry) {
	modes, err := s.store.GetHostsAndModes(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to list hosts and modes")
		return
	}

	for exchangeName, tradingModes := range modes {
		adapter, ok := s.registry.Get(models.ExchangeName(strings.ToLower(exchangeName)))
		if !ok {
			log.WithField("exchange", exchangeName).Warn("No adapter for exchange")
			continue
		}

		for _, mode := range tradingModes {
			var tickers []models.Ticker
			var err error
			switch strings.ToLower(mode) {
			case "spot":
				tickers, err = adapter.SpotPrices(ctx)
			case "futures", "margin":
				tickers, err = adapter.FuturesPrices(ctx)
			default:
				continue
			}

			entry := log.WithFields(logrus.Fields{"exchange": exchangeName, "trading_mode": mode})
			if err != nil {
				entry.WithError(err).Warn("Price snapshot fetch failed")
				continue
			}
			if len(tickers) == 0 {
				entry.Warn("Price snapshot empty, keeping previous")
				continue
			}

			if err := s.store.ReplacePrices(ctx, string(adapter.Name()), strings.ToLower(mode), tickers); err != nil {
				entry.WithError(err).Warn("Failed to store price snapshot")
				continue
			}
			s.invalidatePriceCache(ctx, entry, string(adapter.Name()), mode)
			entry.WithField("symbols", len(tickers)).Debug("Price snapshot stored")
		}
	}
}

// invalidatePriceCache drops the cached /getprices response for the
// exchange and market a fresh snapshot just replaced.
func (s *Scraper) invalidatePriceCache(ctx context.Context, log *logrus.Entry, exchangeName, mode string) {
	if s.cache == nil {
		return
	}
	market := models.MarketFutures
	if strings.EqualFold(mode, "spot") {
		market = models.MarketSpot
	}
	if err := s.cache.Delete(ctx, database.PriceCacheKey(exchangeName, market)); err != nil {
		log.WithError(err).Warn("Failed to invalidate price cache")
	}
}

// collectNews replaces the stored announcements for each configured source
// exchange.
func (s *Scraper) collectNews(ctx context.Context, log *logrus.Entry) {
	for _, name := range s.newsSources {
		entry := log.WithField("exchange", name)

		adapter, ok := s.registry.Get(models.ExchangeName(strings.ToLower(name)))
		if !ok {
			entry.Warn("No adapter for news source")
			continue
		}
		source, ok := adapter.(exchange.NewsSource)
		if !ok {
			entry.Warn("Exchange has no announcement feed")
			continue
		}

		items, err := source.News(ctx)
		if err != nil {
			entry.WithError(err).Warn("News fetch failed")
			continue
		}
		if len(items) == 0 {
			entry.Warn("News fetch empty, keeping previous")
			continue
		}

		if err := s.store.ReplaceNews(ctx, strings.ToLower(name), items); err != nil {
			entry.WithError(err).Warn("Failed to store news")
			continue
		}
		entry.WithField("items", len(items)).Debug("News stored")
	}
}

// joinCPU flattens the per-core utilisation sample into the stored string
// form, one value per core.
func joinCPU(pcts []float64) string {
	parts := make([]string, 0, len(pcts))
	for _, pct := range pcts {
		parts = append(parts, strconv.FormatFloat(pct, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}
