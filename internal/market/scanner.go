package market

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"arcade-book/internal/config"
	"arcade-book/pkg/types"
)

// Scanner periodically polls the market API to decide which markets get a
// live book. Markets are kept while active (titled, unresolved) and deployed
// on chain, then ranked by volume. The engine reads ScanResults from the
// Results() channel and starts/stops market goroutines to match.
//
// With scanner.market_app_ids configured the scanner emits that fixed set once
// and never calls the API.

// MarketLister is the part of the market API the scanner needs.
type MarketLister interface {
	GetMarkets(ctx context.Context) ([]types.Market, error)
}

// ScanResult contains the markets to track, best first.
type ScanResult struct {
	Markets   []types.TrackedMarket
	ScannedAt time.Time
}

// Scanner periodically polls the market list.
type Scanner struct {
	api      MarketLister         // nil when tracking static app ids
	cfg      config.ScannerConfig // filters + poll interval
	logger   *slog.Logger
	resultCh chan ScanResult // engine reads selected markets from here
}

// NewScanner creates a market scanner.
func NewScanner(cfg config.ScannerConfig, api MarketLister, logger *slog.Logger) *Scanner {
	return &Scanner{
		api:      api,
		cfg:      cfg,
		logger:   logger.With("component", "scanner"),
		resultCh: make(chan ScanResult, 1),
	}
}

// Results returns the channel the engine reads from.
func (s *Scanner) Results() <-chan ScanResult {
	return s.resultCh
}

// Run starts the polling loop. Blocks until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	if len(s.cfg.MarketAppIDs) > 0 {
		s.publish(ScanResult{Markets: staticMarkets(s.cfg.MarketAppIDs), ScannedAt: time.Now()})
		s.logger.Info("tracking static markets", "count", len(s.cfg.MarketAppIDs))
		<-ctx.Done()
		return
	}

	// Do an immediate scan on startup
	s.scan(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scanner) scan(ctx context.Context) {
	markets, err := s.api.GetMarkets(ctx)
	if err != nil {
		s.logger.Error("scan failed", "error", err)
		return
	}

	filtered := s.filterMarkets(markets)
	ranked := rankMarkets(filtered)

	if s.cfg.MaxMarkets > 0 && len(ranked) > s.cfg.MaxMarkets {
		ranked = ranked[:s.cfg.MaxMarkets]
	}

	s.logger.Info("scan complete",
		"total", len(markets),
		"filtered", len(filtered),
		"selected", len(ranked),
	)
	s.publish(ScanResult{Markets: ranked, ScannedAt: time.Now()})
}

// publish delivers a result, replacing one the engine has not read yet.
func (s *Scanner) publish(result ScanResult) {
	select {
	case s.resultCh <- result:
	default:
		select {
		case <-s.resultCh:
		default:
		}
		s.resultCh <- result
	}
}

// filterMarkets drops markets that cannot have a book (inactive, or not yet
// deployed on chain), applies the include/exclude lists and the volume floor.
// List entries match either the platform id or the decimal app id.
func (s *Scanner) filterMarkets(markets []types.Market) []types.Market {
	include := idSet(s.cfg.IncludeIDs)
	exclude := idSet(s.cfg.ExcludeIDs)

	var result []types.Market
	for _, m := range markets {
		if !m.Active() || m.MarketAppID == 0 {
			continue
		}

		appID := strconv.FormatUint(m.MarketAppID, 10)
		id := strings.ToLower(m.ID)
		if len(include) > 0 && !include[id] && !include[appID] {
			continue
		}
		if exclude[id] || exclude[appID] {
			continue
		}
		if m.Volume < s.cfg.MinVolume {
			continue
		}

		result = append(result, m)
	}
	return result
}

// rankMarkets orders markets by volume, highest first. Ties keep the app id
// order so repeated scans select the same set.
func rankMarkets(markets []types.Market) []types.TrackedMarket {
	sorted := make([]types.Market, len(markets))
	copy(sorted, markets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Volume != sorted[j].Volume {
			return sorted[i].Volume > sorted[j].Volume
		}
		return sorted[i].MarketAppID < sorted[j].MarketAppID
	})

	result := make([]types.TrackedMarket, len(sorted))
	for i, m := range sorted {
		result[i] = types.TrackedMarket{
			AppID:    m.MarketAppID,
			MarketID: m.ID,
			Title:    m.Title,
			Volume:   m.Volume,
		}
	}
	return result
}

func staticMarkets(appIDs []uint64) []types.TrackedMarket {
	seen := make(map[uint64]bool, len(appIDs))
	result := make([]types.TrackedMarket, 0, len(appIDs))
	for _, id := range appIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, types.TrackedMarket{AppID: id})
	}
	return result
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			set[id] = true
		}
	}
	return set
}
