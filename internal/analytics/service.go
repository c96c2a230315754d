// Package analytics folds the transaction log into reports, dashboards and
// stock alerts, caching results in Redis between appends.
package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

// Source is the read side of the ledger store.
type Source interface {
	Transactions() []ledger.Transaction
	Products() []masterdata.Product
}

// Service builds analytics views from a Source with a versioned cache in
// front of it.
type Service struct {
	source Source
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService wires a Source with a Cache helper. cache may be nil.
func NewService(source Source, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// Report returns the profitability report for f.
func (s *Service) Report(ctx context.Context, f Filter) (Report, error) {
	var out Report
	err := s.cached(ctx, keyReport(f), &out, func(context.Context) (any, error) {
		return BuildReport(s.source.Transactions(), f), nil
	})
	return out, err
}

// Dashboard returns the headline view.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	err := s.cached(ctx, keyDashboard(), &out, func(context.Context) (any, error) {
		return BuildDashboard(s.source.Transactions(), s.source.Products()), nil
	})
	return out, err
}

// LowStock reads current product stocks directly.
func (s *Service) LowStock(context.Context) []LowStockItem {
	return LowStock(s.source.Products())
}

// Transactions returns the log entries matching f, uncached.
func (s *Service) Transactions(f Filter) []ledger.Transaction {
	return FilterTransactions(s.source.Transactions(), f)
}

// Invalidate bumps the cache version.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warmup pre-builds the dashboard and the unfiltered report.
func (s *Service) Warmup(ctx context.Context) error {
	if _, err := s.Dashboard(ctx); err != nil {
		return err
	}
	_, err := s.Report(ctx, Filter{})
	return err
}

// HandleAppend invalidates cached views after a committed append.
func (s *Service) HandleAppend(ctx context.Context, outcome ledger.Outcome) {
	if err := s.Invalidate(ctx); err != nil {
		s.logger.Warn("analytics cache bump failed",
			slog.String("transaction_id", outcome.Transaction.ID),
			slog.Any("error", err))
	}
}

// HandleEntityChange invalidates cached views after a registry change.
func (s *Service) HandleEntityChange(ctx context.Context, kind masterdata.Kind, id string) {
	if kind != masterdata.KindProduct {
		return
	}
	if err := s.Invalidate(ctx); err != nil {
		s.logger.Warn("analytics cache bump failed", slog.String("product_id", id), slog.Any("error", err))
	}
}

func (s *Service) cached(ctx context.Context, parts []string, dest any, loader func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("analytics cache unavailable", slog.Any("error", err))
		key = strings.Join(parts, ":")
		return (*Cache)(nil).FetchJSON(ctx, key, dest, loader)
	}
	// Concurrent callers for the same version share one build.
	v, err, _ := s.group.Do(key, func() (any, error) {
		var raw json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return []byte(raw), nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dest)
}
