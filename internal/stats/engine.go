package stats

import (
	"context"
	"sort"
	"time"

	"oticagest/backend/internal/cache"
	"oticagest/backend/internal/domain"
	"oticagest/backend/internal/store"
)

const cacheKey = "otica:dashboard:stats"

// Engine aggregates the dashboard numbers from the repository and keeps the
// result in a short-lived cache. Sale mutations must call Invalidate so the
// next read recomputes.
type Engine struct {
	repo     store.Repository
	cache    cache.StatsCache
	cacheTTL time.Duration
	window   time.Duration
}

func NewEngine(repo store.Repository, cacheStore cache.StatsCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopStatsCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Engine{
		repo:     repo,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		window:   30 * 24 * time.Hour,
	}
}

func (e *Engine) Stats(ctx context.Context, now time.Time) (*domain.DashboardStats, error) {
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		return cached, nil
	}

	from := now.Add(-e.window)
	sales, err := e.repo.ListSales(ctx, from, now, "", 0)
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{
		RecentSales: make([]domain.DashboardRecentSale, 0, 5),
		TopProducts: make([]domain.DashboardTopProduct, 0, 5),
		GeneratedAt: now.UTC(),
	}

	type productTally struct {
		name       string
		quantity   int
		totalCents int64
	}
	tallies := make(map[string]*productTally)

	for _, sale := range sales {
		if sale.Status == domain.SaleStatusCanceled {
			continue
		}
		stats.SalesCount++
		stats.TotalSalesCents += sale.TotalCents

		full, err := e.repo.GetSaleByID(ctx, sale.ID)
		if err != nil {
			return nil, err
		}
		for _, item := range full.Items {
			tally, ok := tallies[item.ProductID]
			if !ok {
				tally = &productTally{name: item.Description}
				tallies[item.ProductID] = tally
			}
			tally.quantity += item.Quantity
			tally.totalCents += int64(item.Quantity) * item.UnitPriceCents
		}

		if len(stats.RecentSales) < 5 {
			name := ""
			if sale.CustomerID != "" {
				customer, err := e.repo.GetCustomerByID(ctx, sale.CustomerID)
				if err == nil {
					name = customer.Name
				}
			}
			stats.RecentSales = append(stats.RecentSales, domain.DashboardRecentSale{
				ID:           sale.ID,
				CustomerName: name,
				Date:         sale.Date,
				TotalCents:   sale.TotalCents,
				Status:       sale.Status,
			})
		}
	}

	for id, tally := range tallies {
		stats.TopProducts = append(stats.TopProducts, domain.DashboardTopProduct{
			ProductID:  id,
			Name:       tally.name,
			Quantity:   tally.quantity,
			TotalCents: tally.totalCents,
		})
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		if stats.TopProducts[i].Quantity != stats.TopProducts[j].Quantity {
			return stats.TopProducts[i].Quantity > stats.TopProducts[j].Quantity
		}
		return stats.TopProducts[i].ProductID < stats.TopProducts[j].ProductID
	})
	if len(stats.TopProducts) > 5 {
		stats.TopProducts = stats.TopProducts[:5]
	}

	customerCount, err := e.repo.CountCustomers(ctx)
	if err != nil {
		return nil, err
	}
	stats.CustomerCount = customerCount

	lowStock, err := e.repo.ListLowStockProducts(ctx)
	if err != nil {
		return nil, err
	}
	stats.LowStockCount = len(lowStock)

	_ = e.cache.Set(ctx, cacheKey, stats, e.cacheTTL)
	return stats, nil
}

func (e *Engine) Invalidate(ctx context.Context) {
	_ = e.cache.Invalidate(ctx, cacheKey)
}
