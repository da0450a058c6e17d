package dataset

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"silver-dashboard/internal/models"
	"silver-dashboard/internal/observability"
)

// Paths identifies one set of static inputs and is the loader cache key.
type Paths struct {
	Prices       string
	Purchases    string
	Boundaries   string
	NameProperty string
}

// Store holds the loaded tables. It is never mutated after construction and
// may be shared by any number of readers; accessors return copies.
type Store struct {
	paths      Paths
	prices     []models.PriceRecord
	purchases  []models.PurchaseRecord
	boundaries []models.RegionFeature
	loadedAt   time.Time
}

func NewStore(prices []models.PriceRecord, purchases []models.PurchaseRecord, boundaries []models.RegionFeature) *Store {
	return &Store{
		prices:     slices.Clone(prices),
		purchases:  slices.Clone(purchases),
		boundaries: slices.Clone(boundaries),
		loadedAt:   time.Now(),
	}
}

func (s *Store) Prices() []models.PriceRecord       { return slices.Clone(s.prices) }
func (s *Store) Purchases() []models.PurchaseRecord { return slices.Clone(s.purchases) }
func (s *Store) Boundaries() []models.RegionFeature { return slices.Clone(s.boundaries) }
func (s *Store) Paths() Paths                       { return s.paths }
func (s *Store) LoadedAt() time.Time                { return s.loadedAt }

// Loader loads the three static inputs and caches the result per Paths for
// its own lifetime. Inputs are static, so there is no invalidation.
type Loader struct {
	mu     sync.Mutex
	cache  map[Paths]*Store
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		cache:  make(map[Paths]*Store),
		logger: logger,
	}
}

func (l *Loader) Load(ctx context.Context, paths Paths) (*Store, error) {
	if paths.NameProperty == "" {
		paths.NameProperty = DefaultNameProperty
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if store, ok := l.cache[paths]; ok {
		l.logger.Debug("datasets served from cache", "prices", paths.Prices)
		return store, nil
	}

	ctx, span := observability.StartSpan(ctx, "dataset.load")
	defer span.Finish(l.logger)

	start := time.Now()

	var (
		prices     []models.PriceRecord
		purchases  []models.PurchaseRecord
		boundaries []models.RegionFeature
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		prices, err = LoadPrices(paths.Prices)
		return err
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		purchases, err = LoadPurchases(paths.Purchases)
		return err
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		boundaries, err = LoadBoundaries(paths.Boundaries, paths.NameProperty)
		return err
	})

	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	store := &Store{
		paths:      paths,
		prices:     prices,
		purchases:  purchases,
		boundaries: boundaries,
		loadedAt:   time.Now(),
	}
	l.cache[paths] = store

	l.logger.Info("datasets loaded",
		"prices", len(prices),
		"purchases", len(purchases),
		"regions", len(boundaries),
		"duration", time.Since(start),
	)

	return store, nil
}
