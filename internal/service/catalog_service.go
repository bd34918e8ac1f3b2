package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/models"
)

const catalogCacheKey = "catalogs:v1"

// CatalogFetcher loads the lookup lists from the archive backend.
type CatalogFetcher interface {
	Statuses(ctx context.Context) ([]models.Status, error)
	DocumentTypes(ctx context.Context) ([]models.DocumentType, error)
	Legislations(ctx context.Context) ([]models.Legislation, error)
}

// CatalogService serves the status, document-type and legislation catalogs.
// The three lists change rarely and back every open form, so they are
// cached as one bundle.
type CatalogService struct {
	fetcher CatalogFetcher
	cache   *CacheService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCatalogService constructs a catalog service.
func NewCatalogService(fetcher CatalogFetcher, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CatalogService{fetcher: fetcher, cache: cache, ttl: ttl, logger: logger}
}

// Catalogs returns the full lookup bundle, from cache when possible. The
// three lists are fetched concurrently on a miss; any failure fails the
// whole bundle so a form never sees a partial catalog.
func (s *CatalogService) Catalogs(ctx context.Context) (models.Catalogs, error) {
	var bundle models.Catalogs
	if hit, err := s.cache.Get(ctx, catalogCacheKey, &bundle); err == nil && hit {
		return bundle, nil
	}

	var (
		wg       sync.WaitGroup
		stErr    error
		dtErr    error
		legErr   error
		statuses []models.Status
		types    []models.DocumentType
		legs     []models.Legislation
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		statuses, stErr = s.fetcher.Statuses(ctx)
	}()
	go func() {
		defer wg.Done()
		types, dtErr = s.fetcher.DocumentTypes(ctx)
	}()
	go func() {
		defer wg.Done()
		legs, legErr = s.fetcher.Legislations(ctx)
	}()
	wg.Wait()

	for _, err := range []error{stErr, dtErr, legErr} {
		if err != nil {
			return models.Catalogs{}, err
		}
	}

	bundle = models.Catalogs{Statuses: statuses, DocumentTypes: types, Legislations: legs}
	if err := s.cache.Set(ctx, catalogCacheKey, bundle, s.ttl); err != nil {
		s.logger.Warn("catalog cache write failed", zap.Error(err))
	}
	return bundle, nil
}

// Invalidate drops the cached bundle so the next read refetches.
func (s *CatalogService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, catalogCacheKey)
}
