package trainings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	catalogCacheKey    = "catalog::all"
	catalogCacheExpire = 5 * 60 // seconds
)

type catalogRepo interface {
	Add(ctx context.Context, training Training) (*Training, error)
	Get(ctx context.Context, id int) (*Training, error)
	ListAll(ctx context.Context) ([]Training, error)
	Update(ctx context.Context, training *Training) error
	Delete(ctx context.Context, id int) error
}

// CachedRepo caches the training catalog in front of the DB repo. The
// catalog is small and changes rarely, while the karte aggregation reads
// it on every request.
type CachedRepo struct {
	repo  catalogRepo
	cache *freecache.Cache
}

func NewCachedRepo(repo catalogRepo) *CachedRepo {
	megabyte := 1024 * 1024
	return &CachedRepo{
		repo:  repo,
		cache: freecache.NewCache(1 * megabyte),
	}
}

func (c *CachedRepo) ListAll(ctx context.Context) ([]Training, error) {
	if cachedBytes, err := c.cache.Get([]byte(catalogCacheKey)); err == nil {
		var trainingsList []Training
		if err := json.Unmarshal(cachedBytes, &trainingsList); err == nil {
			return trainingsList, nil
		}
		log.Errorf("failed to unmarshal cached training catalog: %s", err)
	}

	trainingsList, err := c.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	catalogBytes, err := json.Marshal(trainingsList)
	if err != nil {
		log.Errorf("failed to marshal training catalog for cache: %s", err)
		return trainingsList, nil
	}
	if err := c.cache.Set([]byte(catalogCacheKey), catalogBytes, catalogCacheExpire); err != nil {
		log.Errorf("failed to set training catalog cache: %s", err)
	}

	return trainingsList, nil
}

// TrainingsMap returns the catalog keyed by training ID.
func (c *CachedRepo) TrainingsMap(ctx context.Context) (map[int]Training, error) {
	trainingsList, err := c.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trainings: %w", err)
	}
	trainingsMap := make(map[int]Training, len(trainingsList))
	for _, t := range trainingsList {
		trainingsMap[t.ID] = t
	}
	return trainingsMap, nil
}

func (c *CachedRepo) Get(ctx context.Context, id int) (*Training, error) {
	return c.repo.Get(ctx, id)
}

func (c *CachedRepo) Add(ctx context.Context, training Training) (*Training, error) {
	added, err := c.repo.Add(ctx, training)
	if err != nil {
		return nil, err
	}
	c.cache.Del([]byte(catalogCacheKey))
	return added, nil
}

func (c *CachedRepo) Update(ctx context.Context, training *Training) error {
	if err := c.repo.Update(ctx, training); err != nil {
		return err
	}
	c.cache.Del([]byte(catalogCacheKey))
	return nil
}

func (c *CachedRepo) Delete(ctx context.Context, id int) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.cache.Del([]byte(catalogCacheKey))
	return nil
}
