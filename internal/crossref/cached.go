package crossref

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

type Cache interface {
	GetCache(ctx context.Context, key string) ([]byte, error)
	SetCache(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// CachedClient remembers CrossRef answers, including "not registered".
// Errors are never cached.
type CachedClient struct {
	client Lookup
	cache  Cache
	ttl    time.Duration
}

func NewCachedClient(client Lookup, cache Cache, ttl time.Duration) *CachedClient {
	return &CachedClient{
		client: client,
		cache:  cache,
		ttl:    ttl,
	}
}

type cachedWork struct {
	Work     *Work `json:"work"`
	NotFound bool  `json:"not_found"`
}

func (c *CachedClient) GetWork(ctx context.Context, doi string) (*Work, error) {
	cacheKey := "crossref:work:" + domain.NormalizeDOI(doi)

	data, err := c.cache.GetCache(ctx, cacheKey)
	if err != nil {
		return nil, err
	}

	if data != nil {
		var cached cachedWork
		if unmarshalErr := json.Unmarshal(data, &cached); unmarshalErr == nil {
			return cached.Work, nil
		}
	}

	work, err := c.client.GetWork(ctx, doi)
	if err != nil {
		return nil, err
	}

	cached := cachedWork{Work: work, NotFound: work == nil}
	if data, marshalErr := json.Marshal(cached); marshalErr == nil {
		_ = c.cache.SetCache(ctx, cacheKey, data, c.ttl)
	}

	return work, nil
}
