// Package visioncache caches structured vision answers in the key-value store.
package visioncache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/db"
	"github.com/kailas-cloud/refurnish/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "vision_cache:"

// store is the consumer interface for the answer cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedClient caches Analyze answers. Render always reaches the provider.
type CachedClient struct {
	inner      domain.VisionClient
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "task" and "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.VisionClient,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedClient {
	return &CachedClient{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Analyze returns a cached answer or calls the inner client.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
func (c *CachedClient) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	key := cacheKey(req)
	task := string(req.Task)

	if raw, ok := c.getFromCache(ctx, key); ok {
		c.incCache(task, "hit")
		return domain.AnalysisResult{Raw: raw}, nil
	}
	c.incCache(task, "miss")

	result, err := c.inner.Analyze(ctx, req)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyze: %w", err)
	}

	if json.Valid(result.Raw) {
		c.putToCache(ctx, key, result.Raw)
	}
	return result, nil
}

// Render passes through; edited images are never cached.
func (c *CachedClient) Render(ctx context.Context, req domain.RenderRequest) (domain.RenderResult, error) {
	return c.inner.Render(ctx, req)
}

func (c *CachedClient) incCache(task, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(task, result).Inc()
	}
}

func (c *CachedClient) getFromCache(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached vision answer", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if !json.Valid(data) {
		c.logger.Warn("Ignoring malformed cached vision answer", zap.String("key", key))
		return nil, false
	}
	return data, true
}

func (c *CachedClient) putToCache(ctx context.Context, key string, raw []byte) {
	if err := c.store.SetWithTTL(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("Failed to cache vision answer", zap.String("key", key), zap.Error(err))
	}
}

// cacheKey hashes every input that shapes the answer. Fields are length-prefixed
// so adjacent values cannot collide.
func cacheKey(req domain.AnalysisRequest) string {
	h := sha256.New()
	writeField(h, []byte(req.Task))
	writeField(h, []byte(req.Instruction))
	var temp [4]byte
	binary.LittleEndian.PutUint32(temp[:], math.Float32bits(req.Temperature))
	h.Write(temp[:])
	for _, img := range req.Images {
		writeField(h, []byte(img.MIMEType))
		if len(img.Data) > 0 {
			writeField(h, img.Data)
		} else {
			writeField(h, []byte(img.Path))
		}
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, b []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}
