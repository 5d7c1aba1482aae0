package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tunogya/subpattern/pkg/cache"
	"github.com/tunogya/subpattern/pkg/config"
	"github.com/tunogya/subpattern/pkg/data"
	"github.com/tunogya/subpattern/pkg/engine"
	"github.com/tunogya/subpattern/pkg/feature"
	"github.com/tunogya/subpattern/pkg/logger"
	"github.com/tunogya/subpattern/pkg/match"
	"github.com/tunogya/subpattern/pkg/queue/nats"
	"github.com/tunogya/subpattern/pkg/segment"
	"github.com/tunogya/subpattern/pkg/store/milvus"
)

func segmentConfig(cfg *config.Config) segment.Config {
	return segment.Config{
		MinDuration:    cfg.Segment.MinDuration,
		MinOpenBars:    cfg.Segment.MinOpenBars,
		FeatureVersion: cfg.Segment.FeatureVersion,
	}
}

func matchConfig(cfg *config.Config) match.Config {
	return match.Config{
		Threshold: cfg.Match.Threshold,
		TopK:      cfg.Match.TopK,
	}
}

func retryConfig(cfg *config.Config) data.RetryConfig {
	return data.RetryConfig{
		Attempts:  cfg.Provider.RetryAttempts,
		Delay:     cfg.Provider.RetryDelay,
		MaxDelay:  cfg.Provider.MaxDelay,
		PerMinute: cfg.Provider.RatePerMinute,
	}
}

// newFeatures builds the featurizer with Redis as its vector cache when enabled.
// An unreachable Redis degrades to the in-process cache.
func newFeatures(ctx context.Context, cfg *config.Config, log *logger.Logger) (*feature.CachedExtractor, func()) {
	extractor := feature.NewExtractor(cfg.Segment.FeatureVersion, cfg.Feature.VectorDim)

	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(ctx,
			cache.WithAddr(cfg.Redis.Addr),
			cache.WithPassword(cfg.Redis.Password),
			cache.WithDB(cfg.Redis.DB),
			cache.WithPrefix(cfg.Redis.Prefix),
		)
		if err == nil {
			log.Info("vector cache ready", logger.String("backend", "redis"), logger.String("addr", cfg.Redis.Addr))
			return feature.NewCachedExtractor(extractor, rc, cfg.Redis.TTL), func() { _ = rc.Close() }
		}
		log.Warn("redis unavailable, using in-process cache", logger.Error(err))
	}

	return feature.NewCachedExtractor(extractor, cache.NewMemoryCache(), cfg.Redis.TTL), func() {}
}

func newPipeline(cfg *config.Config, provider data.HistoryProvider, features *feature.CachedExtractor) *engine.Pipeline {
	return engine.NewPipeline(
		provider,
		segment.NewExtractor(segmentConfig(cfg)),
		features,
		match.NewMatcher(matchConfig(cfg)),
		cfg.Match.CrossStock,
	)
}

// openMilvus connects to Milvus and makes sure the segment collection is loaded
func openMilvus(ctx context.Context, cfg *config.Config) (*milvus.Client, *milvus.Index, error) {
	mc, err := milvus.NewClient(ctx, milvus.Config{
		Address:  cfg.Milvus.Address,
		Username: cfg.Milvus.Username,
		Password: cfg.Milvus.Password,
	})
	if err != nil {
		return nil, nil, err
	}

	coll := milvus.DefaultCollectionConfig()
	coll.Name = cfg.Milvus.Collection
	coll.Dimension = cfg.Feature.VectorDim
	coll.NList = cfg.Milvus.NList
	if err := mc.EnsureCollection(ctx, coll); err != nil {
		mc.Close()
		return nil, nil, fmt.Errorf("failed to prepare collection %s: %w", coll.Name, err)
	}

	return mc, milvus.NewIndex(mc, coll.Name, cfg.Match.Threshold), nil
}

// openNATS connects to NATS and makes sure the append stream exists
func openNATS(ctx context.Context, cfg *config.Config) (*nats.Client, error) {
	nc, err := nats.NewClient(nats.Config{
		URL:           cfg.NATS.URL,
		StreamName:    cfg.NATS.Stream,
		RetryAttempts: cfg.Provider.RetryAttempts,
		RetryDelay:    time.Second,
	})
	if err != nil {
		return nil, err
	}
	if err := nc.CreateStream(ctx, []string{nats.SubjectAll}); err != nil {
		nc.Close()
		return nil, err
	}
	return nc, nil
}
