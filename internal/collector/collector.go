// Package collector polls the configured RSS feeds, deduplicates entries
// against the article store, enriches them with OGP images and category
// tags, embeds their text, and writes the batch.
package collector

import (
	"context"
	"time"

	"ownnews/internal/config"
	"ownnews/internal/core"
	"ownnews/internal/embed"
	"ownnews/internal/feeds"
	"ownnews/internal/logger"
	"ownnews/internal/taxonomy"
)

// embedBatchSize is the number of texts sent per embedding request.
const embedBatchSize = 50

// articleStore is the slice of the store the collector needs.
type articleStore interface {
	ExistingLinks(ctx context.Context) (map[string]struct{}, error)
	Upsert(ctx context.Context, articles []core.Article) error
	PendingEmbedding(ctx context.Context, limit int) ([]core.Article, error)
	UpdateEmbedding(ctx context.Context, articleID string, embedding []float64) error
}

// Collector runs one collection cycle over a fixed feed list.
type Collector struct {
	feeds    []string
	manager  *feeds.Manager
	ogp      *OGPFetcher
	embedder embed.Embedder
	store    articleStore
}

// Result summarizes one collection cycle.
type Result struct {
	Fetched  int `json:"fetched"`  // entries parsed across all feeds
	New      int `json:"new"`      // entries surviving deduplication
	Embedded int `json:"embedded"` // articles stored with an embedding
	Failed   int `json:"failed"`   // feeds that could not be fetched
}

// New builds a collector from configuration. The OGP fetcher is nil when
// image enrichment is disabled.
func New(cfg *config.Config, embedder embed.Embedder, store articleStore) *Collector {
	var ogp *OGPFetcher
	if cfg.Collector.OGPEnabled {
		ogp = NewOGPFetcher(config.Duration(cfg.Collector.OGPTimeout, 5*time.Second))
	}
	return &Collector{
		feeds:    cfg.Collector.Feeds,
		manager:  feeds.NewManager(config.Duration(cfg.Collector.Timeout, 30*time.Second), cfg.Collector.UserAgent),
		ogp:      ogp,
		embedder: embedder,
		store:    store,
	}
}

// Run performs one full collection cycle: fetch, dedupe, enrich, embed,
// store. A feed that fails to fetch is logged and skipped; the cycle
// continues with the remaining feeds.
func (c *Collector) Run(ctx context.Context) (Result, error) {
	var res Result

	known, err := c.store.ExistingLinks(ctx)
	if err != nil {
		return res, err
	}

	var fresh []core.Article
	seen := make(map[string]struct{})
	for _, feedURL := range c.feeds {
		articles, err := c.manager.Fetch(ctx, feedURL)
		if err != nil {
			logger.Warn("feed fetch failed", "source", feeds.SourceID(feedURL), "error", err)
			res.Failed++
			continue
		}
		res.Fetched += len(articles)

		for _, a := range articles {
			if _, ok := known[a.Link]; ok {
				continue
			}
			if _, ok := seen[a.Link]; ok {
				continue
			}
			seen[a.Link] = struct{}{}
			fresh = append(fresh, a)
		}
	}
	res.New = len(fresh)

	for i := range fresh {
		if c.ogp != nil {
			fresh[i].ImageURL = c.ogp.ImageURL(ctx, fresh[i].Link)
		}
		fresh[i].CategoryMedium = taxonomy.ClassifyMedium(fresh[i].Title, fresh[i].Category)
		fresh[i].CategoryMinor = taxonomy.ExtractMinorKeywords(fresh[i].Title)
	}

	for start := 0; start < len(fresh); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		batch := fresh[start:end]

		texts := make([]string, len(batch))
		for i, a := range batch {
			texts[i] = embed.EmbeddingText(a)
		}

		vecs, err := c.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			// Store the batch anyway; the end-of-run sweep (and every
			// following run) retries articles whose embedding is pending.
			logger.Error("embedding batch failed, storing without vectors",
				err, "batch", start/embedBatchSize)
		} else {
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			res.Embedded += len(batch)
		}

		if err := c.store.Upsert(ctx, batch); err != nil {
			return res, err
		}
	}

	swept, err := c.sweepPending(ctx)
	if err != nil {
		return res, err
	}
	res.Embedded += swept

	logger.Info("collection cycle complete",
		"fetched", res.Fetched, "new", res.New, "embedded", res.Embedded, "failed_feeds", res.Failed)
	return res, nil
}

// sweepPending retries articles stored without an embedding, whether from
// this cycle's failed batches or from earlier runs. A provider failure ends
// the sweep; the rows stay pending and the next run tries again.
func (c *Collector) sweepPending(ctx context.Context) (int, error) {
	swept := 0
	for {
		pending, err := c.store.PendingEmbedding(ctx, embedBatchSize)
		if err != nil {
			return swept, err
		}
		if len(pending) == 0 {
			return swept, nil
		}

		texts := make([]string, len(pending))
		for i, a := range pending {
			texts[i] = embed.EmbeddingText(a)
		}
		vecs, err := c.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			logger.Warn("pending sweep stopped, embedding still failing",
				"pending", len(pending), "error", err)
			return swept, nil
		}

		for i, a := range pending {
			if err := c.store.UpdateEmbedding(ctx, a.ID, vecs[i]); err != nil {
				return swept, err
			}
			swept++
		}
	}
}
