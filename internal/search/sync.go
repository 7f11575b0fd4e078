package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"gorm.io/gorm"

	"github.com/kopf/radiostats/internal/models"
)

const bulkSize = 5000

// Syncer exports not-yet-synced plays to the search index in bulk
// batches, marking each batch synced once it has been flushed.
type Syncer struct {
	db    *gorm.DB
	es    *elasticsearch.Client
	index string
}

func NewSyncer(db *gorm.DB, es *elasticsearch.Client, index string) *Syncer {
	return &Syncer{db: db, es: es, index: index}
}

func (s *Syncer) Run(ctx context.Context) error {
	var total int64
	if err := s.db.Model(&models.Play{}).Where("synced = ?", false).Count(&total).Error; err != nil {
		return err
	}
	log.Printf("Found %d plays to be synced...", total)

	var processed int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var plays []models.Play
		err := s.db.Preload("Station").
			Preload("Song.Normalized.Tags").
			Where("synced = ?", false).
			Limit(bulkSize).
			Find(&plays).Error
		if err != nil {
			return err
		}
		if len(plays) == 0 {
			break
		}

		ids, err := s.flush(ctx, plays)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			// Nothing got marked synced, retrying would loop forever.
			return fmt.Errorf("indexed none of %d plays, aborting", len(plays))
		}

		err = s.db.Model(&models.Play{}).
			Where("id IN ?", ids).
			Update("synced", true).Error
		if err != nil {
			return err
		}

		processed += int64(len(ids))
		log.Printf("Done %d of %d", processed, total)
	}
	return nil
}

// flush bulk-indexes one batch and returns the ids that made it in.
func (s *Syncer) flush(ctx context.Context, plays []models.Play) ([]uint, error) {
	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: s.es,
		Index:  s.index,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bulk indexer: %w", err)
	}

	// Success callbacks fire from the indexer's worker goroutines.
	var mu sync.Mutex
	ids := make([]uint, 0, len(plays))
	for i := range plays {
		play := &plays[i]
		body, err := json.Marshal(BuildDocument(play))
		if err != nil {
			log.Printf("❌ Serializing play %d: %v", play.ID, err)
			continue
		}

		id := play.ID
		err = indexer.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: strconv.FormatUint(uint64(id), 10),
			Body:       bytes.NewReader(body),
			OnSuccess: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
				mu.Lock()
				ids = append(ids, id)
				mu.Unlock()
			},
			OnFailure: func(_ context.Context, _ esutil.BulkIndexerItem, resp esutil.BulkIndexerResponseItem, err error) {
				log.Printf("❌ Indexing play %d: %v %s", id, err, resp.Error.Reason)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("queueing play %d: %w", play.ID, err)
		}
	}

	if err := indexer.Close(ctx); err != nil {
		return nil, fmt.Errorf("flushing bulk indexer: %w", err)
	}
	if stats := indexer.Stats(); stats.NumFailed > 0 {
		log.Printf("⚠️ %d documents failed to index", stats.NumFailed)
	}
	return ids, nil
}
