package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// DefaultCollectionName is the default collection name for segment shapes
	DefaultCollectionName = "subpattern_segments"
)

// CollectionConfig holds configuration for creating a collection
type CollectionConfig struct {
	Name      string
	Dimension int // Vector dimension, equal to the normalizer's vector length
	Shards    int // Number of shards
	NList     int // IVF cluster count
}

// DefaultCollectionConfig returns default collection configuration
func DefaultCollectionConfig() CollectionConfig {
	return CollectionConfig{
		Name:      DefaultCollectionName,
		Dimension: 32,
		Shards:    2,
		NList:     128,
	}
}

// CreateCollection creates the segment collection
func (c *Client) CreateCollection(ctx context.Context, cfg CollectionConfig) error {
	// Check if collection already exists
	exists, err := c.HasCollection(ctx, cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil // Collection already exists
	}

	schema := &entity.Schema{
		CollectionName: cfg.Name,
		Description:    "Closed B-point segment shapes for similarity search",
		Fields: []*entity.Field{
			{
				Name:       "segment_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", cfg.Dimension),
				},
			},
			{
				Name:     "stock_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "start_date",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "end_date",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "duration_days",
				DataType: entity.FieldTypeInt32,
			},
			{
				Name:     "total_return",
				DataType: entity.FieldTypeFloat,
			},
			{
				Name:     "max_return",
				DataType: entity.FieldTypeFloat,
			},
			{
				Name:     "feature_version",
				DataType: entity.FieldTypeInt32,
			},
		},
	}

	err = c.conn.CreateCollection(ctx, schema, int32(cfg.Shards))
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// SegmentData holds data for writing a segment shape into Milvus
type SegmentData struct {
	SegmentID      string
	Embedding      []float32
	StockID        string
	StartDate      time.Time
	EndDate        time.Time
	DurationDays   int32
	Return         float32
	MaxReturn      float32
	FeatureVersion int32
}

// UpsertBatch writes segment shapes keyed by segment ID, so repeated runs do not duplicate them
func (c *Client) UpsertBatch(ctx context.Context, collectionName string, dataList []*SegmentData) error {
	if len(dataList) == 0 {
		return nil
	}

	// Prepare column data
	segmentIDs := make([]string, len(dataList))
	embeddings := make([][]float32, len(dataList))
	stockIDs := make([]string, len(dataList))
	startDates := make([]int64, len(dataList))
	endDates := make([]int64, len(dataList))
	durations := make([]int32, len(dataList))
	returns := make([]float32, len(dataList))
	maxReturns := make([]float32, len(dataList))
	versions := make([]int32, len(dataList))

	for i, d := range dataList {
		segmentIDs[i] = d.SegmentID
		embeddings[i] = d.Embedding
		stockIDs[i] = d.StockID
		startDates[i] = d.StartDate.Unix()
		endDates[i] = d.EndDate.Unix()
		durations[i] = d.DurationDays
		returns[i] = d.Return
		maxReturns[i] = d.MaxReturn
		versions[i] = d.FeatureVersion
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("segment_id", segmentIDs),
		entity.NewColumnFloatVector("embedding", len(embeddings[0]), embeddings),
		entity.NewColumnVarChar("stock_id", stockIDs),
		entity.NewColumnInt64("start_date", startDates),
		entity.NewColumnInt64("end_date", endDates),
		entity.NewColumnInt32("duration_days", durations),
		entity.NewColumnFloat("total_return", returns),
		entity.NewColumnFloat("max_return", maxReturns),
		entity.NewColumnInt32("feature_version", versions),
	}

	if _, err := c.conn.Upsert(ctx, collectionName, "", columns...); err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}

	return nil
}

// SearchResult represents a single search result
type SearchResult struct {
	SegmentID      string
	Score          float32
	StockID        string
	StartDate      time.Time
	EndDate        time.Time
	DurationDays   int32
	Return         float32
	MaxReturn      float32
	FeatureVersion int32
}

// Search performs a TopK cosine similarity search
func (c *Client) Search(ctx context.Context, collectionName string, embedding []float32, filter string, topK int) ([]SearchResult, error) {
	vectors := []entity.Vector{entity.FloatVector(embedding)}

	sp, err := entity.NewIndexIvfFlatSearchParam(16) // clusters searched per query
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	outputFields := []string{"segment_id", "stock_id", "start_date", "end_date", "duration_days", "total_return", "max_return", "feature_version"}

	results, err := c.conn.Search(
		ctx,
		collectionName,
		nil,          // partitions
		filter,       // expression filter
		outputFields, // output fields
		vectors,
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	searchResults := make([]SearchResult, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		result := SearchResult{
			Score: results[0].Scores[i],
		}

		for _, field := range results[0].Fields {
			switch col := field.(type) {
			case *entity.ColumnVarChar:
				val, _ := col.ValueByIdx(i)
				switch col.Name() {
				case "segment_id":
					result.SegmentID = val
				case "stock_id":
					result.StockID = val
				}
			case *entity.ColumnInt64:
				val, _ := col.ValueByIdx(i)
				switch col.Name() {
				case "start_date":
					result.StartDate = time.Unix(val, 0).UTC()
				case "end_date":
					result.EndDate = time.Unix(val, 0).UTC()
				}
			case *entity.ColumnInt32:
				val, _ := col.ValueByIdx(i)
				switch col.Name() {
				case "duration_days":
					result.DurationDays = val
				case "feature_version":
					result.FeatureVersion = val
				}
			case *entity.ColumnFloat:
				val, _ := col.ValueByIdx(i)
				switch col.Name() {
				case "total_return":
					result.Return = val
				case "max_return":
					result.MaxReturn = val
				}
			}
		}

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// Flush flushes the collection to ensure data persistence
func (c *Client) Flush(ctx context.Context, collectionName string) error {
	return c.conn.Flush(ctx, collectionName, false)
}
