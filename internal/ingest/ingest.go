package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// embedBatchSize bounds how many chunk texts go to the embedder per call.
const embedBatchSize = 64

// Ingester handles document ingestion: chunk, embed, upsert.
type Ingester struct {
	embedder contracts.EmbeddingDriver
	vectorDB contracts.VectorStoreDriver
	chunker  ChunkerConfig
	logger   zerolog.Logger
}

// New creates a document ingester.
func New(embedder contracts.EmbeddingDriver, vectorDB contracts.VectorStoreDriver, chunker ChunkerConfig, logger zerolog.Logger) *Ingester {
	return &Ingester{
		embedder: embedder,
		vectorDB: vectorDB,
		chunker:  chunker,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

// Ingest splits documents into chunks, embeds them, and upserts the vectors.
// Re-ingesting a document with the same ID replaces its previous chunks.
func (ing *Ingester) Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error) {
	start := time.Now()

	if len(req.Documents) == 0 {
		return &models.IngestResult{}, nil
	}

	config := ing.chunker
	if req.ChunkSize > 0 {
		config.ChunkSize = req.ChunkSize
	}
	if req.Overlap > 0 {
		config.Overlap = req.Overlap
	}

	type pending struct {
		text     string
		sourceID string
		metadata map[string]string
	}

	var all []pending
	for _, doc := range req.Documents {
		sourceID := doc.ID
		if sourceID == "" {
			sourceID = uuid.NewString()
		} else if err := ing.vectorDB.DeleteBySource(ctx, sourceID); err != nil {
			return nil, fmt.Errorf("replace document %s: %w", sourceID, err)
		}

		for _, chunk := range ChunkText(doc.Content, config) {
			metadata := map[string]string{"chunk_index": fmt.Sprintf("%d", chunk.Index)}
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			all = append(all, pending{text: chunk.Text, sourceID: sourceID, metadata: metadata})
		}
	}

	ing.logger.Info().Int("documents", len(req.Documents)).Int("chunks", len(all)).Msg("📄 Chunking complete")

	var vectors [][]float32
	for i := 0; i < len(all); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(all) {
			end = len(all)
		}
		texts := make([]string, 0, end-i)
		for _, p := range all[i:end] {
			texts = append(texts, p.text)
		}
		batch, err := ing.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}
		vectors = append(vectors, batch...)
	}

	if len(vectors) != len(all) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(all))
	}

	chunks := make([]contracts.VectorChunk, len(all))
	for i, p := range all {
		chunks[i] = contracts.VectorChunk{
			ID:       uuid.NewString(),
			SourceID: p.sourceID,
			Content:  p.text,
			Vector:   vectors[i],
			Metadata: p.metadata,
		}
	}

	if err := ing.vectorDB.Upsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("upsert vectors: %w", err)
	}

	elapsed := time.Since(start)
	ing.logger.Info().
		Int("documents", len(req.Documents)).
		Int("chunks", len(chunks)).
		Dur("elapsed", elapsed).
		Msg("✅ Ingestion complete")

	return &models.IngestResult{
		DocumentsIngested: len(req.Documents),
		ChunksIndexed:     len(chunks),
		ElapsedMs:         elapsed.Milliseconds(),
	}, nil
}
