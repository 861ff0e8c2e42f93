package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/archiva-labs/doclib/internal/config"
	"github.com/archiva-labs/doclib/internal/index"
	"github.com/archiva-labs/doclib/internal/openai"
	"github.com/archiva-labs/doclib/internal/repository"
	"github.com/archiva-labs/doclib/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	openaigo "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// RebuildIndexCmd returns the rebuild-index command
func RebuildIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-index",
		Short: "Rebuild the embedding index from the database",
		Long:  "Rebuilds the in-memory embedding index from stored chunks and writes a fresh snapshot. Use after snapshot corruption or an embedding model change.",
		RunE:  runRebuildIndex,
	}
}

func runRebuildIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      openaigo.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	memIndex := index.NewMemory(embeddingClient.Dimensions(), embeddingClient.ModelVersion())

	ingestionSvc := service.NewIngestionService(
		repository.NewDocumentRepository(pool),
		repository.NewChunkRepository(pool),
		embeddingClient,
		memIndex,
		service.NewQueryCache(cfg.CacheTTL),
		service.ChunkConfig{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
		cfg.IndexPath,
	)

	n, err := ingestionSvc.RebuildIndex(ctx)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	log.Printf("index rebuilt: %d chunks across %d documents, snapshot written to %s", n, memIndex.DocumentCount(), cfg.IndexPath)
	return nil
}
