package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/archiva-labs/doclib/internal/api/handlers"
	"github.com/archiva-labs/doclib/internal/config"
	"github.com/archiva-labs/doclib/internal/extract"
	"github.com/archiva-labs/doclib/internal/index"
	"github.com/archiva-labs/doclib/internal/jobs"
	"github.com/archiva-labs/doclib/internal/openai"
	"github.com/archiva-labs/doclib/internal/repository"
	"github.com/archiva-labs/doclib/internal/server"
	"github.com/archiva-labs/doclib/internal/service"
	"github.com/archiva-labs/doclib/internal/storage"
	"github.com/archiva-labs/doclib/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	openaigo "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the doclib API server and the background ingest worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("DOCLIB_OPENAI_API_KEY is required")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	queryRepo := repository.NewQueryRepository(pool)
	ingestJobRepo := repository.NewIngestJobRepository(pool)

	var objectStore service.ObjectStorage
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		objectStore = s3Client
	} else {
		log.Println("S3 not configured, document uploads disabled")
		objectStore = &noOpStorage{}
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      openaigo.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	generationClient := openai.NewGenerationClientWithConfig(openai.GenerationConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.ChatModel,
	})

	memIndex := index.NewMemory(embeddingClient.Dimensions(), embeddingClient.ModelVersion())
	queryCache := service.NewQueryCache(cfg.CacheTTL)

	ingestionSvc := service.NewIngestionService(
		documentRepo,
		chunkRepo,
		embeddingClient,
		memIndex,
		queryCache,
		service.ChunkConfig{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
		cfg.IndexPath,
	)

	if err := loadOrRebuildIndex(ctx, memIndex, ingestionSvc, cfg.IndexPath); err != nil {
		return err
	}

	documentSvc := service.NewDocumentService(documentRepo, ingestJobRepo, objectStore, ingestionSvc, cfg.MaxFileSize)

	retriever := service.NewRetriever(embeddingClient, memIndex, service.RetrieverConfig{
		SimilarityFloor: float32(cfg.SimilarityFloor),
	})
	synthesizer := service.NewSynthesizer(&generationAdapter{client: generationClient}, service.SynthesizerConfig{
		ContextBudget: cfg.ContextBudget,
	})
	querySvc := service.NewQueryService(retriever, synthesizer, queryCache, queryRepo)

	ingestProcessor := jobs.NewIngestWorker(ingestJobRepo, documentRepo, objectStore, extract.NewExtractor(), ingestionSvc)
	ingestWorker := jobs.NewWorker(ingestProcessor, cfg.WorkerPollInterval)
	go ingestWorker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler:  handlers.NewDocumentHandler(documentSvc),
		QueryHandler:     handlers.NewQueryHandler(querySvc),
		AnalyticsHandler: handlers.NewAnalyticsHandler(querySvc, documentSvc, memIndex),
		HealthHandler:    handlers.NewHealthHandler(pool),
		MaxBodyBytes:     cfg.MaxFileSize + 1024*1024,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ingestWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// loadOrRebuildIndex restores the index from its snapshot, falling back to
// a full rebuild from the database when the snapshot is missing, corrupt,
// or was built with a different embedding configuration.
func loadOrRebuildIndex(ctx context.Context, memIndex *index.Memory, ingestionSvc *service.IngestionService, path string) error {
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create index directory: %w", err)
			}
		}
	}

	err := memIndex.Load(path)
	if err == nil {
		log.Printf("index snapshot loaded: %d chunks across %d documents", memIndex.Len(), memIndex.DocumentCount())
		return nil
	}
	if !errors.Is(err, index.ErrNoSnapshot) {
		log.Printf("index snapshot unusable (%v), rebuilding from database", err)
	}

	n, err := ingestionSvc.RebuildIndex(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	log.Printf("index rebuilt from database: %d chunks", n)
	return nil
}

// generationAdapter bridges the OpenAI generation client to the synthesizer
type generationAdapter struct {
	client *openai.GenerationClient
}

func (a *generationAdapter) Generate(ctx context.Context, question, contextText string) (string, bool, error) {
	result, err := a.client.Generate(ctx, question, contextText)
	if err != nil {
		return "", false, err
	}
	return result.Text, result.LowConfidence, nil
}

func (a *generationAdapter) Model() string {
	return a.client.Model()
}

// noOpStorage rejects storage operations when S3 is not configured
type noOpStorage struct{}

func (s *noOpStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return fmt.Errorf("storage not configured: DOCLIB_S3_ENDPOINT required")
}

func (s *noOpStorage) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("storage not configured: DOCLIB_S3_ENDPOINT required")
}

func (s *noOpStorage) Delete(ctx context.Context, key string) error {
	return fmt.Errorf("storage not configured: DOCLIB_S3_ENDPOINT required")
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
