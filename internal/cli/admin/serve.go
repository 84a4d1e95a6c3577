package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/evorag-ai/evorag/internal/api/handlers"
	"github.com/evorag-ai/evorag/internal/config"
	"github.com/evorag-ai/evorag/internal/database"
	"github.com/evorag-ai/evorag/internal/domain"
	"github.com/evorag-ai/evorag/internal/genai"
	"github.com/evorag-ai/evorag/internal/jobs"
	"github.com/evorag-ai/evorag/internal/logstore"
	"github.com/evorag-ai/evorag/internal/prompts"
	"github.com/evorag-ai/evorag/internal/repository"
	"github.com/evorag-ai/evorag/internal/server"
	"github.com/evorag-ai/evorag/internal/service"
	"github.com/evorag-ai/evorag/internal/telemetry"
)

// evalLogStore is satisfied by both the file and Postgres log stores.
type evalLogStore interface {
	Append(ctx context.Context, result *domain.EvaluationResult) error
	Iterate(ctx context.Context, limit int) ([]*domain.EvaluationResult, error)
	GetByInteractionID(ctx context.Context, interactionID string) (*domain.EvaluationResult, error)
}

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the evorag API server with an in-process judge worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Skip starting the in-process judge worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry := initTelemetry()
	defer shutdownTelemetry()

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("EVORAG_OPENAI_API_KEY is required to serve queries")
	}

	promptStore, err := prompts.Load(cfg.PromptDir)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	genaiClient := genai.NewClientWithConfig(genai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		FastModel:  cfg.FastModel,
		JudgeModel: cfg.JudgeModel,
	})

	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewEvaluationJobRepository(pool)

	evalLog, closeLog, err := openEvalLog(cfg, pool)
	if err != nil {
		return err
	}
	defer closeLog()

	rewriter := service.NewQueryTransformer(genaiClient, promptStore)
	retriever := service.NewRetriever(genaiClient, chunkRepo)
	synthesizer := service.NewAnswerSynthesizer(genaiClient, promptStore)
	dispatcher := jobs.NewDispatcher(jobRepo)
	pipeline := service.NewPipeline(rewriter, retriever, synthesizer, dispatcher, cfg.TopK)

	var judgeWorker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		judge := jobs.NewJudgeWorker(jobRepo, evalLog, genaiClient, promptStore, judgeConfig(cfg))
		judgeWorker = jobs.NewWorker(judge, cfg.JudgePollInterval)
		go judgeWorker.Start(ctx)
		log.Println("judge worker started")
	}

	routerCfg := server.RouterConfig{
		AskHandler:         handlers.NewAskHandler(pipeline),
		EvaluationsHandler: handlers.NewEvaluationsHandler(evalLog),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(routerCfg),
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

	if judgeWorker != nil {
		judgeWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// initTelemetry initializes Sentry with tracing if SENTRY_DSN is set.
func initTelemetry() func() {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return func() {}
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              dsn,
		Environment:      environment,
		TracesSampleRate: sampleRate,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}

// openEvalLog selects the evaluation log backend per configuration.
func openEvalLog(cfg *config.Config, pool *pgxpool.Pool) (evalLogStore, func(), error) {
	switch cfg.EvalLogDriver {
	case config.EvalLogDriverPostgres:
		return repository.NewEvaluationLogRepository(pool), func() {}, nil
	default:
		store, err := logstore.Open(cfg.EvalLogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open evaluation log: %w", err)
		}
		return store, func() { store.Close() }, nil
	}
}

func judgeConfig(cfg *config.Config) jobs.JudgeConfig {
	vocab := domain.DefaultIssueVocabulary()
	if tags := config.ParseTags(cfg.QueryIssueTags); tags != nil {
		vocab.QueryTags = tags
	}
	if tags := config.ParseTags(cfg.AnswerIssueTags); tags != nil {
		vocab.AnswerTags = tags
	}

	return jobs.JudgeConfig{
		BatchSize:        cfg.JudgeBatchSize,
		MaxAttempts:      cfg.JudgeMaxAttempts,
		BackoffBase:      cfg.JudgeBackoffBase,
		VisibilityWindow: cfg.JudgeVisibilityWindow,
		RatePerSecond:    cfg.JudgeRatePerSecond,
		Vocabulary:       vocab,
	}
}

func runMigrations(databaseURL string) error {
	// golang-migrate drives a database/sql connection
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
