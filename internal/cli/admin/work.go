package admin

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evorag-ai/evorag/internal/config"
	"github.com/evorag-ai/evorag/internal/database"
	"github.com/evorag-ai/evorag/internal/genai"
	"github.com/evorag-ai/evorag/internal/jobs"
	"github.com/evorag-ai/evorag/internal/prompts"
	"github.com/evorag-ai/evorag/internal/repository"
)

// WorkCmd returns the work command
func WorkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "work",
		Short: "Run a standalone judge worker",
		Long:  "Drain the evaluation queue without serving HTTP. Multiple workers may run concurrently against the same database.",
		RunE:  runWork,
	}
}

func runWork(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry := initTelemetry()
	defer shutdownTelemetry()

	if !cfg.HasOpenAI() {
		return fmt.Errorf("EVORAG_OPENAI_API_KEY is required to judge interactions")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	promptStore, err := prompts.Load(cfg.PromptDir)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	genaiClient := genai.NewClientWithConfig(genai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		FastModel:  cfg.FastModel,
		JudgeModel: cfg.JudgeModel,
	})

	jobRepo := repository.NewEvaluationJobRepository(pool)

	evalLog, closeLog, err := openEvalLog(cfg, pool)
	if err != nil {
		return err
	}
	defer closeLog()

	judge := jobs.NewJudgeWorker(jobRepo, evalLog, genaiClient, promptStore, judgeConfig(cfg))
	worker := jobs.NewWorker(judge, cfg.JudgePollInterval)
	go worker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	worker.Stop()
	return nil
}
