package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/evorag-ai/evorag/internal/config"
	"github.com/evorag-ai/evorag/internal/database"
	"github.com/evorag-ai/evorag/internal/storage"
)

// ArchiveCmd returns the archive command
func ArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Upload an evaluation log snapshot to S3-compatible storage",
		Long:  "Serialize the current evaluation log as line-delimited JSON and upload it to the configured archive bucket.",
		RunE:  runArchive,
	}

	cmd.Flags().Int("limit", 0, "Maximum number of records to archive (0 = all)")

	return cmd
}

func runArchive(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasS3() {
		return fmt.Errorf("archive requires EVORAG_S3_ENDPOINT, EVORAG_S3_ACCESS_KEY_ID and EVORAG_S3_SECRET_ACCESS_KEY")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	evalLog, closeLog, err := openEvalLog(cfg, pool)
	if err != nil {
		return err
	}
	defer closeLog()

	limit, _ := cmd.Flags().GetInt("limit")
	results, err := evalLog.Iterate(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read evaluation log: %w", err)
	}
	if len(results) == 0 {
		log.Println("evaluation log is empty, nothing to archive")
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, result := range results {
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to serialize evaluation %s: %w", result.InteractionID, err)
		}
	}

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

	key := fmt.Sprintf("evaluations/%s.jsonl", time.Now().UTC().Format("20060102T150405Z"))
	if err := s3Client.UploadArchive(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return err
	}

	log.Printf("archived %d evaluations to s3://%s/%s", len(results), cfg.S3Bucket, key)
	return nil
}
