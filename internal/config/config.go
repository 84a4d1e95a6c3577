package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Evaluation log store drivers.
const (
	EvalLogDriverFile     = "file"
	EvalLogDriverPostgres = "postgres"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	FastModel    string `envconfig:"FAST_MODEL" default:"gpt-4o-mini"`
	JudgeModel   string `envconfig:"JUDGE_MODEL" default:"gpt-4o"`

	// Retrieval
	TopK int `envconfig:"TOP_K" default:"7"`

	// Prompt resources: embedded defaults unless a directory overrides them
	PromptDir string `envconfig:"PROMPT_DIR"`

	// Evaluation log store
	EvalLogDriver string `envconfig:"EVAL_LOG_DRIVER" default:"file"`
	EvalLogPath   string `envconfig:"EVAL_LOG_PATH" default:"evaluation_logs.jsonl"`

	// Judge worker
	JudgePollInterval     time.Duration `envconfig:"JUDGE_POLL_INTERVAL" default:"10s"`
	JudgeBatchSize        int           `envconfig:"JUDGE_BATCH_SIZE" default:"20"`
	JudgeMaxAttempts      int           `envconfig:"JUDGE_MAX_ATTEMPTS" default:"3"`
	JudgeBackoffBase      time.Duration `envconfig:"JUDGE_BACKOFF_BASE" default:"30s"`
	JudgeVisibilityWindow time.Duration `envconfig:"JUDGE_VISIBILITY_WINDOW" default:"5m"`
	JudgeRatePerSecond    float64       `envconfig:"JUDGE_RATE_PER_SECOND" default:"1"`

	// Issue tag vocabularies; comma-separated, configuration not contract
	QueryIssueTags  string `envconfig:"QUERY_ISSUE_TAGS"`
	AnswerIssueTags string `envconfig:"ANSWER_ISSUE_TAGS"`

	// Archive target for evaluation log snapshots
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"evorag-eval-archive"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("EVORAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.EvalLogDriver != EvalLogDriverFile && cfg.EvalLogDriver != EvalLogDriverPostgres {
		return nil, fmt.Errorf("unknown eval log driver %q", cfg.EvalLogDriver)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// ParseTags splits a comma-separated tag list, trimming whitespace.
// Returns nil for an empty value so callers can fall back to defaults.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
