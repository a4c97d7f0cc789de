package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. It merges file defaults and
// environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	TenantID                string
	TestMode                bool
	ActionTypeID            int
	ClientParticipantTypeID int
	CRMStageMatterCreated   int

	ActionstepBaseURL      string
	ActionstepClientID     string
	ActionstepClientSecret string
	ActionstepTokenURL     string
	PipedriveBaseURL       string
	PipedriveAPIToken      string

	UpstreamTimeout     time.Duration
	RetryMaxAttempts    int
	RetryBackoffBase    time.Duration
	SuppressBodyLogging bool

	WebhookSecret   string
	WebhookAudience string

	FeedbackSecret string
	FeedbackDomain string

	IdempotencyTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml. It is
// intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Tenant struct {
		ID                      string `yaml:"id"`
		TestMode                bool   `yaml:"test_mode"`
		ActionTypeID            int    `yaml:"action_type_id"`
		ClientParticipantTypeID int    `yaml:"client_participant_type_id"`
		CRMStageMatterCreated   int    `yaml:"crm_stage_matter_created"`
	} `yaml:"tenant"`
	Upstream struct {
		Actionstep struct {
			BaseURL  string `yaml:"base_url"`
			TokenURL string `yaml:"token_url"`
		} `yaml:"actionstep"`
		Pipedrive struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"pipedrive"`
	} `yaml:"upstream"`
	Feedback struct {
		Domain string `yaml:"domain"`
	} `yaml:"feedback"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:               "conveyor",
		HTTPPort:                8080,
		TenantID:                "settleline",
		ActionTypeID:            0,
		ClientParticipantTypeID: 0,
		ActionstepBaseURL:       "https://api.actionstep.com",
		PipedriveBaseURL:        "https://api.pipedrive.com",
		UpstreamTimeout:         30 * time.Second,
		RetryMaxAttempts:        3,
		RetryBackoffBase:        200 * time.Millisecond,
		WebhookAudience:         "conveyor",
		FeedbackDomain:          "settleline.com.au",
		IdempotencyTTL:          7 * 24 * time.Hour,
		OutboxPollInterval:      2 * time.Second,
		OutboxBatchSize:         100,
		OutboxClaimTTL:          30 * time.Second,
		OutboxMaxRetries:        5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Tenant.ID != "" {
			cfg.TenantID = f.Tenant.ID
		}
		cfg.TestMode = f.Tenant.TestMode
		if f.Tenant.ActionTypeID > 0 {
			cfg.ActionTypeID = f.Tenant.ActionTypeID
		}
		if f.Tenant.ClientParticipantTypeID > 0 {
			cfg.ClientParticipantTypeID = f.Tenant.ClientParticipantTypeID
		}
		if f.Tenant.CRMStageMatterCreated > 0 {
			cfg.CRMStageMatterCreated = f.Tenant.CRMStageMatterCreated
		}
		if f.Upstream.Actionstep.BaseURL != "" {
			cfg.ActionstepBaseURL = f.Upstream.Actionstep.BaseURL
		}
		if f.Upstream.Actionstep.TokenURL != "" {
			cfg.ActionstepTokenURL = f.Upstream.Actionstep.TokenURL
		}
		if f.Upstream.Pipedrive.BaseURL != "" {
			cfg.PipedriveBaseURL = f.Upstream.Pipedrive.BaseURL
		}
		if f.Feedback.Domain != "" {
			cfg.FeedbackDomain = f.Feedback.Domain
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.TenantID = envOrDefault("TENANT_ID", cfg.TenantID)
	cfg.TestMode = envBool("TEST_MODE", cfg.TestMode)
	cfg.ActionTypeID = envInt("ACTIONSTEP_ACTION_TYPE_ID", cfg.ActionTypeID)
	cfg.ClientParticipantTypeID = envInt("ACTIONSTEP_CLIENT_PARTICIPANT_TYPE_ID", cfg.ClientParticipantTypeID)
	cfg.CRMStageMatterCreated = envInt("PIPEDRIVE_STAGE_MATTER_CREATED", cfg.CRMStageMatterCreated)

	cfg.ActionstepBaseURL = envOrDefault("ACTIONSTEP_BASE_URL", cfg.ActionstepBaseURL)
	cfg.ActionstepClientID = envOrDefault("ACTIONSTEP_CLIENT_ID", cfg.ActionstepClientID)
	cfg.ActionstepClientSecret = envOrDefault("ACTIONSTEP_CLIENT_SECRET", cfg.ActionstepClientSecret)
	cfg.ActionstepTokenURL = envOrDefault("ACTIONSTEP_TOKEN_URL", cfg.ActionstepTokenURL)
	cfg.PipedriveBaseURL = envOrDefault("PIPEDRIVE_BASE_URL", cfg.PipedriveBaseURL)
	cfg.PipedriveAPIToken = envOrDefault("PIPEDRIVE_API_TOKEN", cfg.PipedriveAPIToken)

	cfg.WebhookSecret = envOrDefault("WEBHOOK_SECRET", cfg.WebhookSecret)
	cfg.WebhookAudience = envOrDefault("WEBHOOK_AUDIENCE", cfg.WebhookAudience)
	cfg.FeedbackSecret = envOrDefault("FEEDBACK_LINK_SECRET", cfg.FeedbackSecret)
	cfg.FeedbackDomain = envOrDefault("FEEDBACK_DOMAIN", cfg.FeedbackDomain)
	cfg.SuppressBodyLogging = envBool("SUPPRESS_BODY_LOGGING", cfg.SuppressBodyLogging)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.RetryMaxAttempts = envInt("UPSTREAM_RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.RetryBackoffBase = time.Duration(envInt("UPSTREAM_RETRY_BACKOFF_MS", int(cfg.RetryBackoffBase.Milliseconds()))) * time.Millisecond
	cfg.UpstreamTimeout = time.Duration(envInt("UPSTREAM_TIMEOUT_SECONDS", int(cfg.UpstreamTimeout.Seconds()))) * time.Second
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.WebhookSecret == "" {
		return Config{}, fmt.Errorf("missing WEBHOOK_SECRET")
	}
	if cfg.FeedbackSecret == "" {
		return Config{}, fmt.Errorf("missing FEEDBACK_LINK_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
