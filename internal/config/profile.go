// Package config holds the process-scoped runtime configuration described
// in spec.md §6: a typed Profile loaded at startup from flags/env via
// viper, plus the hot-reloadable knobs refreshed on a poll, following the
// teacher's internal/profile/profile.go pattern.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Profile is the static, startup-resolved configuration.
type Profile struct {
	Mode string // "dev" | "prod"
	Addr string
	Port int

	Driver string // "postgres" — the only supported relational driver
	DSN    string

	RedisAddr string

	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	LLMTimeout  int // seconds

	EmbeddingProvider string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string
	EmbeddingModel    string

	SlackBotToken   string
	SlackOpsChannel string

	AddressServiceURL    string
	AddressServiceAPIKey string

	PolicyConfigPath string // YAML lookup tables: refund schedule, SLA deadlines, alert rules
}

func (p *Profile) IsDev() bool { return p.Mode != "prod" }

// FromEnv overrides fields from environment variables, mirroring the
// teacher's profile.FromEnv pattern: a set variable replaces the field's
// current value, and an unset one leaves it as it is (a few fields fall
// back to a built-in default when still at their zero value).
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("CONVERGEAI_MODE", p.Mode)
	p.Driver = getEnvOrDefault("CONVERGEAI_DRIVER", orDefault(p.Driver, "postgres"))
	p.DSN = getEnvOrDefault("CONVERGEAI_DSN", p.DSN)
	p.RedisAddr = getEnvOrDefault("CONVERGEAI_REDIS_ADDR", orDefault(p.RedisAddr, "localhost:6379"))

	p.LLMProvider = getEnvOrDefault("CONVERGEAI_LLM_PROVIDER", p.LLMProvider)
	p.LLMAPIKey = getEnvOrDefault("CONVERGEAI_LLM_API_KEY", p.LLMAPIKey)
	p.LLMBaseURL = getEnvOrDefault("CONVERGEAI_LLM_BASE_URL", p.LLMBaseURL)
	p.LLMModel = getEnvOrDefault("CONVERGEAI_LLM_MODEL", p.LLMModel)
	p.LLMTimeout = getEnvOrDefaultInt("CONVERGEAI_LLM_TIMEOUT", orDefaultInt(p.LLMTimeout, 20))

	p.EmbeddingProvider = getEnvOrDefault("CONVERGEAI_EMBEDDING_PROVIDER", p.EmbeddingProvider)
	p.EmbeddingAPIKey = getEnvOrDefault("CONVERGEAI_EMBEDDING_API_KEY", p.EmbeddingAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("CONVERGEAI_EMBEDDING_BASE_URL", p.EmbeddingBaseURL)
	p.EmbeddingModel = getEnvOrDefault("CONVERGEAI_EMBEDDING_MODEL", p.EmbeddingModel)

	p.SlackBotToken = getEnvOrDefault("CONVERGEAI_SLACK_BOT_TOKEN", p.SlackBotToken)
	p.SlackOpsChannel = getEnvOrDefault("CONVERGEAI_SLACK_OPS_CHANNEL", orDefault(p.SlackOpsChannel, "#ops-alerts"))

	p.AddressServiceURL = getEnvOrDefault("CONVERGEAI_ADDRESS_SERVICE_URL", p.AddressServiceURL)
	p.AddressServiceAPIKey = getEnvOrDefault("CONVERGEAI_ADDRESS_SERVICE_API_KEY", p.AddressServiceAPIKey)

	p.PolicyConfigPath = getEnvOrDefault("CONVERGEAI_POLICY_CONFIG", orDefault(p.PolicyConfigPath, "./config/policy.yaml"))
}

// Validate checks the minimal set of fields required to start the server.
func (p *Profile) Validate() error {
	if p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only postgres is supported", p.Driver)
	}
	if p.DSN == "" {
		return errors.New("dsn is required")
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Runtime holds the hot-reloadable knobs of spec.md §6, refreshed on a
// 60-second poll by Loader. Reads/writes go through atomic-ish copy
// semantics via Loader.Snapshot to avoid torn reads under concurrent turns.
type Runtime struct {
	SLABufferHours              int
	SessionIdleTimeoutMinutes   int
	RetrievalTopK               int
	GroundingRefusalThreshold   float32
}

// DefaultRuntime returns the spec.md §6 defaults.
func DefaultRuntime() Runtime {
	return Runtime{
		SLABufferHours:            1,
		SessionIdleTimeoutMinutes: 30,
		RetrievalTopK:             7,
		GroundingRefusalThreshold: 0.60,
	}
}

// SessionIdleTimeout returns the idle timeout as a time.Duration.
func (r Runtime) SessionIdleTimeout() time.Duration {
	return time.Duration(r.SessionIdleTimeoutMinutes) * time.Minute
}

// SLABuffer returns the SLA-at-risk buffer as a time.Duration.
func (r Runtime) SLABuffer() time.Duration {
	return time.Duration(r.SLABufferHours) * time.Hour
}
