package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/coursegraph-backend/internal/observability"
	"github.com/yungbote/coursegraph-backend/internal/platform/envutil"
	"github.com/yungbote/coursegraph-backend/internal/platform/neo4jdb"
)

type Config struct {
	Port        string `validate:"required,numeric"`
	LogMode     string `validate:"required"`
	ServiceName string `validate:"required"`

	Neo4j neo4jdb.Config

	// CatalogFile serves learners from a YAML catalog when Neo4j is not configured.
	CatalogFile  string
	CatalogWatch bool

	PostgresDSN  string
	RedisAddr    string `validate:"omitempty,hostname_port"`
	RedisChannel string `validate:"required"`

	ResolveConcurrency int      `validate:"min=1,max=256"`
	CORSOrigins        []string `validate:"dive,url"`

	MetricsEnabled bool
	Otel           observability.OtelConfig

	StartupJobs     bool
	AuditInterval   time.Duration
	ShutdownTimeout time.Duration
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("SERVICE_NAME", "coursegraph"),

		Neo4j: neo4jdb.ConfigFromEnv(),

		CatalogFile:  envutil.String("CATALOG_FILE", ""),
		CatalogWatch: envutil.Bool("CATALOG_WATCH", false),

		PostgresDSN:  envutil.String("POSTGRES_DSN", ""),
		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisChannel: envutil.String("REDIS_CHANNEL", "coursegraph.events"),

		ResolveConcurrency: envutil.Int("RESOLVE_CONCURRENCY", 8),
		CORSOrigins:        envutil.List("CORS_ORIGINS"),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", envutil.String("SERVICE_NAME", "coursegraph")),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		},

		StartupJobs:     envutil.Bool("STARTUP_JOBS", true),
		AuditInterval:   envutil.Seconds("CATALOG_AUDIT_INTERVAL_SECONDS", 0),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Neo4j.URI == "" && c.CatalogFile == "" {
		return fmt.Errorf("invalid config: one of NEO4J_URI or CATALOG_FILE is required")
	}
	if c.CatalogWatch && c.CatalogFile == "" {
		return fmt.Errorf("invalid config: CATALOG_WATCH needs CATALOG_FILE")
	}
	return nil
}

// UsesGraph reports whether learners are served from Neo4j rather than the catalog file.
func (c Config) UsesGraph() bool { return c.Neo4j.URI != "" }
