package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursegraph-backend/internal/data/catalogfile"
	"github.com/yungbote/coursegraph-backend/internal/data/db"
	"github.com/yungbote/coursegraph-backend/internal/data/graph"
	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
	httpH "github.com/yungbote/coursegraph-backend/internal/http/handlers"
	"github.com/yungbote/coursegraph-backend/internal/observability"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/coursegraph-backend/internal/realtime/bus"
)

// CourseSource is what both course stores offer: per-learner rows and the bare catalog.
type CourseSource interface {
	UserCourses(ctx context.Context, userID string) (*catalog.UserCourses, error)
	CatalogCourses(ctx context.Context) ([]*catalog.CourseRow, error)
}

type Clients struct {
	Neo4j    *neo4jdb.Client
	Postgres *db.PostgresService
	Bus      bus.Bus

	Source CourseSource
	// FileStore is set when learners are served from the catalog file.
	FileStore *catalogfile.Store
}

func (c Clients) DB() *gorm.DB {
	if c.Postgres == nil {
		return nil
	}
	return c.Postgres.DB()
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Collector) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Course store
	if cfg.UsesGraph() {
		client, err := neo4jdb.New(log, cfg.Neo4j)
		if err != nil {
			return out, fmt.Errorf("init neo4j: %w", err)
		}
		out.Neo4j = client
		var rec graph.QueryRecorder
		if metrics != nil {
			rec = metrics
		}
		out.Source = graph.NewCourseProgressStore(client, log, rec)
	} else {
		f, err := catalogfile.Load(cfg.CatalogFile)
		if err != nil {
			return out, fmt.Errorf("load catalog file: %w", err)
		}
		out.FileStore = catalogfile.NewStore(f)
		out.Source = out.FileStore
		log.Info("Serving learners from catalog file", "path", cfg.CatalogFile, "courses", len(f.Courses))
	}

	// Postgres
	pg, err := db.NewPostgresService(log, cfg.PostgresDSN)
	if err != nil {
		out.close(ctx, log)
		return Clients{}, fmt.Errorf("init postgres: %w", err)
	}
	if pg != nil {
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			out.close(ctx, log)
			return Clients{}, fmt.Errorf("postgres automigrate: %w", err)
		}
		out.Postgres = pg
	}

	// Redis; without it events stay in this process
	out.Bus = bus.NewMemoryBus()
	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisBus(ctx, log, bus.RedisConfig{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel})
		if err != nil {
			out.close(ctx, log)
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		out.Bus = b
	}

	return out, nil
}

// readinessChecks lists readiness checks for the configured backends.
func (c Clients) readinessChecks() []httpH.ReadinessCheck {
	var out []httpH.ReadinessCheck
	if c.Neo4j != nil {
		out = append(out, httpH.ReadinessCheck{Name: "neo4j", Check: c.Neo4j.Ping})
	}
	if c.Postgres != nil {
		out = append(out, httpH.ReadinessCheck{Name: "postgres", Check: c.Postgres.Ping})
	}
	return out
}

func (c Clients) close(ctx context.Context, log *logger.Logger) {
	if c.Bus != nil {
		if err := c.Bus.Close(); err != nil {
			log.Warn("close event bus", "error", err)
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			log.Warn("close postgres", "error", err)
		}
	}
	if c.Neo4j != nil {
		if err := c.Neo4j.Close(ctx); err != nil {
			log.Warn("close neo4j", "error", err)
		}
	}
}
