package content_reindex

import (
	"context"

	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/realtime/bus"
)

const JobType = "content_reindex"

type Source interface {
	CatalogCourses(ctx context.Context) ([]*catalog.CourseRow, error)
}

type Pipeline struct {
	source Source
	bus    bus.Bus
	log    *logger.Logger
}

func New(source Source, b bus.Bus, baseLog *logger.Logger) *Pipeline {
	if b == nil {
		b = bus.Nop()
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Pipeline{
		source: source,
		bus:    b,
		log:    baseLog.With("job", JobType),
	}
}

func (p *Pipeline) Type() string { return JobType }
