package catalog_audit

import (
	"context"

	"gorm.io/gorm"

	repo "github.com/yungbote/coursegraph-backend/internal/data/repos/integrity"
	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/realtime/bus"
)

const JobType = "catalog_audit"

// Source lists every catalog course without learner state.
type Source interface {
	CatalogCourses(ctx context.Context) ([]*catalog.CourseRow, error)
}

// FaultCounter is told about each integrity fault the audit finds.
type FaultCounter interface {
	IncIntegrityFault(kind string)
}

type Pipeline struct {
	db      *gorm.DB
	reports repo.ReportRepo
	source  Source
	bus     bus.Bus
	faults  FaultCounter
	log     *logger.Logger
}

// New builds the audit job. db and reports may be nil, in which case faults are only logged and
// published.
func New(db *gorm.DB, reports repo.ReportRepo, source Source, b bus.Bus, faults FaultCounter, baseLog *logger.Logger) *Pipeline {
	if b == nil {
		b = bus.Nop()
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Pipeline{
		db:      db,
		reports: reports,
		source:  source,
		bus:     b,
		faults:  faults,
		log:     baseLog.With("job", JobType),
	}
}

func (p *Pipeline) Type() string { return JobType }
