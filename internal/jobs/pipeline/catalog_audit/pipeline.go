package catalog_audit

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/yungbote/coursegraph-backend/internal/domain/integrity"
	jobrt "github.com/yungbote/coursegraph-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegraph-backend/internal/progress"
	"github.com/yungbote/coursegraph-backend/internal/realtime/bus"
)

// Summary is the job result and the payload of the integrity event.
type Summary struct {
	Courses  int             `json:"courses"`
	Faults   []*FaultSummary `json:"faults"`
	Resolved int64           `json:"resolved"`
	Kinds    map[string]int  `json:"kinds"`
}

type FaultSummary struct {
	Course  string   `json:"course"`
	Kind    string   `json:"kind"`
	Lessons []string `json:"lessons"`
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil {
		return nil
	}
	if p.source == nil {
		jc.Fail("deps", fmt.Errorf("missing catalog source"))
		return nil
	}

	jc.Progress("load", 10, "Loading catalog courses")
	rows, err := p.source.CatalogCourses(jc.Ctx)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}

	jc.Progress("resolve", 40, fmt.Sprintf("Resolving %d courses", len(rows)))
	sum := &Summary{Courses: len(rows), Faults: []*FaultSummary{}, Kinds: map[string]int{}}
	var reports []*domain.CourseIntegrityReport
	faulty := []string{}
	for _, row := range rows {
		if row == nil {
			continue
		}
		_, err := progress.ResolveRow(row)
		if err == nil {
			continue
		}
		ie, ok := progress.AsIntegrity(err)
		if !ok {
			jc.Fail("resolve", err)
			return nil
		}
		lessons := ie.Lessons
		if lessons == nil {
			lessons = []string{}
		}
		raw, err := json.Marshal(lessons)
		if err != nil {
			jc.Fail("resolve", err)
			return nil
		}
		reports = append(reports, &domain.CourseIntegrityReport{
			CourseSlug: ie.CourseSlug,
			Kind:       string(ie.Kind),
			Lessons:    datatypes.JSON(raw),
		})
		faulty = append(faulty, ie.CourseSlug)
		sum.Faults = append(sum.Faults, &FaultSummary{Course: ie.CourseSlug, Kind: string(ie.Kind), Lessons: lessons})
		sum.Kinds[string(ie.Kind)]++
		if p.faults != nil {
			p.faults.IncIntegrityFault(string(ie.Kind))
		}
		jc.Log.Warn("course failed integrity audit", "course", ie.CourseSlug, "kind", string(ie.Kind), "lessons", lessons)
	}

	if p.db != nil && p.reports != nil {
		jc.Progress("persist", 70, "Recording integrity reports")
		err := p.db.WithContext(jc.Ctx).Transaction(func(tx *gorm.DB) error {
			if err := p.reports.Upsert(jc.Ctx, tx, reports); err != nil {
				return err
			}
			n, err := p.reports.DeleteExcept(jc.Ctx, tx, faulty)
			if err != nil {
				return err
			}
			sum.Resolved = n
			return nil
		})
		if err != nil {
			jc.Fail("persist", err)
			return nil
		}
	}

	jc.Progress("publish", 90, "Publishing audit summary")
	if ev, err := bus.NewEvent(bus.EventIntegrityChanged, sum); err == nil {
		if err := p.bus.Publish(jc.Ctx, ev); err != nil {
			jc.Log.Warn("publish integrity event", "error", err)
		}
	}

	jc.Succeed("done", sum)
	return nil
}
