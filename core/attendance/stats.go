package attendance

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/tenant"
)

type (
	ClassStats struct {
		ClassID   int    `json:"class_id"`
		ClassName string `json:"class_name"`
		Present   int    `json:"present"`
		Absent    int    `json:"absent"`
		Total     int    `json:"total"`
		Rate      int    `json:"rate"` // % present, rounded
	}

	Stats struct {
		Classes []ClassStats `json:"classes"`
		Present int          `json:"present"`
		Absent  int          `json:"absent"`
		Total   int          `json:"total"`
		Rate    int          `json:"rate"`
	}
)

func rate(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(present)/float64(total)*100 + .5))
}

// Stats aggregates the visible attendance per class. Every visible class is listed, recorded or not.
func (svc *Service) Stats(ctx context.Context, p tenant.Principal, filter Filter) (Stats, error) {
	classes, err := svc.roster.QueryClasses(ctx, p.Scope())
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying classes")
	}
	records, err := svc.repo.QueryAttendance(ctx, filter, p.Scope())
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying attendance")
	}
	return aggregate(classes, records, filter.ClassID), nil
}

func aggregate(classes []roster.Class, records []Record, only int) Stats {
	idx := make(map[int]int, len(classes))
	stats := Stats{Classes: make([]ClassStats, 0, len(classes))}
	for _, c := range classes {
		if only != 0 && c.ID != only {
			continue
		}
		idx[c.ID] = len(stats.Classes)
		stats.Classes = append(stats.Classes, ClassStats{ClassID: c.ID, ClassName: c.Name})
	}

	for _, r := range records {
		if !r.ClassID.Valid {
			continue
		}
		i, ok := idx[r.ClassID.Int]
		if !ok {
			continue
		}
		cs := &stats.Classes[i]
		cs.Total++
		if r.Present {
			cs.Present++
		} else {
			cs.Absent++
		}
	}

	for i := range stats.Classes {
		cs := &stats.Classes[i]
		cs.Rate = rate(cs.Present, cs.Total)
		stats.Present += cs.Present
		stats.Absent += cs.Absent
		stats.Total += cs.Total
	}
	stats.Rate = rate(stats.Present, stats.Total)
	return stats
}

// Export builds a workbook with the visible attendance rows and the per class statistics.
func (svc *Service) Export(ctx context.Context, p tenant.Principal, filter Filter) (*bytes.Buffer, error) {
	classes, err := svc.roster.QueryClasses(ctx, p.Scope())
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	records, err := svc.repo.QueryAttendance(ctx, filter, p.Scope())
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	stats := aggregate(classes, records, filter.ClassID)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const recordsSheet, statsSheet = "Attendance", "Statistics"
	if err = f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	if _, err = f.NewSheet(statsSheet); err != nil {
		return nil, errors.Wrap(err, "adding sheet")
	}

	header := []interface{}{"Date", "Lesson", "Class", "Student", "Church", "Present"}
	if err = f.SetSheetRow(recordsSheet, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	for i, r := range records {
		present := "no"
		if r.Present {
			present = "yes"
		}
		row := []interface{}{r.Date, r.LessonTitle.String, r.ClassName.String, r.StudentName.String, r.ChurchName.String, present}
		if err = f.SetSheetRow(recordsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, errors.Wrap(err, "writing attendance row")
		}
	}

	header = []interface{}{"Class", "Present", "Absent", "Total", "Rate (%)"}
	if err = f.SetSheetRow(statsSheet, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	for i, cs := range stats.Classes {
		row := []interface{}{cs.ClassName, cs.Present, cs.Absent, cs.Total, cs.Rate}
		if err = f.SetSheetRow(statsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, errors.Wrap(err, "writing stats row")
		}
	}
	total := []interface{}{"Total", stats.Present, stats.Absent, stats.Total, stats.Rate}
	if err = f.SetSheetRow(statsSheet, fmt.Sprintf("A%d", len(stats.Classes)+2), &total); err != nil {
		return nil, errors.Wrap(err, "writing totals")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf, nil
}
