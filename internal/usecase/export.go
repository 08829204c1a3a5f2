package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"timetrack/internal/aggregate"
	"timetrack/internal/domain"
	"timetrack/internal/export"
	"timetrack/internal/ports"
)

// Exporter renders one worker's month as a downloadable file.
type Exporter struct {
	Log      *slog.Logger
	Workers  ports.WorkerRepository
	Entries  ports.TimeEntryRepository
	Location *time.Location
}

// WorkerMonth is available to the worker's project admin and to the worker.
func (x *Exporter) WorkerMonth(ctx context.Context, actor domain.Session, workerID string, month, year int, format export.Format) (export.File, error) {
	w, err := x.Workers.GetWorker(ctx, workerID)
	if err != nil {
		return export.File{}, err
	}
	if !actor.CanManage(w) {
		return export.File{}, domain.ErrForbidden
	}
	loc := x.Location
	if loc == nil {
		loc = time.Local
	}
	all, err := x.Entries.ListEntriesByWorker(ctx, w.ID)
	if err != nil {
		return export.File{}, fmt.Errorf("load entries: %w", err)
	}
	entries, err := aggregate.FilterPeriod(all, w.ID, month, year, loc)
	if err != nil {
		return export.File{}, err
	}

	var buf bytes.Buffer
	r := export.Report{
		WorkerName: w.Name,
		WorkerCode: w.Code,
		Month:      month,
		Year:       year,
		Entries:    entries,
		Location:   loc,
	}
	if err := export.Write(&buf, r, format); err != nil {
		return export.File{}, err
	}
	if x.Log != nil {
		x.Log.Info("report exported",
			slog.String("worker_id", w.ID),
			slog.Int("month", month),
			slog.Int("year", year),
			slog.Int("entries", len(entries)),
			slog.String("format", string(format)),
		)
	}
	return export.File{
		Name:        export.FileName(w.Name, year, month, format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
