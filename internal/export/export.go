// Package export renders a worker's monthly time entries as a spreadsheet
// or a PDF report.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"timetrack/internal/aggregate"
	"timetrack/internal/domain"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "xlsx" (the default when s is empty) or "pdf".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatXLSX):
		return FormatXLSX, nil
	case string(FormatPDF):
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", domain.ErrValidation, s)
	}
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

const (
	SheetName  = "Time Entries"
	timeLayout = "2006-01-02 15:04:05"
)

var Columns = []string{"Clock In", "Clock Out", "Hours", "Status", "Description"}

// Row is one entry rendered as text cells in Columns order.
type Row [5]string

// Report is everything needed to render one worker's month.
type Report struct {
	WorkerName string
	WorkerCode string
	Month      int
	Year       int
	Entries    []domain.TimeEntry
	Location   *time.Location
}

// File is a rendered report ready to be saved or served.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Rows formats entries in loc. Open entries show "Active" as clock out.
func Rows(entries []domain.TimeEntry, loc *time.Location) []Row {
	if loc == nil {
		loc = time.Local
	}
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		out := "Active"
		if e.ClockOut != nil {
			out = e.ClockOut.In(loc).Format(timeLayout)
		}
		rows = append(rows, Row{
			e.ClockIn.In(loc).Format(timeLayout),
			out,
			aggregate.FormatHours(e.TotalHours),
			string(e.Status()),
			e.Description,
		})
	}
	return rows
}

// FileName builds "{name}_TimeEntries_{year}_{month}.{ext}".
func FileName(workerName string, year, month int, f Format) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(workerName))
	if name == "" {
		name = "worker"
	}
	return fmt.Sprintf("%s_TimeEntries_%d_%d.%s", name, year, month, f)
}

// Write renders r in format f to w.
func Write(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, r)
	case FormatPDF:
		return WritePDF(w, r)
	default:
		return fmt.Errorf("%w: unknown export format %q", domain.ErrValidation, f)
	}
}
