package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"timetrack/internal/domain"
)

func sampleEntries() []domain.TimeEntry {
	in := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	out := in.Add(2*time.Hour + 30*time.Minute)
	hours := 2.5
	open := time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC)
	return []domain.TimeEntry{
		{ID: "e2", WorkerID: "w1", ClockIn: open, Description: "still going"},
		{ID: "e1", WorkerID: "w1", ClockIn: in, ClockOut: &out, TotalHours: &hours, Description: "wiring"},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sampleEntries(), time.UTC)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	want := Row{"2024-01-11 08:00:00", "Active", "N/A", "active", "still going"}
	if rows[0] != want {
		t.Errorf("open row = %v, want %v", rows[0], want)
	}
	want = Row{"2024-01-10 09:00:00", "2024-01-10 11:30:00", "2.50", "completed", "wiring"}
	if rows[1] != want {
		t.Errorf("closed row = %v, want %v", rows[1], want)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name   string
		worker string
		format Format
		want   string
	}{
		{"xlsx", "Alice", FormatXLSX, "Alice_TimeEntries_2024_1.xlsx"},
		{"pdf", "Alice", FormatPDF, "Alice_TimeEntries_2024_1.pdf"},
		{"slashes", "A/B\\C", FormatXLSX, "A_B_C_TimeEntries_2024_1.xlsx"},
		{"empty", "  ", FormatXLSX, "worker_TimeEntries_2024_1.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileName(tt.worker, 2024, 1, tt.format); got != tt.want {
				t.Errorf("FileName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatXLSX {
		t.Errorf("empty = %q, %v", f, err)
	}
	if f, err := ParseFormat("PDF"); err != nil || f != FormatPDF {
		t.Errorf("PDF = %q, %v", f, err)
	}
	if _, err := ParseFormat("csv"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("csv err = %v, want ErrValidation", err)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	r := Report{WorkerName: "Alice", Month: 1, Year: 2024, Entries: sampleEntries(), Location: time.UTC}
	if err := Write(&buf, r, FormatXLSX); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer func() { _ = f.Close() }()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != SheetName {
		t.Fatalf("sheets = %v, want [%s]", got, SheetName)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	for i, c := range Columns {
		if rows[0][i] != c {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], c)
		}
	}
	if rows[1][1] != "Active" || rows[2][2] != "2.50" {
		t.Errorf("unexpected body: %v", rows[1:])
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	r := Report{WorkerName: "Alice", WorkerCode: "A1", Month: 1, Year: 2024, Entries: sampleEntries(), Location: time.UTC}
	if err := Write(&buf, r, FormatPDF); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: %q", buf.Bytes()[:min(8, buf.Len())])
	}
}
