package export

import (
	"fmt"
	"io"
	"time"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"

	"timetrack/internal/aggregate"
)

// WritePDF writes an A4 report with the entries table and the month total.
func WritePDF(w io.Writer, r Report) error {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(15, 10, 15)

	title := r.WorkerName
	if r.WorkerCode != "" {
		title = fmt.Sprintf("%s (%s)", r.WorkerName, r.WorkerCode)
	}
	period := time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")

	m.RegisterHeader(func() {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text(SheetName, props.Text{
					Top:   3,
					Style: consts.Bold,
					Align: consts.Center,
					Size:  16,
				})
			})
		})
		m.Row(8, func() {
			m.Col(12, func() {
				m.Text(fmt.Sprintf("%s - %s", title, period), props.Text{
					Top:   2,
					Align: consts.Center,
					Size:  11,
				})
			})
		})
	})

	rows := Rows(r.Entries, r.Location)
	content := make([][]string, 0, len(rows))
	for _, row := range rows {
		content = append(content, row[:])
	}
	grid := []uint{3, 3, 1, 2, 3}
	m.TableList(Columns, content, props.TableList{
		HeaderProp: props.TableListContent{
			Size:      9,
			GridSizes: grid,
		},
		ContentProp: props.TableListContent{
			Size:      8,
			GridSizes: grid,
		},
		Align:                consts.Left,
		AlternatedBackground: &color.Color{Red: 240, Green: 240, Blue: 240},
		HeaderContentSpace:   1,
	})

	m.Row(15, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Total: %.2fh", aggregate.SumHours(r.Entries)), props.Text{
				Top:   5,
				Style: consts.Bold,
				Align: consts.Right,
				Size:  11,
			})
		})
	})

	buf, err := m.Output()
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
