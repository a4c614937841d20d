// Package export arma los reportes .xlsx del portal.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"intechlab/models"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	colorDark   = "1F2A44"
	colorLight  = "E8EEF9"
	colorMuted  = "5B6475"
	colorStripe = "F5F7FB"
	colorBorder = "D0D7E2"

	dateTimeLayout = "02/01/2006 15:04"
)

// Report es un libro listo para escribir.
type Report struct {
	FileName string
	file     *excelize.File
}

// WriteTo escribe el libro y lo cierra.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	defer r.file.Close()
	return r.file.WriteTo(w)
}

// FileName arma intechlab-<tipo>-<aaaa-mm-dd>.xlsx.
func FileName(kind string, at time.Time) string {
	return fmt.Sprintf("intechlab-%s-%s.xlsx", kind, at.Format("2006-01-02"))
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "Sin fecha"
	}
	return t.Local().Format(dateTimeLayout)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type sheetBuilder struct {
	f       *excelize.File
	name    string
	columns int
	border  []excelize.Border
}

func newSheet(name string, widths []float64) (*sheetBuilder, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		f.Close()
		return nil, err
	}
	b := &sheetBuilder{f: f, name: name, columns: len(widths)}
	for _, side := range []string{"left", "top", "right", "bottom"} {
		b.border = append(b.border, excelize.Border{Type: side, Color: colorBorder, Style: 1})
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(name, col, col, w); err != nil {
			f.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *sheetBuilder) lastColumn() string {
	col, _ := excelize.ColumnNumberToName(b.columns)
	return col
}

func (b *sheetBuilder) style(s *excelize.Style) (int, error) {
	s.Border = b.border
	return b.f.NewStyle(s)
}

// header escribe titulo y subtitulo combinados en las dos primeras filas.
func (b *sheetBuilder) header(title, subtitle string) error {
	last := b.lastColumn()
	if err := b.f.SetCellValue(b.name, "A1", title); err != nil {
		return err
	}
	if err := b.f.SetCellValue(b.name, "A2", subtitle); err != nil {
		return err
	}
	if err := b.f.MergeCell(b.name, "A1", last+"1"); err != nil {
		return err
	}
	if err := b.f.MergeCell(b.name, "A2", last+"2"); err != nil {
		return err
	}
	titleStyle, err := b.style(&excelize.Style{
		Font:      &excelize.Font{Size: 18, Bold: true, Color: colorDark},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorLight}},
	})
	if err != nil {
		return err
	}
	subtitleStyle, err := b.style(&excelize.Style{
		Font:      &excelize.Font{Size: 12, Color: colorMuted},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	if err := b.f.SetCellStyle(b.name, "A1", last+"1", titleStyle); err != nil {
		return err
	}
	if err := b.f.SetRowHeight(b.name, 1, 32); err != nil {
		return err
	}
	return b.f.SetCellStyle(b.name, "A2", last+"2", subtitleStyle)
}

// table escribe encabezados y filas a partir de la fila dada, con filtro y filas alternas.
func (b *sheetBuilder) table(row int, headers []string, rows [][]interface{}) error {
	last := b.lastColumn()
	start, _ := excelize.CoordinatesToCellName(1, row)
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := b.f.SetSheetRow(b.name, start, &headerRow); err != nil {
		return err
	}
	headerStyle, err := b.style(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorDark}},
	})
	if err != nil {
		return err
	}
	if err := b.f.SetCellStyle(b.name, start, fmt.Sprintf("%s%d", last, row), headerStyle); err != nil {
		return err
	}

	plain, err := b.style(&excelize.Style{
		Font:      &excelize.Font{Color: colorDark},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}
	striped, err := b.style(&excelize.Style{
		Font:      &excelize.Font{Color: colorDark},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorStripe}},
	})
	if err != nil {
		return err
	}

	for i, values := range rows {
		r := row + 1 + i
		cell, _ := excelize.CoordinatesToCellName(1, r)
		values := values
		if err := b.f.SetSheetRow(b.name, cell, &values); err != nil {
			return err
		}
		style := plain
		if i%2 == 1 {
			style = striped
		}
		if err := b.f.SetCellStyle(b.name, cell, fmt.Sprintf("%s%d", last, r), style); err != nil {
			return err
		}
	}

	end := row + len(rows)
	return b.f.AutoFilter(b.name, fmt.Sprintf("A%d:%s%d", row, last, end), nil)
}

func (b *sheetBuilder) close() { b.f.Close() }

// Cases arma el reporte global de casos con el resumen por estado.
func Cases(cases []models.Case, summary models.StatusSummary, now time.Time) (*Report, error) {
	b, err := newSheet("Casos", []float64{28, 26, 26, 16, 22, 22, 40})
	if err != nil {
		return nil, err
	}
	if err := b.header("Reporte global de casos", "Generado el "+now.Local().Format(dateTimeLayout)); err != nil {
		b.close()
		return nil, err
	}

	blocks := []struct {
		label, cell string
		value       int
	}{
		{"PENDIENTES", "A3", summary.Pending},
		{"EN PROCESO", "C3", summary.InProgress},
		{"LISTOS", "E3", summary.Ready},
		{"ENTREGADOS", "G3", summary.Delivered},
	}
	summaryStyle, err := b.style(&excelize.Style{
		Font:      &excelize.Font{Size: 12, Bold: true, Color: colorDark},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorLight}},
	})
	if err != nil {
		b.close()
		return nil, err
	}
	for _, block := range blocks {
		if err := b.f.SetCellValue(b.name, block.cell, fmt.Sprintf("%s\n%d", block.label, block.value)); err != nil {
			b.close()
			return nil, err
		}
		if err := b.f.SetCellStyle(b.name, block.cell, block.cell, summaryStyle); err != nil {
			b.close()
			return nil, err
		}
	}
	if err := b.f.SetRowHeight(b.name, 3, 48); err != nil {
		b.close()
		return nil, err
	}

	rows := make([][]interface{}, 0, len(cases))
	for _, c := range cases {
		rows = append(rows, []interface{}{
			c.PatientName,
			orDefault(c.Dentist, "Sin asignar"),
			c.AssignedLabel(),
			c.Status.Label(),
			formatDateTime(c.ArrivalDate),
			formatDateTime(c.DueDate),
			orDefault(c.Notes, "—"),
		})
	}
	headers := []string{"Paciente", "Doctor tratante", "Laboratorista asignado", "Estado", "Fecha de llegada", "Fecha de entrega", "Notas"}
	if err := b.table(5, headers, rows); err != nil {
		b.close()
		return nil, err
	}
	return &Report{FileName: FileName("casos", now), file: b.f}, nil
}

// Technicians arma el directorio de laboratoristas.
func Technicians(members []models.Technician, now time.Time) (*Report, error) {
	return directory("Laboratoristas", "Directorio de laboratoristas", "laboratoristas", members, now, func(m models.StaffMember) string {
		if m.Role == models.RoleAdmin {
			return "Administrador"
		}
		return "Laboratorista"
	})
}

// Dentists arma el directorio de doctores.
func Dentists(members []models.Dentist, now time.Time) (*Report, error) {
	return directory("Doctores", "Directorio de doctores", "doctores", members, now, func(models.StaffMember) string {
		return "Doctor tratante"
	})
}

func directory(sheet, title, kind string, members []models.StaffMember, now time.Time, roleLabel func(models.StaffMember) string) (*Report, error) {
	b, err := newSheet(sheet, []float64{30, 30, 22, 14, 22})
	if err != nil {
		return nil, err
	}
	if err := b.header(title, "Actualizado el "+now.Local().Format(dateTimeLayout)); err != nil {
		b.close()
		return nil, err
	}
	rows := make([][]interface{}, 0, len(members))
	for _, m := range members {
		rows = append(rows, []interface{}{
			m.Name,
			orDefault(m.Email, "Sin correo"),
			orDefault(m.Phone, "No registrado"),
			roleLabel(m),
			formatDateTime(m.CreatedAt),
		})
	}
	headers := []string{"Nombre completo", "Correo", "Teléfono", "Rol", "Registrado"}
	if err := b.table(3, headers, rows); err != nil {
		b.close()
		return nil, err
	}
	return &Report{FileName: FileName(kind, now), file: b.f}, nil
}
