package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"intechlab/models"
)

var now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func open(t *testing.T, r *Report) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	_, err := r.WriteTo(&buf)
	require.NoError(t, err)
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "intechlab-casos-2026-10-16.xlsx", FileName("casos", now))
}

func TestCases(t *testing.T) {
	cases := []models.Case{
		{PatientName: "Ana", Dentist: "Dra. Ruiz", AssignedTo: "tech@lab.com", Status: models.StatusReady, DueDate: now},
		{PatientName: "Luis", Status: models.StatusPending},
	}
	r, err := Cases(cases, models.StatusSummary{Total: 2, Pending: 1, Ready: 1}, now)
	require.NoError(t, err)
	assert.Equal(t, "intechlab-casos-2026-10-16.xlsx", r.FileName)

	f := open(t, r)
	title, err := f.GetCellValue("Casos", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Reporte global de casos", title)

	pending, _ := f.GetCellValue("Casos", "A3")
	assert.Equal(t, "PENDIENTES\n1", pending)

	header, _ := f.GetCellValue("Casos", "A5")
	assert.Equal(t, "Paciente", header)

	status, _ := f.GetCellValue("Casos", "D6")
	assert.Equal(t, "Listo", status)
	assigned, _ := f.GetCellValue("Casos", "C7")
	assert.Equal(t, "Sin asignar", assigned)
	due, _ := f.GetCellValue("Casos", "F7")
	assert.Equal(t, "Sin fecha", due)
	notes, _ := f.GetCellValue("Casos", "G7")
	assert.Equal(t, "—", notes)
}

func TestDirectories(t *testing.T) {
	techs := []models.Technician{{Name: "Ana", Email: "ana@lab.com", Role: models.RoleAdmin}, {Name: "Beto", Role: models.RoleWorker}}
	r, err := Technicians(techs, now)
	require.NoError(t, err)
	assert.Equal(t, "intechlab-laboratoristas-2026-10-16.xlsx", r.FileName)

	f := open(t, r)
	role, _ := f.GetCellValue("Laboratoristas", "D4")
	assert.Equal(t, "Administrador", role)
	phone, _ := f.GetCellValue("Laboratoristas", "C5")
	assert.Equal(t, "No registrado", phone)

	r, err = Dentists([]models.Dentist{{Name: "Dra. Ruiz", Email: "ruiz@clinica.com"}}, now)
	require.NoError(t, err)
	assert.Equal(t, "intechlab-doctores-2026-10-16.xlsx", r.FileName)
	f = open(t, r)
	role, _ = f.GetCellValue("Doctores", "D4")
	assert.Equal(t, "Doctor tratante", role)
}
