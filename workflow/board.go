package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"intechlab/models"
)

// SortMode es el orden elegido para una columna del tablero.
type SortMode string

const (
	SortByDueDate  SortMode = "dueDate"
	SortByPriority SortMode = "priority"
)

// SortModes guarda un modo por estado. No se persiste: llega en cada peticion.
type SortModes map[models.Status]SortMode

// ParseSortModes lee "pendiente:priority,listo:dueDate".
func ParseSortModes(raw string) (SortModes, error) {
	modes := SortModes{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st, mode, ok := strings.Cut(part, ":")
		if !ok {
			return nil, models.Invalid("sort", fmt.Sprintf("formato invalido %q", part))
		}
		status, valid := models.ParseStatus(st)
		if !valid {
			return nil, models.Invalid("sort", fmt.Sprintf("estado desconocido %q", st))
		}
		switch SortMode(mode) {
		case SortByDueDate, SortByPriority:
			modes[status] = SortMode(mode)
		default:
			return nil, models.Invalid("sort", fmt.Sprintf("orden desconocido %q", mode))
		}
	}
	return modes, nil
}

// dueBefore ordena por fecha de entrega ascendente; sin fecha va al final.
func dueBefore(a, b models.Case) bool {
	switch {
	case a.DueDate.IsZero() && b.DueDate.IsZero():
		return false
	case a.DueDate.IsZero():
		return false
	case b.DueDate.IsZero():
		return true
	}
	return a.DueDate.Before(b.DueDate)
}

// SortCases ordena en el lugar segun el modo.
func SortCases(cases []models.Case, mode SortMode) {
	sort.SliceStable(cases, func(i, j int) bool {
		if mode == SortByPriority {
			ri, rj := cases[i].Priority.Rank(), cases[j].Priority.Rank()
			if ri != rj {
				return ri < rj
			}
		}
		return dueBefore(cases[i], cases[j])
	})
}

// Column es un grupo de casos con el mismo estado.
type Column struct {
	Status models.Status `json:"status"`
	Label  string        `json:"label"`
	Sort   SortMode      `json:"sort"`
	Cases  []models.Case `json:"cases"`
}

// Board agrupa por estado en el orden del flujo y ordena cada columna con su propio modo.
func Board(cases []models.Case, modes SortModes) []Column {
	groups := lo.GroupBy(cases, func(c models.Case) models.Status { return c.Status })
	columns := make([]Column, 0, len(models.StatusOrder))
	for _, status := range models.StatusOrder {
		mode := modes[status]
		if mode == "" {
			mode = SortByDueDate
		}
		bucket := append([]models.Case{}, groups[status]...)
		SortCases(bucket, mode)
		columns = append(columns, Column{Status: status, Label: status.Label(), Sort: mode, Cases: bucket})
	}
	return columns
}

// Summary cuenta los casos por estado.
func Summary(cases []models.Case) models.StatusSummary {
	s := models.StatusSummary{Total: len(cases)}
	for _, c := range cases {
		switch c.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusReady:
			s.Ready++
		case models.StatusDelivered:
			s.Delivered++
		}
	}
	return s
}
