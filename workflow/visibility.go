package workflow

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"intechlab/models"
)

var labelEmail = regexp.MustCompile(`[^\s@<>()—,;]+@[^\s@<>()—,;]+\.[^\s@<>()—,;]+`)

// DentistEmail extrae el primer correo de una etiqueta libre como "Dra. Ruiz — ruiz@clinica.com".
func DentistEmail(label string) string {
	return strings.ToLower(labelEmail.FindString(label))
}

// MatchesDentist compara la etiqueta del caso con el nombre o correo del doctor.
// Es una heuristica sobre texto libre, no una llave foranea.
func MatchesDentist(label, name, email string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	name = strings.ToLower(strings.TrimSpace(name))
	email = strings.ToLower(strings.TrimSpace(email))
	if label == "" {
		return false
	}
	if email != "" {
		if label == email || strings.Contains(label, email) || DentistEmail(label) == email {
			return true
		}
	}
	if len([]rune(name)) >= models.MinTextLen {
		if label == name || strings.Contains(label, name) {
			return true
		}
	}
	return false
}

// CanView aplica la regla de visibilidad por rol.
func CanView(actor models.Actor, c models.Case) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDoctor:
		return MatchesDentist(c.Dentist, actor.Name, actor.Email)
	default:
		return actor.Email != "" && strings.EqualFold(strings.TrimSpace(c.AssignedTo), strings.TrimSpace(actor.Email))
	}
}

// Visible filtra los casos que el actor puede ver, conservando el orden.
func Visible(actor models.Actor, cases []models.Case) []models.Case {
	return lo.Filter(cases, func(c models.Case, _ int) bool {
		return CanView(actor, c)
	})
}
