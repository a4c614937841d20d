// Package repository guarda los casos y los perfiles de personal. No aplica
// reglas de flujo: eso lo hace el paquete workflow.
package repository

import (
	"context"
	"strings"

	"intechlab/models"
)

// Filter restringe la lista de casos por asignado y/o estados.
// El asignado se compara sin distinguir mayusculas.
type Filter struct {
	AssignedTo string
	Statuses   []models.Status
}

func (f Filter) matches(c models.Case) bool {
	if f.AssignedTo != "" && !strings.EqualFold(c.AssignedTo, f.AssignedTo) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if c.Status == s {
			return true
		}
	}
	return false
}

// Cases es el unico punto de escritura de casos.
type Cases interface {
	Subscribe(ctx context.Context, filter Filter) (*Subscription, error)
	List(ctx context.Context, filter Filter) ([]models.Case, error)
	Get(ctx context.Context, id string) (models.Case, error)
	Create(ctx context.Context, input models.NewCaseInput) (string, error)
	UpdateStatus(ctx context.Context, id string, status models.Status, extra models.CaseUpdate) error
	UpdateAssignment(ctx context.Context, id, assignedTo, assignedToName string) error
}

// Staff guarda los perfiles de laboratoristas y doctores.
type Staff interface {
	Put(ctx context.Context, kind models.StaffKind, member models.StaffMember) error
	Get(ctx context.Context, kind models.StaffKind, id string) (models.StaffMember, error)
	Delete(ctx context.Context, kind models.StaffKind, id string) error
	List(ctx context.Context, kind models.StaffKind) ([]models.StaffMember, error)
}
