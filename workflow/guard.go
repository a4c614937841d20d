// Package workflow decide que transiciones de estado puede hacer cada actor
// sobre un caso y que evidencia debe acompañarlas. No tiene efectos.
package workflow

import (
	"strings"

	"intechlab/models"
)

// NextStatus devuelve el sucesor inmediato, o false si el estado es terminal o desconocido.
func NextStatus(s models.Status) (models.Status, bool) {
	i := s.Index()
	if i < 0 || i == len(models.StatusOrder)-1 {
		return "", false
	}
	return models.StatusOrder[i+1], true
}

// reassignable son los estados en los que un administrador puede reasignar.
var reassignable = map[models.Status]bool{
	models.StatusPending:    true,
	models.StatusInProgress: true,
}

// EvidenceDraft es la evidencia propuesta antes de subir archivos.
type EvidenceDraft struct {
	Note        string
	Attachments int
}

// Transition es un cambio de estado solicitado.
type Transition struct {
	To       models.Status
	Evidence EvidenceDraft
}

// Guard aplica las reglas de autorizacion del flujo.
type Guard struct {
	// AdminMayComplete permite a un administrador enviar la evidencia
	// en-proceso -> listo de un caso asignado a otra persona.
	AdminMayComplete bool
}

func New(adminMayComplete bool) Guard {
	return Guard{AdminMayComplete: adminMayComplete}
}

func isAssignee(c models.Case, actor models.Actor) bool {
	return c.AssignedTo != "" && strings.EqualFold(strings.TrimSpace(c.AssignedTo), strings.TrimSpace(actor.Email))
}

// CheckTransition devuelve nil si el actor puede mover el caso al estado pedido.
func (g Guard) CheckTransition(c models.Case, actor models.Actor, t Transition) error {
	if c.Status == models.StatusDelivered {
		return models.Forbidden(models.ReasonTerminalState, "Caso finalizado")
	}

	if c.Status == models.StatusReady && t.To == models.StatusInProgress {
		if !actor.IsAdmin() {
			return models.Forbidden(models.ReasonAdminOnly, "Solo un administrador puede devolver el caso a proceso.")
		}
		return nil
	}

	next, ok := NextStatus(c.Status)
	if !ok || next != t.To {
		return models.Forbidden(models.ReasonWrongState, "No se puede pasar de "+c.Status.Label()+" a "+t.To.Label()+".")
	}

	switch t.To {
	case models.StatusDelivered:
		if !actor.IsAdmin() {
			return models.Forbidden(models.ReasonAdminOnly, "Solo un administrador puede entregar.")
		}
		if t.Evidence.Attachments < 1 {
			return models.EvidenceRequired("Adjunta al menos un archivo.")
		}
		return nil

	case models.StatusReady:
		if !isAssignee(c, actor) && !(g.AdminMayComplete && actor.IsAdmin()) {
			return models.Forbidden(models.ReasonNotAssignee, "Solo el asignado puede subir evidencia.")
		}
		if strings.TrimSpace(t.Evidence.Note) == "" {
			return models.EvidenceRequired("Describe la evidencia en la nota.")
		}
		if t.Evidence.Attachments < 1 {
			return models.EvidenceRequired("Selecciona una o más imágenes antes de subir.")
		}
		return nil

	case models.StatusInProgress:
		if !isAssignee(c, actor) {
			return models.Forbidden(models.ReasonNotAssignee, "Solo el asignado puede iniciar el caso.")
		}
		return nil
	}

	return models.Forbidden(models.ReasonWrongState, "Transicion no soportada.")
}

// CheckReassign decide si el actor puede cambiar el asignado del caso.
// El estado se revisa antes que el rol.
func (g Guard) CheckReassign(c models.Case, actor models.Actor) error {
	if c.Status == models.StatusDelivered {
		return models.Forbidden(models.ReasonTerminalState, "Caso finalizado")
	}
	if !reassignable[c.Status] {
		return models.Forbidden(models.ReasonWrongState, "Solo se reasignan casos pendientes o en proceso.")
	}
	if !actor.IsAdmin() {
		return models.Forbidden(models.ReasonAdminOnly, "Solo un administrador puede reasignar.")
	}
	return nil
}

// Actions es lo que la presentacion puede ofrecer al actor para un caso.
type Actions struct {
	Next             models.Status `json:"next,omitempty"`
	Advance          bool          `json:"advance"`
	SubmitCompletion bool          `json:"submitCompletion"`
	Deliver          bool          `json:"deliver"`
	ReturnToProcess  bool          `json:"returnToProcess"`
	Reassign         bool          `json:"reassign"`
	Blocked          string        `json:"blocked,omitempty"`
}

// Actions evalua el guardia con evidencia completa para saber que controles habilitar.
func (g Guard) Actions(c models.Case, actor models.Actor) Actions {
	full := EvidenceDraft{Note: "-", Attachments: 1}
	var a Actions
	if next, ok := NextStatus(c.Status); ok {
		a.Next = next
	}

	switch c.Status {
	case models.StatusPending:
		a.Advance = g.CheckTransition(c, actor, Transition{To: models.StatusInProgress}) == nil
	case models.StatusInProgress:
		a.SubmitCompletion = g.CheckTransition(c, actor, Transition{To: models.StatusReady, Evidence: full}) == nil
	case models.StatusReady:
		a.Deliver = g.CheckTransition(c, actor, Transition{To: models.StatusDelivered, Evidence: full}) == nil
		a.ReturnToProcess = g.CheckTransition(c, actor, Transition{To: models.StatusInProgress}) == nil
	}
	a.Reassign = g.CheckReassign(c, actor) == nil

	if !a.Advance && !a.SubmitCompletion && !a.Deliver {
		a.Blocked = blockedMessage(c, actor)
	}
	return a
}

func blockedMessage(c models.Case, actor models.Actor) string {
	switch {
	case c.Status == models.StatusDelivered:
		return "Caso finalizado"
	case c.Status == models.StatusInProgress:
		return "Solo el asignado puede subir evidencia."
	case c.Status == models.StatusReady && !actor.IsAdmin():
		return "Solo un administrador puede entregar."
	}
	return "Sin permisos para avanzar"
}
