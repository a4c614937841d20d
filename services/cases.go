// Package services coordina repositorio, guardia de flujo y almacenamiento.
// Es el unico lugar que escribe casos.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"intechlab/audit"
	"intechlab/events"
	"intechlab/models"
	"intechlab/notify"
	"intechlab/repository"
	"intechlab/storage"
	"intechlab/workflow"
)

// Acciones registradas en la auditoria.
const (
	ActionCreate   = "create"
	ActionAdvance  = "advance"
	ActionComplete = "complete"
	ActionDeliver  = "deliver"
	ActionReturn   = "return"
	ActionReassign = "reassign"
)

// CaseDeps son los colaboradores de CaseService. Audit, Events y Notifier son opcionales.
type CaseDeps struct {
	Cases     repository.Cases
	Store     storage.ObjectStore
	Guard     workflow.Guard
	PublicURL string
	Audit     audit.Recorder
	Events    events.Publisher
	Notifier  notify.Notifier
	// MaxFileBytes limita cada archivo de evidencia; cero usa MaxFileBytes.
	MaxFileBytes int64
}

type CaseService struct {
	cases    repository.Cases
	guard    workflow.Guard
	files    *evidenceUploader
	audit    audit.Recorder
	events   events.Publisher
	notifier notify.Notifier
	inflight *inFlight
	now      func() time.Time
}

func NewCaseService(d CaseDeps) *CaseService {
	s := &CaseService{
		cases:    d.Cases,
		guard:    d.Guard,
		audit:    d.Audit,
		events:   d.Events,
		notifier: d.Notifier,
		inflight: newInFlight(),
		now:      time.Now,
	}
	s.files = &evidenceUploader{store: d.Store, publicURL: d.PublicURL, maxBytes: d.MaxFileBytes, now: func() time.Time { return s.now() }}
	if s.files.maxBytes <= 0 {
		s.files.maxBytes = MaxFileBytes
	}
	if s.audit == nil {
		s.audit = &audit.Memory{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	return s
}

// scope limita la consulta de un laboratorista a sus casos.
func scope(actor models.Actor, filter repository.Filter) repository.Filter {
	if actor.Role == models.RoleWorker {
		filter.AssignedTo = actor.Email
	}
	return filter
}

// List devuelve los casos visibles para el actor ordenados por fecha de entrega.
func (s *CaseService) List(ctx context.Context, actor models.Actor, filter repository.Filter) ([]models.Case, error) {
	cases, err := s.cases.List(ctx, scope(actor, filter))
	if err != nil {
		return nil, err
	}
	return workflow.Visible(actor, cases), nil
}

// Board agrupa los casos visibles por estado con el orden de cada columna.
func (s *CaseService) Board(ctx context.Context, actor models.Actor, modes workflow.SortModes) ([]workflow.Column, models.StatusSummary, error) {
	cases, err := s.List(ctx, actor, repository.Filter{})
	if err != nil {
		return nil, models.StatusSummary{}, err
	}
	return workflow.Board(cases, modes), workflow.Summary(cases), nil
}

// Subscribe entrega fotos filtradas por visibilidad en cada cambio.
func (s *CaseService) Subscribe(ctx context.Context, actor models.Actor, filter repository.Filter) (*repository.Subscription, error) {
	src, err := s.cases.Subscribe(ctx, scope(actor, filter))
	if err != nil {
		return nil, err
	}
	return repository.Derive(ctx, src, func(cases []models.Case) []models.Case {
		return workflow.Visible(actor, cases)
	}), nil
}

// Get oculta como inexistentes los casos que el actor no puede ver.
func (s *CaseService) Get(ctx context.Context, actor models.Actor, id string) (models.Case, error) {
	c, err := s.cases.Get(ctx, id)
	if err != nil {
		return models.Case{}, err
	}
	if !workflow.CanView(actor, c) {
		return models.Case{}, fmt.Errorf("get case %s: %w", id, models.ErrNotFound)
	}
	return c, nil
}

func (s *CaseService) Actions(ctx context.Context, actor models.Actor, id string) (workflow.Actions, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return workflow.Actions{}, err
	}
	return s.guard.Actions(c, actor), nil
}

// Create registra un caso nuevo en estado pendiente. Solo administradores.
func (s *CaseService) Create(ctx context.Context, actor models.Actor, input models.NewCaseInput) (string, error) {
	if !actor.IsAdmin() {
		err := models.Forbidden(models.ReasonAdminOnly, "Solo un administrador puede crear casos.")
		s.record(ctx, audit.Entry{Action: ActionCreate, Actor: actor.Email, ActorRole: string(actor.Role), Outcome: audit.OutcomeDenied, Reason: err.Error()})
		return "", err
	}
	id, err := s.cases.Create(ctx, input)
	if err != nil {
		return "", err
	}
	s.record(ctx, audit.Entry{CaseID: id, Action: ActionCreate, Actor: actor.Email, ActorRole: string(actor.Role), ToStatus: string(models.StatusPending), Outcome: audit.OutcomeAllowed})
	s.publish(ctx, events.Event{Type: events.CaseCreated, CaseID: id, To: models.StatusPending, Actor: actor.Email, AssignedTo: input.AssignedTo})
	return id, nil
}

// Advance mueve el caso a su siguiente estado sin evidencia (pendiente -> en-proceso).
func (s *CaseService) Advance(ctx context.Context, actor models.Actor, id string) (models.Case, error) {
	return s.transition(ctx, actor, id, transitionRequest{action: ActionAdvance, event: events.CaseAdvanced})
}

// SubmitCompletion sube la evidencia de trabajo y marca el caso como listo.
func (s *CaseService) SubmitCompletion(ctx context.Context, actor models.Actor, id, note string, files []File) (models.Case, error) {
	return s.transition(ctx, actor, id, transitionRequest{
		action: ActionComplete,
		event:  events.CaseCompleted,
		to:     models.StatusReady,
		folder: storage.WorkEvidence,
		note:   note,
		files:  files,
	})
}

// Deliver sube la evidencia de entrega, marca el caso entregado y avisa al doctor.
func (s *CaseService) Deliver(ctx context.Context, actor models.Actor, id, note string, files []File) (models.Case, error) {
	return s.transition(ctx, actor, id, transitionRequest{
		action: ActionDeliver,
		event:  events.CaseDelivered,
		to:     models.StatusDelivered,
		folder: storage.DeliveryEvidence,
		note:   note,
		files:  files,
	})
}

// ReturnToProcess devuelve un caso listo a en-proceso. La evidencia previa se conserva.
func (s *CaseService) ReturnToProcess(ctx context.Context, actor models.Actor, id string) (models.Case, error) {
	return s.transition(ctx, actor, id, transitionRequest{
		action: ActionReturn,
		event:  events.CaseReturned,
		to:     models.StatusInProgress,
		from:   models.StatusReady,
	})
}

type transitionRequest struct {
	action string
	event  string
	// to vacio significa el sucesor del estado actual.
	to models.Status
	// from restringe el estado de origen; un caso entregado siempre lo decide el guardia.
	from   models.Status
	folder string
	note   string
	files  []File
}

func (s *CaseService) transition(ctx context.Context, actor models.Actor, id string, req transitionRequest) (models.Case, error) {
	release, err := s.inflight.acquire(id)
	if err != nil {
		return models.Case{}, err
	}
	defer release()

	// Un caso ajeno responde igual que uno inexistente.
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return models.Case{}, err
	}

	entry := audit.Entry{CaseID: id, Action: req.action, Actor: actor.Email, ActorRole: string(actor.Role), FromStatus: string(c.Status)}

	to := req.to
	if to == "" {
		to, _ = workflow.NextStatus(c.Status)
	}
	entry.ToStatus = string(to)

	if req.from != "" && c.Status != req.from && c.Status != models.StatusDelivered {
		err := models.Forbidden(models.ReasonWrongState, "El caso no esta en "+req.from.Label()+".")
		s.deny(ctx, entry, err)
		return models.Case{}, err
	}

	note := strings.TrimSpace(req.note)
	draft := workflow.EvidenceDraft{Note: note, Attachments: len(req.files)}
	if err := s.guard.CheckTransition(c, actor, workflow.Transition{To: to, Evidence: draft}); err != nil {
		s.deny(ctx, entry, err)
		return models.Case{}, err
	}

	var update models.CaseUpdate
	var uploaded []models.Attachment
	if req.folder != "" {
		uploaded, err = s.files.upload(ctx, id, req.folder, actor.Email, req.files)
		if err != nil {
			log.Printf("Fallo la subida de evidencia del caso %s: %v", id, err)
			entry.Outcome = audit.OutcomeFailed
			entry.Reason = err.Error()
			s.record(ctx, entry)
			return models.Case{}, err
		}
		ev := &models.Evidence{Note: note, SubmittedBy: actor.Email, SubmittedAt: s.now().UTC(), Attachments: uploaded}
		if to == models.StatusDelivered {
			update.DeliveryEvidence = ev
		} else {
			update.CompletionEvidence = ev
		}
	}

	if err := s.cases.UpdateStatus(ctx, id, to, update); err != nil {
		log.Printf("No se pudo guardar el estado del caso %s: %v", id, err)
		s.files.discardAttachments(uploaded)
		entry.Outcome = audit.OutcomeFailed
		entry.Reason = err.Error()
		s.record(ctx, entry)
		return models.Case{}, err
	}

	c.Status = to
	if update.CompletionEvidence != nil {
		c.CompletionEvidence = update.CompletionEvidence
	}
	if update.DeliveryEvidence != nil {
		c.DeliveryEvidence = update.DeliveryEvidence
	}

	entry.Outcome = audit.OutcomeAllowed
	s.record(ctx, entry.WithDetails(details(note, uploaded)))
	s.publish(ctx, events.Event{Type: req.event, CaseID: id, From: models.Status(entry.FromStatus), To: to, Actor: actor.Email, AssignedTo: c.AssignedTo})
	log.Printf("Caso %s: %s -> %s por %s", id, entry.FromStatus, to, actor.Email)

	if to == models.StatusDelivered {
		if err := s.notifier.CaseDelivered(ctx, c); err != nil {
			log.Printf("No se pudo enviar el comprobante del caso %s: %v", id, err)
		}
	}
	return c, nil
}

// Reassign cambia el laboratorista asignado. Solo administradores y solo
// en pendiente o en-proceso.
func (s *CaseService) Reassign(ctx context.Context, actor models.Actor, id, email, name string) (models.Case, error) {
	release, err := s.inflight.acquire(id)
	if err != nil {
		return models.Case{}, err
	}
	defer release()

	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return models.Case{}, err
	}
	entry := audit.Entry{CaseID: id, Action: ActionReassign, Actor: actor.Email, ActorRole: string(actor.Role), FromStatus: string(c.Status), ToStatus: string(c.Status)}
	if err := s.guard.CheckReassign(c, actor); err != nil {
		s.deny(ctx, entry, err)
		return models.Case{}, err
	}

	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if !models.IsValidEmail(email) {
		return models.Case{}, models.Invalid("assignedTo", "el laboratorista asignado debe ser un correo valido")
	}
	if err := s.cases.UpdateAssignment(ctx, id, email, name); err != nil {
		return models.Case{}, err
	}

	previous := c.AssignedTo
	c.AssignedTo, c.AssignedToName = email, name
	entry.Outcome = audit.OutcomeAllowed
	s.record(ctx, entry.WithDetails(map[string]interface{}{"from": previous, "to": email}))
	s.publish(ctx, events.Event{Type: events.CaseReassigned, CaseID: id, From: c.Status, To: c.Status, Actor: actor.Email, AssignedTo: email})
	return c, nil
}

func details(note string, atts []models.Attachment) map[string]interface{} {
	if note == "" && len(atts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(atts))
	for _, a := range atts {
		keys = append(keys, a.ObjectKey)
	}
	return map[string]interface{}{"note": note, "objects": keys}
}

func (s *CaseService) deny(ctx context.Context, entry audit.Entry, err error) {
	entry.Outcome = audit.OutcomeDenied
	var fe *models.ForbiddenError
	if errors.As(err, &fe) {
		entry.Reason = fe.Reason
	} else {
		entry.Reason = err.Error()
	}
	s.record(ctx, entry)
}

// record y publish nunca revierten una transicion ya confirmada.
func (s *CaseService) record(ctx context.Context, entry audit.Entry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		log.Printf("Auditoria no guardada: %v", err)
	}
}

func (s *CaseService) publish(ctx context.Context, e events.Event) {
	e.At = s.now().UTC()
	if err := s.events.Publish(ctx, e); err != nil {
		log.Printf("Evento %s del caso %s no publicado: %v", e.Type, e.CaseID, err)
	}
}
