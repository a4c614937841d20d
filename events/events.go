// Package events publica los cambios de ciclo de vida de los casos.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"intechlab/models"
)

// Tipos de evento.
const (
	CaseCreated    = "case.created"
	CaseAdvanced   = "case.advanced"
	CaseCompleted  = "case.completed"
	CaseDelivered  = "case.delivered"
	CaseReturned   = "case.returned"
	CaseReassigned = "case.reassigned"
)

// Event es el mensaje que se publica por cada transicion confirmada.
type Event struct {
	Type       string        `json:"type"`
	CaseID     string        `json:"caseId"`
	From       models.Status `json:"from,omitempty"`
	To         models.Status `json:"to,omitempty"`
	Actor      string        `json:"actor"`
	AssignedTo string        `json:"assignedTo,omitempty"`
	At         time.Time     `json:"at"`
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher entrega eventos a un broker. Un fallo nunca revierte la transicion.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop solo registra el evento en el log.
type Nop struct{}

func (Nop) Publish(_ context.Context, e Event) error {
	log.Printf("Evento %s del caso %s (sin broker configurado)", e.Type, e.CaseID)
	return nil
}

func (Nop) Close() error { return nil }
