package models

import (
	"strings"
	"time"
)

// Status es el estado de un caso dentro del flujo del laboratorio.
type Status string

const (
	StatusPending    Status = "pendiente"
	StatusInProgress Status = "en-proceso"
	StatusReady      Status = "listo"
	StatusDelivered  Status = "entregado"
)

// StatusOrder es el orden lineal de los estados.
var StatusOrder = []Status{StatusPending, StatusInProgress, StatusReady, StatusDelivered}

var statusLabels = map[Status]string{
	StatusPending:    "Pendiente",
	StatusInProgress: "En proceso",
	StatusReady:      "Listo",
	StatusDelivered:  "Entregado",
}

// Valid indica si el estado es uno de los cuatro enumerados.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Index devuelve la posicion del estado en StatusOrder, o -1.
func (s Status) Index() int {
	for i, st := range StatusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseStatus acepta el valor de cable del estado.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.TrimSpace(value))
	return s, s.Valid()
}

type Priority string

const (
	PriorityHigh   Priority = "alta"
	PriorityMedium Priority = "media"
	PriorityLow    Priority = "baja"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank ordena alta < media < baja. Valores desconocidos van al final.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "Alta"
	case PriorityMedium:
		return "Media"
	case PriorityLow:
		return "Baja"
	}
	return string(p)
}

// Attachment es un archivo de evidencia guardado en el almacenamiento de objetos.
type Attachment struct {
	FileName    string    `json:"fileName" bson:"fileName"`
	DownloadURL string    `json:"downloadUrl" bson:"downloadUrl"`
	ObjectKey   string    `json:"objectKey,omitempty" bson:"objectKey,omitempty"`
	UploadedBy  string    `json:"uploadedBy" bson:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt" bson:"uploadedAt"`
	ContentType string    `json:"contentType,omitempty" bson:"contentType,omitempty"`
}

// Evidence acompaña las transiciones en-proceso -> listo y listo -> entregado.
type Evidence struct {
	Note        string       `json:"note" bson:"note"`
	SubmittedBy string       `json:"submittedBy" bson:"submittedBy"`
	SubmittedAt time.Time    `json:"submittedAt" bson:"submittedAt"`
	Attachments []Attachment `json:"attachments" bson:"attachments"`
}

// Case representa un trabajo del laboratorio para un paciente.
type Case struct {
	ID                 string    `json:"id"`
	PatientName        string    `json:"patientName"`
	Treatment          string    `json:"treatment"`
	Dentist            string    `json:"dentist"`
	ArrivalDate        time.Time `json:"arrivalDate"`
	DueDate            time.Time `json:"dueDate"`
	AssignedTo         string    `json:"assignedTo"`
	AssignedToName     string    `json:"assignedToName,omitempty"`
	Status             Status    `json:"status"`
	Priority           Priority  `json:"priority"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	CompletionEvidence *Evidence `json:"completionEvidence,omitempty"`
	DeliveryEvidence   *Evidence `json:"deliveryEvidence,omitempty"`
}

// AssignedLabel es el texto que se muestra para el laboratorista asignado.
func (c Case) AssignedLabel() string {
	if c.AssignedToName != "" {
		return c.AssignedToName
	}
	if c.AssignedTo != "" {
		return c.AssignedTo
	}
	return "Sin asignar"
}

// NewCaseInput es la carga de creacion de un caso tal como llega del formulario.
type NewCaseInput struct {
	PatientName    string   `json:"patientName"`
	Treatment      string   `json:"treatment"`
	Dentist        string   `json:"dentist"`
	ArrivalDate    string   `json:"arrivalDate"`
	DueDate        string   `json:"dueDate"`
	AssignedTo     string   `json:"assignedTo"`
	AssignedToName string   `json:"assignedToName,omitempty"`
	Priority       Priority `json:"priority"`
	Notes          string   `json:"notes,omitempty"`
}

// NewCase es la entrada ya validada, con fechas resueltas.
type NewCase struct {
	PatientName    string
	Treatment      string
	Dentist        string
	ArrivalDate    time.Time
	DueDate        time.Time
	AssignedTo     string
	AssignedToName string
	Priority       Priority
	Notes          string
}

// CaseUpdate son los campos que se fusionan junto con un cambio de estado.
type CaseUpdate struct {
	CompletionEvidence *Evidence
	DeliveryEvidence   *Evidence
}

// StatusSummary cuenta casos por estado.
type StatusSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Ready      int `json:"ready"`
	Delivered  int `json:"delivered"`
}
