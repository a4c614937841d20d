package repository

import (
	"time"

	"intechlab/models"
)

// DemoCases son los casos de ejemplo del driver en memoria.
func DemoCases(now time.Time) []models.Case {
	day := 24 * time.Hour
	now = now.UTC()
	return []models.Case{
		{
			ID:          "lab-001",
			PatientName: "María Fernanda Gómez",
			Treatment:   "Carillas cerámicas - Superior",
			Dentist:     "Dra. Alejandra Ruiz",
			DueDate:     now,
			AssignedTo:  "carlos@intechlab.com",
			Status:      models.StatusInProgress,
			Priority:    models.PriorityHigh,
			Notes:       "Alinear tono con referencia Vita A2",
			CreatedAt:   now.Add(-3 * day),
		},
		{
			ID:          "lab-002",
			PatientName: "Daniel Pereira",
			Treatment:   "Corona Zirconio 2M",
			Dentist:     "Dr. Benjamín Ulloa",
			DueDate:     now.Add(day),
			AssignedTo:  "ana@intechlab.com",
			Status:      models.StatusPending,
			Priority:    models.PriorityMedium,
			Notes:       "Enviar foto para aprobación",
			CreatedAt:   now.Add(-2 * day),
		},
		{
			ID:          "lab-003",
			PatientName: "Lucía Hernández",
			Treatment:   "Incrustación Inlay",
			Dentist:     "Dra. Sofía Carpio",
			DueDate:     now.Add(2 * day),
			AssignedTo:  "diego@intechlab.com",
			Status:      models.StatusReady,
			Priority:    models.PriorityLow,
			Notes:       "Empaque con kit de mantenimiento",
			CreatedAt:   now.Add(-day),
			CompletionEvidence: &models.Evidence{
				Note:        "Listo para revisión",
				SubmittedBy: "diego@intechlab.com",
				SubmittedAt: now.Add(-time.Hour),
				Attachments: []models.Attachment{},
			},
		},
	}
}
