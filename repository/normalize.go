package repository

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"intechlab/models"
)

// Valores por defecto para documentos incompletos.
const (
	defaultPatientName = "Paciente sin nombre"
	defaultTreatment   = "Trabajo sin descripción"
	defaultFileName    = "archivo"
	legacyFileName     = "evidencia"
)

// DecodeCase convierte un documento crudo en un Case con valores seguros.
// Nunca falla: los campos ausentes o con forma incorrecta toman su valor por defecto.
func DecodeCase(id string, doc bson.M) models.Case {
	c := models.Case{
		ID:             id,
		PatientName:    stringOr(doc["patientName"], defaultPatientName),
		Treatment:      stringOr(doc["treatment"], defaultTreatment),
		Dentist:        stringOr(doc["dentist"], ""),
		ArrivalDate:    timeOf(doc["arrivalDate"]),
		DueDate:        timeOf(doc["dueDate"]),
		AssignedTo:     stringOr(doc["assignedTo"], ""),
		AssignedToName: stringOr(doc["assignedToName"], ""),
		Status:         models.StatusPending,
		Priority:       models.PriorityMedium,
		Notes:          stringOr(doc["notes"], ""),
		CreatedAt:      timeOf(doc["createdAt"]),
	}
	if s, ok := doc["status"].(string); ok && models.Status(s).Valid() {
		c.Status = models.Status(s)
	}
	if p, ok := doc["priority"].(string); ok && models.Priority(p).Valid() {
		c.Priority = models.Priority(p)
	}
	if ev, ok := asMap(doc["completionEvidence"]); ok {
		c.CompletionEvidence = decodeEvidence(ev, true)
	}
	if ev, ok := asMap(doc["deliveryEvidence"]); ok {
		c.DeliveryEvidence = decodeEvidence(ev, false)
	}
	return c
}

func decodeEvidence(doc bson.M, legacyImage bool) *models.Evidence {
	ev := &models.Evidence{
		Note:        stringOr(doc["note"], ""),
		SubmittedBy: stringOr(doc["submittedBy"], ""),
		SubmittedAt: timeOf(doc["submittedAt"]),
	}
	ev.Attachments = decodeAttachments(doc["attachments"], ev.SubmittedBy)

	// Registros antiguos guardaban una sola imagen en imageUrl.
	if legacyImage && len(ev.Attachments) == 0 {
		if url, ok := doc["imageUrl"].(string); ok && url != "" {
			ev.Attachments = []models.Attachment{{
				FileName:    stringOr(doc["fileName"], legacyFileName),
				DownloadURL: url,
				UploadedBy:  ev.SubmittedBy,
				UploadedAt:  ev.SubmittedAt,
			}}
		}
	}
	return ev
}

func decodeAttachments(raw interface{}, fallbackUploader string) []models.Attachment {
	items, ok := asSlice(raw)
	if !ok {
		return []models.Attachment{}
	}
	out := make([]models.Attachment, 0, len(items))
	for _, item := range items {
		rec, ok := asMap(item)
		if !ok {
			continue
		}
		url := stringOr(rec["downloadUrl"], "")
		if url == "" {
			url = stringOr(rec["url"], "")
		}
		out = append(out, models.Attachment{
			FileName:    anyString(rec["fileName"], defaultFileName),
			DownloadURL: url,
			ObjectKey:   stringOr(rec["objectKey"], ""),
			UploadedBy:  stringOr(rec["uploadedBy"], fallbackUploader),
			UploadedAt:  timeOf(rec["uploadedAt"]),
			ContentType: stringOr(rec["contentType"], ""),
		})
	}
	return out
}

func stringOr(v interface{}, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// anyString acepta valores no textuales y los convierte, como hacia el cliente original.
func anyString(v interface{}, def string) string {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// timeOf acepta fechas BSON o cadenas ISO-8601; cualquier otra cosa es el instante cero.
func timeOf(v interface{}) time.Time {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case time.Time:
		return x.UTC()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case string:
		if t, ok := models.ParseDate(x); ok {
			return t
		}
	}
	return time.Time{}
}

func asMap(v interface{}) (bson.M, bool) {
	switch x := v.(type) {
	case bson.M:
		return x, true
	case map[string]interface{}:
		return bson.M(x), true
	case primitive.D:
		return x.Map(), true
	}
	return nil, false
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch x := v.(type) {
	case primitive.A:
		return []interface{}(x), true
	case []interface{}:
		return x, true
	}
	return nil, false
}
