package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseJSON_MissingDatesAreEmpty(t *testing.T) {
	in := validCaseInput()
	in.ArrivalDate = ""
	nc, err := ValidateNewCase(in)
	require.NoError(t, err)

	c := Case{
		ID:          "c1",
		PatientName: nc.PatientName,
		ArrivalDate: nc.ArrivalDate,
		DueDate:     nc.DueDate,
		Status:      StatusReady,
		CompletionEvidence: &Evidence{
			Note:        "Ajuste oclusal",
			Attachments: []Attachment{{FileName: "foto.jpg"}},
		},
	}
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, `"arrivalDate":""`)
	assert.Contains(t, body, `"createdAt":""`)
	assert.Contains(t, body, `"dueDate":"2026-10-10T18:00:00Z"`)
	assert.Contains(t, body, `"submittedAt":""`)
	assert.Contains(t, body, `"uploadedAt":""`)
	assert.NotContains(t, body, "0001-01-01")

	var back Case
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, c, back)
}

func TestCaseJSON_RoundTripsDates(t *testing.T) {
	at := time.Date(2026, 10, 1, 9, 30, 15, 250_000_000, time.UTC)
	c := Case{
		ID:          "c2",
		ArrivalDate: at,
		DueDate:     at.Add(48 * time.Hour),
		CreatedAt:   at,
		Status:      StatusDelivered,
		DeliveryEvidence: &Evidence{
			Note:        "Entregado en clinica",
			SubmittedAt: at,
			Attachments: []Attachment{{FileName: "acta.pdf", UploadedAt: at}},
		},
	}
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"arrivalDate":"2026-10-01T09:30:15.25Z"`)

	var back Case
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, c, back)
}

func TestCaseJSON_RejectsMalformedDate(t *testing.T) {
	var c Case
	err := json.Unmarshal([]byte(`{"id":"c3","dueDate":"mañana"}`), &c)
	assert.Error(t, err)
}
