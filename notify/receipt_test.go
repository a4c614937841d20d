package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"intechlab/models"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func deliveredCase(dentist string) models.Case {
	return models.Case{
		ID:          "c1",
		PatientName: "María Gómez",
		Treatment:   "Corona zirconio",
		Dentist:     dentist,
		Status:      models.StatusDelivered,
		Priority:    models.PriorityHigh,
		DueDate:     time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		DeliveryEvidence: &models.Evidence{
			SubmittedBy: "admin@lab.com",
			SubmittedAt: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
			Attachments: []models.Attachment{{FileName: "acta.pdf"}},
		},
	}
}

func TestReceiptPDF(t *testing.T) {
	buf, err := ReceiptPDF(deliveredCase("Dra. Ruiz"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestMailer_SendsToDentist(t *testing.T) {
	fake := &fakeSender{}
	m := &Mailer{from: "lab@intechlab.com", sender: fake}

	require.NoError(t, m.CaseDelivered(context.Background(), deliveredCase("Dra. Ruiz — Ruiz@Clinica.com")))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, []string{"ruiz@clinica.com"}, fake.sent[0].GetHeader("To"))
}

func TestMailer_SkipsWithoutEmail(t *testing.T) {
	fake := &fakeSender{}
	m := &Mailer{from: "lab@intechlab.com", sender: fake}

	require.NoError(t, m.CaseDelivered(context.Background(), deliveredCase("Dra. Ruiz")))
	assert.Empty(t, fake.sent)
}

func TestMailer_ReportsSendFailure(t *testing.T) {
	m := &Mailer{from: "lab@intechlab.com", sender: &fakeSender{err: errors.New("smtp down")}}
	assert.Error(t, m.CaseDelivered(context.Background(), deliveredCase("ruiz@clinica.com")))
}
