// Package notify envia al doctor el comprobante de entrega de un caso.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"gopkg.in/gomail.v2"

	"intechlab/models"
	"intechlab/workflow"
)

const dateLayout = "02-01-2006"

// Notifier avisa que un caso fue entregado.
type Notifier interface {
	CaseDelivered(ctx context.Context, c models.Case) error
}

// ReceiptPDF genera el comprobante de entrega con los datos del caso.
func ReceiptPDF(c models.Case) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, tr("Comprobante de entrega"))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	line := func(label, value string) {
		if value == "" {
			return
		}
		pdf.Cell(0, 10, tr(fmt.Sprintf("%s: %s", label, value)))
		pdf.Ln(8)
	}
	line("Caso", c.ID)
	line("Paciente", c.PatientName)
	line("Trabajo", c.Treatment)
	line("Doctor", c.Dentist)
	line("Laboratorista", c.AssignedLabel())
	line("Prioridad", c.Priority.Label())
	if !c.DueDate.IsZero() {
		line("Fecha compromiso", c.DueDate.Format(dateLayout))
	}

	if ev := c.DeliveryEvidence; ev != nil {
		if !ev.SubmittedAt.IsZero() {
			line("Entregado", ev.SubmittedAt.Format(dateLayout))
		}
		line("Entregado por", ev.SubmittedBy)
		line("Nota", ev.Note)

		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 14)
		pdf.Cell(0, 10, tr("Evidencia"))
		pdf.Ln(10)
		pdf.SetFont("Arial", "", 12)
		for idx, att := range ev.Attachments {
			pdf.Cell(0, 10, tr(fmt.Sprintf("  %d. %s", idx+1, att.FileName)))
			pdf.Ln(8)
		}
	}

	var pdfBuffer bytes.Buffer
	if err := pdf.Output(&pdfBuffer); err != nil {
		return nil, err
	}
	return &pdfBuffer, nil
}

// SMTPConfig son los datos del servidor de correo.
type SMTPConfig struct {
	Server   string
	Port     int
	Email    string
	Password string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer envia el comprobante por correo al doctor del caso.
type Mailer struct {
	from   string
	sender sender
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{
		from:   cfg.Email,
		sender: gomail.NewDialer(cfg.Server, cfg.Port, cfg.Email, cfg.Password),
	}
}

// CaseDelivered no falla si la etiqueta del doctor no trae correo; solo lo registra.
func (m *Mailer) CaseDelivered(_ context.Context, c models.Case) error {
	to := workflow.DentistEmail(c.Dentist)
	if to == "" {
		log.Printf("El caso %s no tiene correo de doctor, no se envia comprobante", c.ID)
		return nil
	}

	pdfBuffer, err := ReceiptPDF(c)
	if err != nil {
		return fmt.Errorf("error al generar el comprobante: %v", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Caso entregado: "+strings.TrimSpace(c.PatientName))
	msg.SetBody("text/plain", "Adjunto encontrarás el comprobante de entrega del caso.")
	msg.Attach("entrega-"+c.ID+".pdf", gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := pdfBuffer.WriteTo(w)
		return err
	}))

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("error al enviar el correo: %v", err)
	}
	log.Printf("Comprobante del caso %s enviado a %s", c.ID, to)
	return nil
}

// Nop no envia nada; se usa cuando no hay SMTP configurado.
type Nop struct{}

func (Nop) CaseDelivered(context.Context, models.Case) error { return nil }
