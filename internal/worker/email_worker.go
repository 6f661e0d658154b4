package worker

// email_worker.go
// Processes email jobs from QueueEmail: alert digests for the pharmacy staff.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

type enviador interface {
	Enviar(to []string, subject, body string, adjunto []byte, nombreAdjunto string) error
}

// EmailWorker sends queued emails via SMTP.
type EmailWorker struct {
	mailer enviador
}

func NewEmailWorker(mailer enviador) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if len(payload.To) == 0 {
		log.Warn().Msg("email_worker: no recipients, skipping")
		return nil
	}
	if err := w.mailer.Enviar(payload.To, payload.Subject, payload.Body, nil, ""); err != nil {
		return fmt.Errorf("email_worker: send: %w", err)
	}
	log.Info().Strs("to", payload.To).Str("subject", payload.Subject).Msg("email_worker: sent")
	return nil
}
