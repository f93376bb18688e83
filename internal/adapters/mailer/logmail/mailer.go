package logmail

import (
	"context"

	"paywall-anywhere/internal/platform/logger"
	"paywall-anywhere/internal/ports/mailer"
)

// Mailer escribe los mails al log en vez de enviarlos.
// Es el default en desarrollo (sin SMTP configurado).
type Mailer struct {
	log logger.Logger
}

func New(log logger.Logger) *Mailer {
	return &Mailer{log: log}
}

func (m *Mailer) Send(ctx context.Context, msg mailer.Message) error {
	m.log.Info("mail (no enviado, modo log)", map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	})
	return nil
}
