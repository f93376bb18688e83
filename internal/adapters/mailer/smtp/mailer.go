package smtp

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"paywall-anywhere/internal/ports/mailer"
)

var ErrNotConfigured = errors.New("smtp mailer not configured")

// Mailer envía texto plano por SMTP sin autenticación (relay interno).
type Mailer struct {
	addr string
	from string
}

func New(addr, from string) *Mailer {
	return &Mailer{
		addr: strings.TrimSpace(addr),
		from: strings.TrimSpace(from),
	}
}

func (m *Mailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.addr == "" || m.from == "" {
		return ErrNotConfigured
	}

	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.from,
		msg.To,
		msg.Subject,
		msg.Body,
	)

	// net/smtp no toma context; el timeout lo pone el dial del paquete.
	return smtp.SendMail(m.addr, nil, m.from, []string{msg.To}, []byte(body))
}
