package mailer

import "context"

// Message es un mail saliente en texto plano.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer es el contrato con el colaborador de notificaciones salientes.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
