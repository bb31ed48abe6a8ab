package email

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSenderDisabled indica que no hay transporte de correo configurado.
var ErrSenderDisabled = errors.New("email sender disabled")

// Sender envia los correos transaccionales del flujo de autenticacion.
type Sender interface {
	SendVerificationCode(ctx context.Context, toEmail, toName, code string, expiresAt time.Time) error
}

// disabledSender rechaza todo envio con ErrSenderDisabled y el motivo configurado.
type disabledSender struct {
	err error
}

func NewDisabledSender(reason string) Sender {
	if reason == "" {
		return disabledSender{err: ErrSenderDisabled}
	}
	return disabledSender{err: fmt.Errorf("%w: %s", ErrSenderDisabled, reason)}
}

func (s disabledSender) SendVerificationCode(ctx context.Context, _, _, _ string, _ time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.err
}
