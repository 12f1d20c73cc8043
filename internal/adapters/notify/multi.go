package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/alejandrodnm/flowscan/internal/ports"
)

// Multi reparte cada señal entre varios notificadores.
type Multi []ports.Notifier

// Notify llama a todos los notificadores aunque alguno falle.
func (m Multi) Notify(ctx context.Context, message string, sig domain.Signal) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, message, sig); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
