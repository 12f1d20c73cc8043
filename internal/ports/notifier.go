package ports

import (
	"context"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

// Notifier entrega una alerta por cada señal detectada.
type Notifier interface {
	// Notify attempts delivery once. Failures are reported, never retried.
	Notify(ctx context.Context, message string, sig domain.Signal) error
}
