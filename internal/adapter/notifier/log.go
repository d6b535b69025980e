package notifier

import (
	"context"

	"github.com/ejuuz/wallet-service/internal/core/ports"

	"github.com/rs/zerolog"
)

// LogNotifier writes events to the structured logger. It is the
// fallback delivery channel when no message broker is configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify writes the event to the logger.
func (n *LogNotifier) Notify(_ context.Context, event ports.Event) error {
	n.log.Info().
		Str("kind", event.Kind).
		Str("account_id", event.AccountID.String()).
		Str("amount", event.Amount).
		Str("message", event.Message).
		Time("at", event.At).
		Msg("event")
	return nil
}
