// Package notify delivers signals to operators. A Dispatcher renders each
// signal once and hands it to every registered Sender (Discord, Telegram,
// a generic webhook or the log). Delivery failures are reported to the
// caller but never retried here.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rustyeddy/signalbot/signals"
)

// Message is a rendered signal.
type Message struct {
	Title  string
	Body   string
	Signal signals.Signal
}

// Sender is implemented by each delivery channel.
type Sender interface {
	Send(ctx context.Context, m Message) error
	Name() string
}

// Notifier is what the engine depends on.
type Notifier interface {
	Notify(ctx context.Context, sig signals.Signal) error
}

// Dispatcher fans a signal out to its senders. When kinds is non-empty
// only signals of those kinds ("entry", "exit") are delivered.
type Dispatcher struct {
	senders []Sender
	kinds   map[signals.Kind]bool
	logger  *slog.Logger
}

func NewDispatcher(senders []Sender, kinds []string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[signals.Kind]bool, len(kinds))
	for _, k := range kinds {
		allowed[signals.Kind(strings.ToLower(strings.TrimSpace(k)))] = true
	}
	return &Dispatcher{
		senders: senders,
		kinds:   allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Senders returns the names of the registered senders.
func (d *Dispatcher) Senders() []string {
	names := make([]string, len(d.senders))
	for i, s := range d.senders {
		names[i] = s.Name()
	}
	return names
}

// Notify delivers sig to every sender. One failing sender does not stop
// delivery to the rest; the failures are combined in the returned error.
func (d *Dispatcher) Notify(ctx context.Context, sig signals.Signal) error {
	if len(d.kinds) > 0 && !d.kinds[sig.Kind] {
		d.logger.DebugContext(ctx, "signal filtered out", slog.String("kind", string(sig.Kind)))
		return nil
	}
	if len(d.senders) == 0 {
		return nil
	}

	m := Message{Title: Title(sig), Body: FormatSignal(sig), Signal: sig}

	var errs []string
	for _, s := range d.senders {
		if err := s.Send(ctx, m); err != nil {
			d.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		d.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", m.Title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
