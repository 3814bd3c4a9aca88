package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes adapter events to an slog.Logger. Useful during
// development to see session events on the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter that writes to the given
// slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("category", event.Category.String()),
	}

	if event.Role != "" {
		attrs = append(attrs, slog.String("role", event.Role))
	}

	switch {
	case event.IO != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("requested", event.IO.Requested),
			slog.Int("transferred", event.IO.Transferred),
		)
		if event.IO.WouldBlock {
			attrs = append(attrs, slog.Bool("would_block", true))
		}
		if event.IO.NeedsOpposite {
			attrs = append(attrs, slog.Bool("needs_opposite", true))
		}
		if event.IO.EndOfStream {
			attrs = append(attrs, slog.Bool("eof", true))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		if event.Error.Code != 0 {
			attrs = append(attrs, slog.Int("code", event.Error.Code))
		}
		attrs = append(attrs, slog.String("error", event.Error.Message))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "wraptls event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
