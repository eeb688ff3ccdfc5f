package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("client_id", event.ClientID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Sequence != 0 {
		attrs = append(attrs, slog.Uint64("seq", event.Sequence))
	}
	if event.Server != "" {
		attrs = append(attrs, slog.String("server", event.Server))
	}

	switch {
	case event.Poll != nil:
		p := event.Poll
		if p.URL != "" {
			attrs = append(attrs,
				slog.String("url", p.URL),
				slog.Int("channels", len(p.Cursors)),
			)
		} else {
			attrs = append(attrs,
				slog.Int("status", p.StatusCode),
				slog.Int("size", p.Size),
				slog.Duration("duration", p.Duration),
				slog.Int("channels", len(p.Channels)),
				slog.Int("messages", p.Messages),
			)
		}
		if p.Aborted {
			attrs = append(attrs, slog.Bool("aborted", true))
		}
	case event.Publish != nil:
		attrs = append(attrs,
			slog.String("channel", event.Publish.Channel),
			slog.Int("size", event.Publish.Size),
		)
		if event.Publish.CacheToken != "" {
			attrs = append(attrs, slog.String("etag", event.Publish.CacheToken))
		}
	case event.Delivery != nil:
		attrs = append(attrs,
			slog.String("channel", event.Delivery.Channel),
			slog.String("etag", event.Delivery.CacheToken),
			slog.Int("messages", event.Delivery.Messages),
			slog.Int("callbacks", event.Delivery.Callbacks),
		)
		if event.Delivery.Failures > 0 {
			attrs = append(attrs, slog.Int("failures", event.Delivery.Failures))
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
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_kind", event.Error.Kind.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Channel != "" {
			attrs = append(attrs, slog.String("channel", event.Error.Channel))
		}
		if event.Error.SubscriptionID != "" {
			attrs = append(attrs, slog.String("subscription_id", event.Error.SubscriptionID))
		}
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
