// Package commands implements the martd-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/martd/martd-go/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [cid:id] #seq DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [cid:%s]", ts, shortenClientID(event.ClientID))
	if event.Sequence > 0 {
		fmt.Fprintf(w, " #%d", event.Sequence)
	}
	fmt.Fprintf(w, " %-3s %s %s\n", event.Direction.String(), event.Layer.String(), typeLabel(event))

	switch {
	case event.Poll != nil:
		formatPollDetails(w, event.Poll)
	case event.Publish != nil:
		formatPublishDetails(w, event.Publish)
	case event.Delivery != nil:
		formatDeliveryDetails(w, event.Delivery)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

func typeLabel(event log.Event) string {
	switch {
	case event.Poll != nil:
		return "Poll"
	case event.Publish != nil:
		return "Publish"
	case event.Delivery != nil:
		return "Delivery"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error(" + event.Error.Kind.String() + ")"
	default:
		return "Unknown"
	}
}

// shortenClientID returns the first 8 characters of the client ID.
func shortenClientID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatCursors(cursors []log.Cursor) string {
	parts := make([]string, len(cursors))
	for i, c := range cursors {
		parts[i] = c.Channel + "=" + c.CacheToken
	}
	return strings.Join(parts, " ")
}

func formatPollDetails(w io.Writer, p *log.PollEvent) {
	if p.URL != "" {
		fmt.Fprintf(w, "  URL: %s\n", p.URL)
	}
	if len(p.Cursors) > 0 {
		fmt.Fprintf(w, "  Cursors: %s\n", formatCursors(p.Cursors))
	}
	if p.StatusCode != 0 {
		fmt.Fprintf(w, "  Status: %d\n", p.StatusCode)
	}
	if p.Duration > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(p.Duration))
	}
	if p.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", p.Size)
	}
	if p.Aborted {
		fmt.Fprintln(w, "  Aborted")
	}
	if len(p.Channels) > 0 {
		fmt.Fprintf(w, "  Channels: %s\n", formatCursors(p.Channels))
		fmt.Fprintf(w, "  Messages: %d\n", p.Messages)
	}
}

func formatPublishDetails(w io.Writer, p *log.PublishEvent) {
	fmt.Fprintf(w, "  Channel: %s\n", p.Channel)
	fmt.Fprintf(w, "  Size: %d bytes\n", p.Size)
	if p.CacheToken != "" {
		fmt.Fprintf(w, "  Etag: %s\n", p.CacheToken)
	}
	if p.StatusCode != 0 {
		fmt.Fprintf(w, "  Status: %d\n", p.StatusCode)
	}
}

func formatDeliveryDetails(w io.Writer, d *log.DeliveryEvent) {
	fmt.Fprintf(w, "  Channel: %s\n", d.Channel)
	fmt.Fprintf(w, "  Etag: %s\n", d.CacheToken)
	fmt.Fprintf(w, "  Messages: %d  Callbacks: %d", d.Messages, d.Callbacks)
	if d.Failures > 0 {
		fmt.Fprintf(w, "  Failures: %d", d.Failures)
	}
	fmt.Fprintln(w)
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Channel != "" {
		fmt.Fprintf(w, "  Channel: %s\n", err.Channel)
	}
	if err.SubscriptionID != "" {
		fmt.Fprintf(w, "  Subscription: %s\n", err.SubscriptionID)
	}
	if len(err.Body) > 0 {
		fmt.Fprintf(w, "  Body: %q", err.Body)
		if err.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer string (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "client":
		return log.LayerClient, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or client)", s)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	d, ok := log.ParseDirection(strings.ToLower(s))
	if !ok {
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
	return d, nil
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	c, ok := log.ParseCategory(strings.ToUpper(s))
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (must be poll, publish, state, error, or delivery)", s)
	}
	return c, nil
}

// RunView writes the events of the log file that match filter to output.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
