package log

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"
)

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
	}
}

func writeEvents(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.mlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range events {
		logger.Log(ev)
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleTrace(base time.Time) []Event {
	return []Event{
		{
			Timestamp: base, ClientID: "a", Direction: DirectionOut, Layer: LayerTransport, Category: CategoryPoll,
			Poll: &PollEvent{URL: "u", Cursors: []Cursor{{Channel: "news", CacheToken: "0"}}},
		},
		{
			Timestamp: base.Add(time.Second), ClientID: "a", Direction: DirectionIn, Layer: LayerClient, Category: CategoryDelivery,
			Delivery: &DeliveryEvent{Channel: "news", CacheToken: "5", Messages: 1, Callbacks: 1},
		},
		{
			Timestamp: base.Add(2 * time.Second), ClientID: "b", Direction: DirectionIn, Layer: LayerWire, Category: CategoryError,
			Error: &ErrorEventData{Layer: LayerWire, Kind: ErrorKindUnknownChannel, Channel: "ghost", Message: "unknown channel"},
		},
		{
			Timestamp: base.Add(3 * time.Second), ClientID: "b", Direction: DirectionOut, Layer: LayerTransport, Category: CategoryPublish,
			Publish: &PublishEvent{Channel: "sport", Size: 3},
		},
	}
}

func TestReaderReadsAll(t *testing.T) {
	path := writeEvents(t, sampleTrace(time.Now())...)

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if n := len(readAll(t, r)); n != 4 {
		t.Errorf("got %d events, want 4", n)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeEvents(t, sampleTrace(base)...)

	in := DirectionIn
	errCat := CategoryError
	transport := LayerTransport
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"client", Filter{ClientID: "a"}, 2},
		{"direction", Filter{Direction: &in}, 2},
		{"category", Filter{Category: &errCat}, 1},
		{"layer", Filter{Layer: &transport}, 2},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"channel poll and delivery", Filter{Channel: "news"}, 2},
		{"channel error", Filter{Channel: "ghost"}, 1},
		{"channel publish", Filter{Channel: "sport"}, 1},
		{"combined", Filter{ClientID: "b", Direction: &in}, 1},
		{"no match", Filter{ClientID: "zzz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()

			if n := len(readAll(t, r)); n != tt.want {
				t.Errorf("got %d events, want %d", n, tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "nope.mlog")); err == nil {
		t.Error("expected error for missing file")
	}
}
