package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/martd/martd-go/pkg/log"
)

var baseTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

// sampleEvents is one poll cycle: a poll goes out, comes back with a
// message for "news", the message is delivered, and a bad response follows.
func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp: baseTime,
			ClientID:  "c1a2b3c4-d5e6",
			Direction: log.DirectionOut,
			Layer:     log.LayerTransport,
			Category:  log.CategoryPoll,
			Sequence:  1,
			Poll: &log.PollEvent{
				URL:     "http://localhost:54321/sub?cid=c1a2b3c4-d5e6&news=0",
				Cursors: []log.Cursor{{Channel: "news", CacheToken: "0"}},
			},
		},
		{
			Timestamp: baseTime.Add(2 * time.Second),
			ClientID:  "c1a2b3c4-d5e6",
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryPoll,
			Sequence:  1,
			Poll: &log.PollEvent{
				StatusCode: 200,
				Size:       64,
				Duration:   2 * time.Second,
				Channels:   []log.Cursor{{Channel: "news", CacheToken: "17"}},
				Messages:   1,
			},
		},
		{
			Timestamp: baseTime.Add(2 * time.Second),
			ClientID:  "c1a2b3c4-d5e6",
			Direction: log.DirectionIn,
			Layer:     log.LayerClient,
			Category:  log.CategoryDelivery,
			Sequence:  1,
			Delivery:  &log.DeliveryEvent{Channel: "news", CacheToken: "17", Messages: 1, Callbacks: 2},
		},
		{
			Timestamp: baseTime.Add(3 * time.Second),
			ClientID:  "c1a2b3c4-d5e6",
			Direction: log.DirectionIn,
			Layer:     log.LayerWire,
			Category:  log.CategoryError,
			Sequence:  2,
			Error: &log.ErrorEventData{
				Layer:   log.LayerWire,
				Kind:    log.ErrorKindParse,
				Message: "response is not a JSON object",
				Code:    intPtr(502),
				Body:    []byte("<html>bad gateway</html>"),
			},
		},
		{
			Timestamp: baseTime.Add(4 * time.Second),
			ClientID:  "publisher",
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryPublish,
			Publish:   &log.PublishEvent{Channel: "sport", Size: 4, CacheToken: "18", StatusCode: 200},
		},
	}
}

func writeLog(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.mlog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, ev := range events {
		logger.Log(ev)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}
