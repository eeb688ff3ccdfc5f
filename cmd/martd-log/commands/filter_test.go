package commands

import (
	"path/filepath"
	"testing"

	"github.com/martd/martd-go/pkg/log"
)

func TestRunFilter(t *testing.T) {
	path := writeLog(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.mlog")

	n, err := RunFilter(path, out, FilterOptions{ClientID: "c1a2b3c4-d5e6", Direction: "in"})
	if err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if n != 3 {
		t.Errorf("filtered %d events, want 3", n)
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	count := 0
	for {
		ev, err := reader.Next()
		if err != nil {
			break
		}
		if ev.Direction != log.DirectionIn {
			t.Errorf("unexpected direction %v", ev.Direction)
		}
		count++
	}
	if count != 3 {
		t.Errorf("read back %d events, want 3", count)
	}
}

func TestFilterOptionsBuild(t *testing.T) {
	f, err := FilterOptions{
		TimeStart: "2026-03-14T09:30:01Z",
		TimeEnd:   "2026-03-14T09:30:04Z",
		Layer:     "wire",
	}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if f.TimeStart == nil || f.TimeEnd == nil || f.Layer == nil || *f.Layer != log.LayerWire {
		t.Errorf("filter = %+v", f)
	}

	for _, bad := range []FilterOptions{
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
		{Layer: "frame"},
		{Direction: "sideways"},
		{Category: "snapshot"},
	} {
		if _, err := bad.Build(); err == nil {
			t.Errorf("Build(%+v) succeeded", bad)
		}
	}
}
