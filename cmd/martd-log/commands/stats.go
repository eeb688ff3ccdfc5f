package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/martd/martd-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	ErrorsByKind      map[log.ErrorKind]int
	Clients           map[string]*ClientStats
	Channels          map[string]*ChannelStats
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ClientStats holds statistics for a single client ID.
type ClientStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Polls     int
	Aborted   int
}

// ChannelStats holds statistics for a single channel.
type ChannelStats struct {
	Messages  int
	Published int
	LastEtag  string
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		ErrorsByKind:      make(map[log.ErrorKind]int),
		Clients:           make(map[string]*ClientStats),
		Channels:          make(map[string]*ChannelStats),
	}
}

func (s *Stats) channel(name string) *ChannelStats {
	ch, ok := s.Channels[name]
	if !ok {
		ch = &ChannelStats{}
		s.Channels[name] = ch
	}
	return ch
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	client, ok := s.Clients[event.ClientID]
	if !ok {
		client = &ClientStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Clients[event.ClientID] = client
	}
	client.Events++
	if event.Timestamp.After(client.LastSeen) {
		client.LastSeen = event.Timestamp
	}

	switch {
	case event.Poll != nil:
		if event.Direction == log.DirectionOut {
			client.Polls++
		}
		if event.Poll.Aborted {
			client.Aborted++
		}
	case event.Publish != nil:
		if event.Direction == log.DirectionIn {
			s.channel(event.Publish.Channel).Published++
		}
	case event.Delivery != nil:
		ch := s.channel(event.Delivery.Channel)
		ch.Messages += event.Delivery.Messages
		ch.LastEtag = event.Delivery.CacheToken
	case event.Error != nil:
		s.ErrorsByKind[event.Error.Kind]++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== martd Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerClient} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for cat := log.CategoryPoll; cat <= log.CategoryDelivery; cat++ {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Clients: %d\n", len(stats.Clients))
	if len(stats.Clients) > 0 {
		ids := make([]string, 0, len(stats.Clients))
		for id := range stats.Clients {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return stats.Clients[ids[i]].FirstSeen.Before(stats.Clients[ids[j]].FirstSeen)
		})
		for _, id := range ids {
			c := stats.Clients[id]
			duration := c.LastSeen.Sub(c.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, %d polls (%d aborted), duration %s\n",
				shortenClientID(id), c.Events, c.Polls, c.Aborted, duration)
		}
	}

	if len(stats.Channels) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Channels: %d\n", len(stats.Channels))
		names := make([]string, 0, len(stats.Channels))
		for name := range stats.Channels {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ch := stats.Channels[name]
			fmt.Fprintf(w, "  %-16s %d delivered, %d published", name, ch.Messages, ch.Published)
			if ch.LastEtag != "" {
				fmt.Fprintf(w, ", etag %s", ch.LastEtag)
			}
			fmt.Fprintln(w)
		}
	}

	total := 0
	for _, n := range stats.ErrorsByKind {
		total += n
	}
	if total > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", total)
		for kind := log.ErrorKindTransport; kind <= log.ErrorKindCallback; kind++ {
			if n := stats.ErrorsByKind[kind]; n > 0 {
				fmt.Fprintf(w, "  %-16s %d\n", kind.String()+":", n)
			}
		}
	}
}
