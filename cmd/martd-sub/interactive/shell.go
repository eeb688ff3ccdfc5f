// Package interactive provides the interactive command-line interface
// for martd-sub.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/chzyer/readline"

	"github.com/martd/martd-go/pkg/client"
	"github.com/martd/martd-go/pkg/connection"
	"github.com/martd/martd-go/pkg/subscription"
	"github.com/martd/martd-go/pkg/wire"
)

// Client is the part of *client.Client the shell drives.
type Client interface {
	ClientID() string
	State() connection.State
	Stats() client.Stats
	Channels() []subscription.ChannelInfo
	Subscribe(channel string, cb subscription.Callback, opts ...client.SubscribeOption) (*subscription.Handle, error)
	Publish(ctx context.Context, channel string, body []byte, opts client.PublishOptions) (string, error)
}

// Shell handles interactive mode for martd-sub.
type Shell struct {
	rl     *readline.Instance
	out    io.Writer
	client Client
	etag   string

	mu      sync.Mutex
	handles map[string]*subscription.Handle
}

// New creates a new interactive shell.
func New() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "martd> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(out io.Writer) *Shell {
	return &Shell{
		out:     out,
		handles: make(map[string]*subscription.Handle),
	}
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for message output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	if s.rl == nil {
		return s.out
	}
	return s.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	if s.rl == nil {
		return s.out
	}
	return s.rl.Stderr()
}

// Attach sets the client the shell works on. Channels subscribed from the
// shell start at etag when it is not empty.
func (s *Shell) Attach(c Client, etag string) {
	s.client = c
	s.etag = etag
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Exec(ctx, line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns false when the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "sub", "s":
		s.cmdSub(args)

	case "unsub", "u":
		s.cmdUnsub(args)

	case "list", "ls":
		s.cmdList()

	case "pub", "p":
		s.cmdPub(ctx, input, args)

	case "status":
		s.cmdStatus()

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

// Subscribe subscribes to channel and prints its messages. A non-empty
// etag is the cache token the channel starts from.
func (s *Shell) Subscribe(channel, etag string) {
	var opts []client.SubscribeOption
	if etag != "" {
		opts = append(opts, client.WithCacheToken(etag))
	}
	out := s.Stdout()
	h, err := s.client.Subscribe(channel, func(msg wire.Message) error {
		_, err := fmt.Fprintf(out, "%s: %s\n", channel, msg.Text())
		return err
	}, opts...)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	s.mu.Lock()
	s.handles[h.ID()] = h
	s.mu.Unlock()
	fmt.Fprintf(s.out, "Subscribed to %s (id %s)\n", channel, h.ID())
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
martd Subscriber Commands:
  sub <channel> [etag]  - Subscribe to a channel
  unsub <id>            - Cancel a subscription
  list                  - List subscriptions and channels
  pub <channel> <msg>   - Publish a message
  status                - Show client status
  help                  - Show this help
  quit                  - Exit`)
}

func (s *Shell) cmdSub(args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(s.out, "Usage: sub <channel> [etag]")
		return
	}
	etag := s.etag
	if len(args) == 2 {
		etag = args[1]
	}
	s.Subscribe(args[0], etag)
}

func (s *Shell) cmdUnsub(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: unsub <id>")
		return
	}

	s.mu.Lock()
	h, ok := s.handles[args[0]]
	delete(s.handles, args[0])
	s.mu.Unlock()

	if !ok {
		fmt.Fprintf(s.out, "No subscription %s\n", args[0])
		return
	}
	h.Cancel()
	fmt.Fprintf(s.out, "Unsubscribed %s from %s\n", h.ID(), h.Channel())
}

func (s *Shell) cmdList() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.handles))
	for id := range s.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintln(s.out, "Subscriptions:")
	if len(ids) == 0 {
		fmt.Fprintln(s.out, "  (none)")
	}
	for _, id := range ids {
		fmt.Fprintf(s.out, "  %s  %s\n", id, s.handles[id].Channel())
	}
	s.mu.Unlock()

	fmt.Fprintln(s.out, "Channels:")
	channels := s.client.Channels()
	if len(channels) == 0 {
		fmt.Fprintln(s.out, "  (none)")
	}
	for _, ch := range channels {
		state := "active"
		if !ch.Active() {
			state = "idle"
		}
		fmt.Fprintf(s.out, "  %-16s etag=%-6s %s (%d)\n", ch.Name, ch.CacheToken, state, len(ch.Subscriptions))
	}
}

func (s *Shell) cmdPub(ctx context.Context, input string, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: pub <channel> <message>")
		return
	}

	msg := restAfter(input, 2)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	etag, err := s.client.Publish(ctx, args[0], []byte(msg), client.PublishOptions{})
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Published to %s (etag %s)\n", args[0], etag)
}

// restAfter returns line without its first n fields, inner spacing kept.
func restAfter(line string, n int) string {
	rest := strings.TrimSpace(line)
	for i := 0; i < n; i++ {
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}
	return rest
}

func (s *Shell) cmdStatus() {
	stats := s.client.Stats()
	fmt.Fprintf(s.out, "Client:    %s\n", s.client.ClientID())
	fmt.Fprintf(s.out, "State:     %s\n", s.client.State())
	fmt.Fprintf(s.out, "Polls:     %d (failures %d, restarts %d)\n", stats.Polls, stats.Failures, stats.Restarts)
	fmt.Fprintf(s.out, "Messages:  %d (callbacks %d)\n", stats.Messages, stats.Callbacks)
}
