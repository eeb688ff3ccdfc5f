// Command martd-log is a tool for viewing and analyzing martd protocol traces.
//
// Trace files are written by martd-sub and martd-pub with the -protocol-log
// flag, or by any client whose Config.ProtocolLogger is a log.FileLogger.
//
// Usage:
//
//	martd-log <command> [flags] <file.mlog>
//
// Commands:
//
//	view     View trace in human-readable format
//	export   Export trace to JSON or CSV format
//	filter   Filter trace and write to new file
//	stats    Show statistics about the trace
//
// Examples:
//
//	# View all events
//	martd-log view sub.mlog
//
//	# View only events that name the "news" channel
//	martd-log view -channel news sub.mlog
//
//	# View only errors
//	martd-log view -category error sub.mlog
//
//	# Export to JSONL
//	martd-log export -format jsonl sub.mlog
//
//	# Keep one client's events
//	martd-log filter -client-id 3f2a9c1e -o client.mlog sub.mlog
//
//	# Show statistics
//	martd-log stats sub.mlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/martd/martd-go/cmd/martd-log/commands"
)

const usage = `martd-log - martd Protocol Trace Analyzer

Usage:
  martd-log <command> [flags] <file.mlog>

Commands:
  view     View trace in human-readable format
  export   Export trace to JSON or CSV format
  filter   Filter trace and write to new file
  stats    Show statistics about the trace

Use "martd-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the event filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.ClientID, "client-id", "", "Filter by client ID")
	fs.StringVar(&opts.Channel, "channel", "", "Filter by channel name")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, wire, client)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (poll, publish, state, error, delivery)")
	return opts
}

func parseArgs(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `martd-log view - View trace in human-readable format

Usage:
  martd-log view [flags] <file.mlog>

Flags:
`)
		fs.PrintDefaults()
	}
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	filter, err := opts.Build()
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `martd-log export - Export trace to JSON or CSV format

Usage:
  martd-log export [flags] <file.mlog>

Flags:
`)
		fs.PrintDefaults()
	}
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := parseArgs(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `martd-log filter - Filter trace and write to new file

Usage:
  martd-log filter [flags] <file.mlog>

Flags:
`)
		fs.PrintDefaults()
	}
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, *output, *opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `martd-log stats - Show statistics about the trace

Usage:
  martd-log stats <file.mlog>

`)
	}
	path := parseArgs(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
