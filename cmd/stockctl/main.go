// cmd/stockctl/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/ammerola/stockscan/internal/app"
	"github.com/ammerola/stockscan/internal/core/domain"
)

// Version is injected at compile time
var Version = "dev"

type command struct {
	summary string
	run     func(ctx context.Context, a *app.App, args []string) error
}

var commands = map[string]command{
	"login":     {"store a session: -user -password", runLogin},
	"logout":    {"revoke and forget the stored session", runLogout},
	"list":      {"page a list: -doctype -search -pages", runList},
	"get":       {"print one record: -doctype -name", runGet},
	"export":    {"write an xlsx export: -doctype -search -out", runExport},
	"scan":      {"read barcodes from stdin into the cart", runScan},
	"dashboard": {"print the dashboard counts", runDashboard},
	"stock":     {"print stock per item: -codes A,B", runStock},
	"upload":    {"upload a file: -file -doctype -name -private -folder", runUpload},
	"import":    {"create items from an xlsx sheet: -file", runImport},
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		if name != "help" && name != "-h" && name != "--help" {
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		}
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cmd, os.Args[2:]))
}

func run(ctx context.Context, cmd command, args []string) int {
	cfg, slogger, err := app.Setup(ctx, "stockctl", Version, "stderr")
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		return 1
	}

	a, err := app.New(ctx, cfg, slogger, app.Options{})
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		return 1
	}
	defer a.Close()

	if err := cmd.run(ctx, a, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", domain.UserMessage(err))
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: stockctl <command> [flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
}
