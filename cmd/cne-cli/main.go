// Command cne-cli drives the CNE extraction backend from a terminal: it
// submits documents, follows jobs and fetches their results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vrsandeep/cne-console/internal/core"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, app *core.App, args []string) error
}

var commands = []command{
	{"submit", "submit [-infer-only] [-wait] <file>...", runSubmit},
	{"status", "status <job-id>", runStatus},
	{"wait", "wait [-timeout 60s] <job-id>", runWait},
	{"preview", "preview [-page 1] <job-id>", runPreview},
	{"export", "export <job-id> <out.xlsx>", runExport},
	{"download", "download [-o dir] <job-id>", runDownload},
	{"approve", "approve [-notes text] <job-id>", runApprove},
	{"track", "track <job-id>", runTrack},
	{"untrack", "untrack <job-id>", runUntrack},
	{"list", "list", runList},
	{"rejected", "rejected [-clear id]", runRejected},
	{"watch", "watch", runWatch},
}

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := findCommand(os.Args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	app, err := core.New("cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error during application setup: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cmd.run(ctx, app, os.Args[2:])
	stop()
	app.Close()

	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "usage: cne-cli %s\n", cmd.usage)
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: cne-cli <command> [flags] [args]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", c.usage)
	}
}

// parseFlags parses args into fs and checks the number of positional
// arguments; maxArgs < 0 means unbounded.
func parseFlags(fs *flag.FlagSet, args []string, minArgs, maxArgs int) ([]string, error) {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	rest := fs.Args()
	if len(rest) < minArgs || (maxArgs >= 0 && len(rest) > maxArgs) {
		return nil, errUsage
	}
	return rest, nil
}
