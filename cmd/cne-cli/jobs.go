package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vrsandeep/cne-console/internal/core"
	"github.com/vrsandeep/cne-console/internal/inbox"
	"github.com/vrsandeep/cne-console/internal/jobs"
	"github.com/vrsandeep/cne-console/internal/models"
)

func runSubmit(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	inferOnly := fs.Bool("infer-only", app.Config.Inbox.InferOnly, "skip OCR and only infer the structure")
	wait := fs.Bool("wait", false, "wait until each job is ready, approved or failed")
	files, err := parseFlags(fs, args, 1, -1)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range files {
		upload, err := app.Inbox.SubmitFile(ctx, path, *inferOnly)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("%s\t%s\n", upload.JobID, upload.FileName)

		if *wait {
			status, err := app.Client.PollUntil(ctx, upload.JobID, nil, app.Config.Poll.Timeout)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", upload.JobID, err)
				failed++
				continue
			}
			printStatus(status)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func runStatus(ctx context.Context, app *core.App, args []string) error {
	rest, err := parseFlags(flag.NewFlagSet("status", flag.ContinueOnError), args, 1, 1)
	if err != nil {
		return err
	}
	status, err := app.Client.GetJob(ctx, rest[0])
	if err != nil {
		return err
	}
	printStatus(status)
	return nil
}

func runWait(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("wait", flag.ContinueOnError)
	timeout := fs.Duration("timeout", app.Config.Poll.Timeout, "give up after this long")
	rest, err := parseFlags(fs, args, 1, 1)
	if err != nil {
		return err
	}
	status, err := app.Client.PollUntil(ctx, rest[0], nil, *timeout)
	if err != nil {
		return err
	}
	printStatus(status)
	return nil
}

func runApprove(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("approve", flag.ContinueOnError)
	notes := fs.String("notes", "", "notes stored with the approval")
	rest, err := parseFlags(fs, args, 1, 1)
	if err != nil {
		return err
	}
	id := rest[0]
	result, err := app.Client.Approve(ctx, id, *notes)
	if err != nil {
		return err
	}
	if _, err := app.Store.RecordApproval(id, *notes, result); err != nil {
		fmt.Fprintf(os.Stderr, "warning: approval not recorded locally: %v\n", err)
	}
	path := "data/approved"
	if result.DatasetPath != nil {
		path = *result.DatasetPath
	}
	fmt.Printf("Job aprovado! Dados em %s\n", path)
	return nil
}

func runTrack(ctx context.Context, app *core.App, args []string) error {
	rest, err := parseFlags(flag.NewFlagSet("track", flag.ContinueOnError), args, 1, 1)
	if err != nil {
		return err
	}
	if !app.Tracker.Add(rest[0]) {
		fmt.Printf("%s is already tracked\n", rest[0])
	}
	return nil
}

func runUntrack(ctx context.Context, app *core.App, args []string) error {
	rest, err := parseFlags(flag.NewFlagSet("untrack", flag.ContinueOnError), args, 1, 1)
	if err != nil {
		return err
	}
	if !app.Tracker.Remove(rest[0]) {
		return fmt.Errorf("%s is not tracked", rest[0])
	}
	return nil
}

// runList fetches every tracked job once and prints the history view.
func runList(ctx context.Context, app *core.App, args []string) error {
	if _, err := parseFlags(flag.NewFlagSet("list", flag.ContinueOnError), args, 0, 0); err != nil {
		return err
	}
	ids := app.Tracker.IDs()
	if len(ids) == 0 {
		fmt.Println("Nenhum job registado.")
		return nil
	}

	app.Tracker.Start()
	if err := waitForRecords(ctx, app, ids); err != nil {
		return err
	}
	printHistory(app)
	return nil
}

// runWatch keeps the tracker and, when configured, the inbox watcher running
// until interrupted, printing the history whenever a job changes state.
func runWatch(ctx context.Context, app *core.App, args []string) error {
	if _, err := parseFlags(flag.NewFlagSet("watch", flag.ContinueOnError), args, 0, 0); err != nil {
		return err
	}
	app.Tracker.Start()

	if path := app.Config.Inbox.Path; path != "" {
		watcher := inbox.NewWatcher(path, app.Inbox, inbox.WatcherOptions{
			InferOnly: app.Config.Inbox.InferOnly,
			Debounce:  app.Config.Inbox.Debounce,
			Rejects:   app.Store,
			Logger:    app.Logger,
		})
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
		fmt.Printf("Watching %s for new documents\n", path)
	}

	interval := app.Config.Tracker.RefreshInterval
	if interval <= 0 {
		interval = jobs.DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := ""
	for {
		if summary := historySummary(app); summary != last {
			fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), summary)
			last = summary
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func waitForRecords(ctx context.Context, app *core.App, ids []string) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		done := true
		for _, id := range ids {
			if rec, ok := app.Tracker.Record(id); !ok || rec.Loading {
				done = false
				break
			}
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func printStatus(s *models.JobStatus) {
	fmt.Printf("Job:        %s\n", s.JobID)
	fmt.Printf("Estado:     %s\n", s.State.Label())
	fmt.Printf("Criado:     %s\n", s.CreatedAt)
	fmt.Printf("Atualizado: %s\n", s.UpdatedAt)
	if len(s.InputFiles) > 0 {
		fmt.Printf("Ficheiros:  %s\n", strings.Join(s.InputFiles, ", "))
	}
	if st := s.Stats; st != nil {
		fmt.Printf("Resumo:     %d linhas | OK %d · AVISO %d · ERRO %d\n",
			intOr0(st.RowsTotal), intOr0(st.RowsOK), intOr0(st.RowsWarn), intOr0(st.RowsErr))
	}
	if s.Error != nil {
		fmt.Printf("Erro:       %s\n", *s.Error)
	}
}

func historySummary(app *core.App) string {
	var parts []string
	for _, g := range app.Tracker.Grouped() {
		parts = append(parts, fmt.Sprintf("%s %d", g.Label, g.Count))
	}
	return strings.Join(parts, " · ")
}

func intOr0(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
