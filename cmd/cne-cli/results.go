package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/vrsandeep/cne-console/internal/backend"
	"github.com/vrsandeep/cne-console/internal/core"
	"github.com/vrsandeep/cne-console/internal/models"
	"github.com/vrsandeep/cne-console/internal/preview"
	"github.com/vrsandeep/cne-console/internal/util"
)

func collectRows(ctx context.Context, app *core.App, jobID string) ([]models.PreviewRow, error) {
	cfg := app.Config.Preview
	return preview.NewAggregator(app.Client, cfg.RequestSize, cfg.MaxPages).Collect(ctx, jobID)
}

func runPreview(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	page := fs.Int("page", 1, "page to print")
	rest, err := parseFlags(fs, args, 1, 1)
	if err != nil {
		return err
	}
	rows, err := collectRows(ctx, app, rest[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("Sem linhas para mostrar.")
		return nil
	}

	summary := preview.Summarize(rows)
	fmt.Printf("%d linhas, %d com avisos ou erros\n", summary.Total, summary.Flagged)
	for _, c := range summary.ByTipo {
		fmt.Printf("  %-12s %d\n", c.Label, c.Count)
	}
	fmt.Println()

	p := preview.Paginate(rows, *page, app.Config.Preview.PageSize)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORGAO\tTIPO\tSIGLA\tNUM_ORDEM\tNOME_CANDIDATO\tVALIDACAO")
	for _, row := range p.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			row.Body, preview.FormatTipo(row.ListType), row.Acronym, row.Order, row.Candidate, preview.FlagSummary(row))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nPágina %d de %d (linhas %d-%d de %d)\n", p.Number, p.TotalPages, p.Start, p.End, p.TotalRows)
	return nil
}

func runExport(ctx context.Context, app *core.App, args []string) error {
	rest, err := parseFlags(flag.NewFlagSet("export", flag.ContinueOnError), args, 2, 2)
	if err != nil {
		return err
	}
	rows, err := collectRows(ctx, app, rest[0])
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := preview.WriteXLSX(&buf, rows); err != nil {
		return err
	}
	out := util.UniquePath(rest[1])
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Printf("%d linhas exportadas para %s\n", len(rows), out)
	return nil
}

// runDownload saves the backend CSV export under the downloads directory,
// never overwriting an earlier download.
func runDownload(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	dir := fs.String("o", app.Config.Downloads.Path, "output directory")
	rest, err := parseFlags(fs, args, 1, 1)
	if err != nil {
		return err
	}
	id := rest[0]

	var buf bytes.Buffer
	name, err := app.Client.DownloadCSV(ctx, id, &buf)
	if err != nil {
		return err
	}
	if err := util.EnsureDir(*dir); err != nil {
		return err
	}
	out := util.UniquePath(filepath.Join(*dir, util.SanitizeFileName(name, backend.DefaultCSVName(id))))
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func printHistory(app *core.App) {
	fmt.Println(historySummary(app))
	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tESTADO\tCRIADO\tFICHEIROS\tERRO")
	for _, rec := range app.Tracker.Sorted() {
		files := "-"
		if len(rec.InputFiles) > 0 {
			files = fmt.Sprint(len(rec.InputFiles))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rec.JobID, rec.State.Label(), rec.CreatedAt, files, rec.Err)
	}
	_ = tw.Flush()
}

// runRejected lists inbox files that could not be submitted, or dismisses
// one entry with -clear.
func runRejected(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("rejected", flag.ContinueOnError)
	clearID := fs.Int64("clear", 0, "dismiss the entry with this id")
	if _, err := parseFlags(fs, args, 0, 0); err != nil {
		return err
	}
	if *clearID > 0 {
		found, err := app.Store.DeleteRejected(*clearID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no rejected file with id %d", *clearID)
		}
		return nil
	}

	files, err := app.Store.ListRejected()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("Nenhum ficheiro recusado.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFICHEIRO\tMOTIVO\tDETALHE\tVERIFICADO")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", f.ID, f.FileName, f.Reason.Label(), f.Detail, f.LastChecked.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
