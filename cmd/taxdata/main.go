// Command taxdata provisions and inspects the rate tables the paystub
// engine reads.
//
//	taxdata [-db path] migrate [-dir db/migrations]
//	taxdata [-db path] import  -csv withholding.csv -yaml regulatory.yaml [-force]
//	taxdata [-db path] export  -year 2026 [-csv out.csv] [-yaml out.yaml]
//	taxdata [-db path] verify  -year 2026 | -csv file -yaml file
//	taxdata [-db path] status  -year 2026 [-json]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/csg33k/paystub-engine/internal/adapters/csvtables"
	"github.com/csg33k/paystub-engine/internal/adapters/regulatory"
	sqliteadapter "github.com/csg33k/paystub-engine/internal/adapters/sqlite"
	"github.com/csg33k/paystub-engine/internal/config"
	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ratetable"
)

const usage = `usage: taxdata [-db path] <command> [flags]

commands:
  migrate   apply db/migrations to the database
  import    replace a tax year from a withholding CSV and a regulatory YAML
  export    write a tax year back out as CSV and YAML
  verify    check partitions, local brackets and duplicate rows
  status    report whether a tax year is ready to serve
`

// errNotReady makes verify and status exit non-zero without a second message.
var errNotReady = errors.New("tax year is not ready")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errNotReady) {
			fmt.Fprintln(os.Stderr, "taxdata:", err)
		}
		os.Exit(1)
	}
}

type app struct {
	cfg  *config.Config
	out  io.Writer
	repo *sqliteadapter.Repository
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	global := flag.NewFlagSet("taxdata", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	dbPath := global.String("db", cfg.DBPath, "SQLite database")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("no command")
	}
	cfg.DBPath = *dbPath

	a := &app{cfg: cfg, out: out}
	cmd, rest := global.Arg(0), global.Args()[1:]

	// verify over files needs no database
	if cmd == "verify" && !containsFlag(rest, "year") {
		return a.verify(ctx, rest)
	}

	a.repo, err = sqliteadapter.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	defer a.repo.Close()

	switch cmd {
	case "migrate":
		return a.migrate(ctx, rest)
	case "import":
		return a.importTables(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "verify":
		return a.verify(ctx, rest)
	case "status":
		return a.status(ctx, rest)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// ── Commands ─────────────────────────────────────────────────────────────────

func (a *app) migrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dir := fs.String("dir", "db/migrations", "dbmate migrations directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	applied, err := a.repo.Migrate(ctx, *dir)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(a.out, "schema up to date")
	}
	for _, v := range applied {
		fmt.Fprintln(a.out, "applied", v)
	}
	return nil
}

func (a *app) importTables(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	csvPath := fs.String("csv", "", "withholding rows CSV")
	yamlPath := fs.String("yaml", "", "regulatory YAML (FICA, state payroll, local)")
	force := fs.Bool("force", false, "import even if validation finds problems")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := readFiles(*csvPath, *yamlPath)
	if err != nil {
		return err
	}
	rep := ratetable.StatusOf(t)
	if !rep.Ready && !*force {
		printReport(a.out, rep)
		return fmt.Errorf("TY%d failed validation; fix the data or pass -force", t.Year)
	}
	if err := a.repo.ImportTables(ctx, t); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "imported TY%d: %d withholding rows, %d state payroll taxes, %d local rules\n",
		t.Year, len(t.Withholding), len(t.StatePayroll), len(t.Local))
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	year := fs.Int("year", a.cfg.TaxYear, "tax year")
	csvPath := fs.String("csv", "-", "withholding CSV output (- for stdout)")
	yamlPath := fs.String("yaml", "", "regulatory YAML output (- for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := a.repo.Snapshot(ctx, *year)
	if err != nil {
		return err
	}
	if len(t.Withholding) == 0 && t.FICA == nil {
		return fmt.Errorf("TY%d has no rate tables", *year)
	}
	if *csvPath != "" {
		if err := a.writeTo(*csvPath, func(w io.Writer) error { return csvtables.Write(w, t.Withholding) }); err != nil {
			return err
		}
	}
	if *yamlPath != "" {
		if err := a.writeTo(*yamlPath, regulatory.FromTables(t).Write); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) verify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	year := fs.Int("year", 0, "tax year in the database")
	csvPath := fs.String("csv", "", "withholding CSV to verify instead of the database")
	yamlPath := fs.String("yaml", "", "regulatory YAML to verify with -csv")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		t    *domain.TaxTables
		dups []sqliteadapter.Duplicate
		err  error
	)
	if *year == 0 {
		if t, err = readFiles(*csvPath, *yamlPath); err != nil {
			return err
		}
	} else {
		if t, err = a.repo.Snapshot(ctx, *year); err != nil {
			return err
		}
		if dups, err = a.repo.Duplicates(ctx, *year); err != nil {
			return err
		}
	}

	rep := ratetable.StatusOf(t)
	printReport(a.out, rep)
	if len(dups) > 0 {
		fmt.Fprintf(a.out, "\n%d duplicate wage ranges (lookups use the lowest id):\n", len(dups))
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tWAGE_MIN\tROWS\tIDS")
		for _, d := range dups {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.Key, d.WageMin, d.Count, d.IDs)
		}
		tw.Flush()
	}
	if !rep.Ready || len(dups) > 0 {
		return errNotReady
	}
	return nil
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	year := fs.Int("year", a.cfg.TaxYear, "tax year")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := a.repo.Snapshot(ctx, *year)
	if err != nil {
		return err
	}
	rep := ratetable.StatusOf(t)
	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printReport(a.out, rep)
	}
	if !rep.Ready {
		return errNotReady
	}
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// readFiles assembles one tax year from a withholding CSV and a regulatory
// YAML. The CSV may only carry rows for the YAML's year.
func readFiles(csvPath, yamlPath string) (*domain.TaxTables, error) {
	if csvPath == "" || yamlPath == "" {
		return nil, errors.New("-csv and -yaml are both required")
	}
	f, err := regulatory.ReadFile(yamlPath)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	rows, err := csvtables.Read(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", csvPath, err)
	}
	year := f.Metadata.TaxYear
	for y := range csvtables.ByYear(rows) {
		if y != year {
			return nil, fmt.Errorf("%s has rows for %d but %s is for %d", csvPath, y, yamlPath, year)
		}
	}
	t := &domain.TaxTables{Year: year, Withholding: rows}
	if err := f.Apply(t); err != nil {
		return nil, fmt.Errorf("%s: %w", yamlPath, err)
	}
	return t, nil
}

func printReport(w io.Writer, rep ratetable.Report) {
	state := "READY"
	if !rep.Ready {
		state = "NOT READY"
	}
	fmt.Fprintf(w, "TY%d: %s\n\n", rep.TaxYear, state)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS\tMIN\tCRITICAL\tOK")
	for _, t := range rep.Tables {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%t\t%t\n", t.Name, t.Count, t.MinRows, t.Critical, t.Valid)
	}
	tw.Flush()
	for _, e := range rep.Errors {
		fmt.Fprintln(w, "error:", e)
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintln(w, "warning:", warn)
	}
}

func (a *app) writeTo(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(a.out)
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func containsFlag(args []string, name string) bool {
	for _, a := range args {
		a = strings.TrimLeft(a, "-")
		if a == name || strings.HasPrefix(a, name+"=") {
			return true
		}
	}
	return false
}
