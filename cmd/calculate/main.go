// Command calculate prices one paycheck for a parent process: a JSON
// PaycheckInput on stdin, the JSON paystub on stdout. On failure it writes
// {"error": ..., "code": ...} to stdout and exits 1. Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/shopspring/decimal"

	sqliteadapter "github.com/csg33k/paystub-engine/internal/adapters/sqlite"
	"github.com/csg33k/paystub-engine/internal/calc"
	"github.com/csg33k/paystub-engine/internal/config"
	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
	"github.com/csg33k/paystub-engine/internal/ratetable"
)

type failure struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code"`
}

func main() {
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(run(os.Stdin, os.Stdout, os.Args[1:]))
}

func run(stdin io.Reader, stdout io.Writer, args []string) int {
	fs := flag.NewFlagSet("calculate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dbPath := fs.String("db", "", "SQLite database (default $DB_PATH)")
	if err := fs.Parse(args); err != nil {
		return fail(stdout, domain.InvalidInput("%v", err))
	}

	cfg, err := config.Load()
	if err != nil {
		return fail(stdout, domain.InvalidInput("%v", err))
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	logger := cfg.Logger()

	var in domain.PaycheckInput
	if err := json.NewDecoder(stdin).Decode(&in); err != nil {
		return fail(stdout, domain.InvalidInput("malformed JSON request: %v", err))
	}

	ctx := context.Background()
	repo, err := sqliteadapter.New(cfg.DBPath)
	if err != nil {
		return fail(stdout, domain.StoreFailure("open database", err))
	}
	defer repo.Close()

	var store ports.RateTableStore = repo
	if cfg.RateTables == config.TablesMemory {
		year := in.TaxYear
		if year == 0 {
			year = cfg.TaxYear
		}
		mem, err := ratetable.Load(ctx, repo, logger, year)
		if err != nil {
			var ce *domain.CalculationError
			if !errors.As(err, &ce) {
				err = domain.StoreFailure("load rate tables", err)
			}
			logger.Error("load rate tables", "year", year, "err", err)
			return fail(stdout, err)
		}
		store = mem
	}

	res, err := calc.New(store, calc.WithLogger(logger), calc.WithDefaultYear(cfg.TaxYear)).Calculate(ctx, &in)
	if err != nil {
		logger.Error("calculation failed", "code", domain.CodeOf(err), "err", err)
		return fail(stdout, err)
	}
	if err := json.NewEncoder(stdout).Encode(res); err != nil {
		logger.Error("write result", "err", err)
		return 1
	}
	return 0
}

func fail(w io.Writer, err error) int {
	f := failure{Error: "internal error", Code: domain.CodeOf(err)}
	var ce *domain.CalculationError
	if errors.As(err, &ce) && ce.Message != "" {
		f.Error = ce.Message
	}
	json.NewEncoder(w).Encode(f) //nolint:errcheck
	return 1
}
