package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	migrations = filepath.Join("..", "..", "db", "migrations")
	shippedCSV = filepath.Join("..", "..", "data", "2026", "withholding.csv")
	shippedYML = filepath.Join("..", "..", "data", "2026", "regulatory.yaml")
)

type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Setenv("DB_PATH", "")
	t.Setenv("TAX_YEAR", "")
	c := &cli{t: t, db: filepath.Join(t.TempDir(), "paystub.db")}
	_, err := c.run("migrate", "-dir", migrations)
	require.NoError(t, err)
	return c
}

func (c *cli) run(args ...string) (string, error) {
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-db", c.db}, args...), &out)
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("migrate", "-dir", migrations)
	require.NoError(t, err)
	assert.Equal(t, "schema up to date\n", out)
}

func TestImportStatusExportVerify(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("status", "-year", "2026")
	assert.ErrorIs(t, err, errNotReady)
	assert.Contains(t, out, "TY2026: NOT READY")

	out, err = c.run("import", "-csv", shippedCSV, "-yaml", shippedYML)
	require.NoError(t, err, out)
	assert.Contains(t, out, "imported TY2026")

	out, err = c.run("status", "-year", "2026")
	require.NoError(t, err, out)
	assert.Contains(t, out, "TY2026: READY")
	assert.Contains(t, out, "withholding_rows:federal")

	out, err = c.run("status", "-year", "2026", "-json")
	require.NoError(t, err)
	var rep struct {
		Ready  bool     `json:"ready"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.Ready)
	assert.Empty(t, rep.Errors)

	out, err = c.run("verify", "-year", "2026")
	require.NoError(t, err, out)

	dir := t.TempDir()
	csvOut, ymlOut := filepath.Join(dir, "w.csv"), filepath.Join(dir, "r.yaml")
	_, err = c.run("export", "-year", "2026", "-csv", csvOut, "-yaml", ymlOut)
	require.NoError(t, err)

	orig, err := os.ReadFile(shippedCSV)
	require.NoError(t, err)
	exported, err := os.ReadFile(csvOut)
	require.NoError(t, err)
	assert.Equal(t, bytes.Count(orig, []byte("\n")), bytes.Count(exported, []byte("\n")))

	out, err = c.run("verify", "-csv", csvOut, "-yaml", ymlOut)
	require.NoError(t, err, out)
	assert.Contains(t, out, "READY")
}

func TestImportRejectsBrokenPartition(t *testing.T) {
	c := newCLI(t)
	bad := filepath.Join(t.TempDir(), "gap.csv")
	require.NoError(t, os.WriteFile(bad, []byte(
		"tax_year,scope,pay_frequency,filing_status,step2,wage_min,wage_max,fixed_amount,base_amount,rate,excess_over,percentage\n"+
			"2026,federal,MONTHLY,SINGLE,false,0,1000,0,,,,\n"+
			"2026,federal,MONTHLY,SINGLE,false,1500,,,0,0.1,,\n"), 0o600))

	out, err := c.run("import", "-csv", bad, "-yaml", shippedYML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-force")
	assert.Contains(t, out, "NOT READY")

	_, err = c.run("import", "-csv", bad, "-yaml", shippedYML, "-force")
	require.NoError(t, err)

	out, err = c.run("verify", "-year", "2026")
	assert.ErrorIs(t, err, errNotReady)
	assert.Contains(t, out, "error:")
}

func TestImportYearMismatch(t *testing.T) {
	c := newCLI(t)
	other := filepath.Join(t.TempDir(), "2025.csv")
	require.NoError(t, os.WriteFile(other, []byte(
		"tax_year,scope,pay_frequency,filing_status,step2,wage_min,wage_max,fixed_amount,base_amount,rate,excess_over,percentage\n"+
			"2025,federal,MONTHLY,SINGLE,false,0,,0,,,,\n"), 0o600))
	_, err := c.run("import", "-csv", other, "-yaml", shippedYML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows for 2025")
}

func TestUsage(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("frobnicate")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown command"))

	_, err = c.run("import", "-csv", shippedCSV)
	assert.Error(t, err)
}
