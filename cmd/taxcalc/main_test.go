package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return nil, err
	}
	var v map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &v), out.String())
	return v, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIFTACommand(t *testing.T) {
	dir := t.TempDir()
	miles := writeFile(t, dir, "miles.csv", "state,miles\nCA,100\n\ntx, 50\n")
	fuel := writeFile(t, dir, "fuel.csv", "Amount,State,Gallons\n95.40,CA,20\n")
	rates := writeFile(t, dir, "rates.yaml", "id: test\nrates:\n  CA: 0.10\n  TX: 0.10\n")

	out, err := runCLI(t, "ifta", "--miles", miles, "--fuel", fuel, "--rates", rates, "--quarter", "2025-Q1")
	require.NoError(t, err)

	assert.Equal(t, 7.5, out["mpg"])
	assert.Equal(t, 150.0, out["totalMiles"])
	assert.Equal(t, "2025Q1", out["quarter"])
	assert.Equal(t, "2025-04-30", out["dueDate"])
	assert.Equal(t, "test", out["rateTableId"])
	assert.InDelta(t, 0, out["totalTaxDue"], 1e-9)
}

func TestIFTACommand_Errors(t *testing.T) {
	dir := t.TempDir()
	miles := writeFile(t, dir, "miles.csv", "state,miles\nCA,100\nZZ,10\n")

	_, err := runCLI(t, "ifta")
	assert.Error(t, err, "--miles is required")

	_, err = runCLI(t, "ifta", "--miles", miles, "--unknown", "reject")
	assert.ErrorContains(t, err, "ZZ")

	_, err = runCLI(t, "ifta", "--miles", miles, "--unknown", "skip")
	assert.Error(t, err)

	noMiles := writeFile(t, dir, "bad.csv", "state,distance\nCA,100\n")
	_, err = runCLI(t, "ifta", "--miles", noMiles)
	assert.ErrorContains(t, err, `missing "miles" column`)

	garbage := writeFile(t, dir, "garbage.csv", "state,miles\nCA,lots\n")
	_, err = runCLI(t, "ifta", "--miles", garbage)
	assert.ErrorContains(t, err, "tripEntries.miles")
}

func TestHVUTCommand(t *testing.T) {
	out, err := runCLI(t, "hvut", "--first-used", "2025-08", "--vin", "1FUJGLDR5CLBP8834", "--weight", "80000")
	require.NoError(t, err)
	assert.Equal(t, "2025-2026", out["taxPeriod"])
	assert.Equal(t, "504.17", out["totalDue"])

	out, err = runCLI(t, "hvut", "--first-used", "2025-08", "--vin", "1FUJGLDR5CLBP8834", "--weight", "80000", "--suspended", "3000")
	require.NoError(t, err)
	assert.Equal(t, "0", out["totalDue"])

	_, err = runCLI(t, "hvut", "--first-used", "2025-08", "--vin", "1FUJGLDR5CLBP8834")
	assert.Error(t, err, "--weight is required")
}

func TestUCRCommand(t *testing.T) {
	out, err := runCLI(t, "ucr", "--year", "2025", "--units", "12")
	require.NoError(t, err)
	assert.Equal(t, 3.0, out["bracket"])
	assert.Equal(t, "276", out["fee"])

	sched := writeFile(t, t.TempDir(), "ucr.yaml",
		"year: 2030\nbrackets:\n  - {min_units: 0, max_units: 10, fee: 50}\n  - {min_units: 11, fee: 500}\n")
	out, err = runCLI(t, "ucr", "--year", "2030", "--units", "12", "--schedule", sched)
	require.NoError(t, err)
	assert.Equal(t, "500", out["fee"])
	assert.Equal(t, "11+", out["range"])

	_, err = runCLI(t, "ucr", "--year", "1999", "--units", "1")
	assert.Error(t, err)
}

func TestParseCSV(t *testing.T) {
	rows, err := parseCSV(strings.NewReader(" State , Miles\nNV,420\n,\nAZ,380,extra\n"), "trips", "state", "miles")
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{
		{"state": "NV", "miles": "420"},
		{"state": "AZ", "miles": "380"},
	}, rows)

	_, err = parseCSV(strings.NewReader(""), "trips", "state")
	assert.ErrorContains(t, err, "empty file")
}
