package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/haulfile/tax-engine/ifta"
)

// csvRows reads a CSV file with a header row and returns each data row as
// a column-name map. Every name in required must be in the header.
func csvRows(path string, required ...string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f, path, required...)
}

func parseCSV(r io.Reader, name string, required ...string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range required {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%s: missing %q column", name, req)
		}
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		row := make(map[string]string, len(cols))
		for col, i := range cols {
			if i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			}
		}
		if isBlank(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlank(row map[string]string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// readTrips loads state,miles rows. Values stay strings; the calculator
// validates them.
func readTrips(path string) ([]ifta.RawTripEntry, error) {
	rows, err := csvRows(path, "state", "miles")
	if err != nil {
		return nil, err
	}
	trips := make([]ifta.RawTripEntry, len(rows))
	for i, row := range rows {
		trips[i] = ifta.RawTripEntry{State: row["state"], Miles: row["miles"]}
	}
	return trips, nil
}

// readFuel loads state,gallons[,amount] rows.
func readFuel(path string) ([]ifta.RawFuelPurchase, error) {
	rows, err := csvRows(path, "state", "gallons")
	if err != nil {
		return nil, err
	}
	fuel := make([]ifta.RawFuelPurchase, len(rows))
	for i, row := range rows {
		fuel[i] = ifta.RawFuelPurchase{State: row["state"], Gallons: row["gallons"]}
		if amount := row["amount"]; amount != "" {
			fuel[i].Amount = amount
		}
	}
	return fuel, nil
}
