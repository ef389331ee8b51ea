/*
main.go - Offline calculator CLI

PURPOSE:
  Runs the IFTA, HVUT and UCR calculators without a server or database,
  for quick checks and for scripting quarterly returns from spreadsheet
  exports. Output is JSON on stdout.

COMMANDS:
  taxcalc ifta --miles miles.csv --fuel fuel.csv [--rates 2025Q1.yaml] [--unknown reject]
  taxcalc hvut --first-used 2025-09 --vin 1FUJGLDR5CLBP8834 --weight 80000
  taxcalc ucr  --year 2025 --units 12

CSV FORMAT (header row required, column order free):
  miles: state,miles
  fuel:  state,gallons[,amount]

SEE ALSO:
  - ifta/reconcile.go: Calculator
  - factory/ratetable.go: Rate table files
*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "taxcalc",
		Short:        "Fuel tax, HVUT and UCR calculators",
		Long:         `Computes IFTA quarterly returns, Form 2290 heavy vehicle use tax and UCR fees from the command line.`,
		SilenceUsage: true,
	}
	root.AddCommand(newIFTACmd(), newHVUTCmd(), newUCRCmd())
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
