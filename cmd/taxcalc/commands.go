package main

import (
	"time"

	"github.com/haulfile/tax-engine/factory"
	"github.com/haulfile/tax-engine/generic"
	"github.com/haulfile/tax-engine/hvut"
	"github.com/haulfile/tax-engine/ifta"
	"github.com/haulfile/tax-engine/ucr"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// =============================================================================
// IFTA
// =============================================================================

func newIFTACmd() *cobra.Command {
	var (
		milesPath, fuelPath string
		ratesPath, unknown  string
		quarter             string
	)

	cmd := &cobra.Command{
		Use:   "ifta",
		Short: "Reconcile one IFTA quarter from CSV files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadRateTable(ratesPath, unknown)
			if err != nil {
				return err
			}

			raw := ifta.RawInput{TripEntries: []ifta.RawTripEntry{}, FuelPurchases: []ifta.RawFuelPurchase{}}
			if raw.TripEntries, err = readTrips(milesPath); err != nil {
				return err
			}
			if fuelPath != "" {
				if raw.FuelPurchases, err = readFuel(fuelPath); err != nil {
					return err
				}
			}

			out := iftaOutput{}
			if quarter != "" {
				q, err := generic.ParseQuarter(quarter)
				if err != nil {
					return err
				}
				out.Quarter = q.String()
				out.DueDate = q.DueDate().Format("2006-01-02")
			}

			summary, err := ifta.NewCalculator(table).CalculateRaw(raw)
			if err != nil {
				return err
			}
			out.Report = summary.Report()
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&milesPath, "miles", "", "CSV of state,miles rows (required)")
	cmd.Flags().StringVar(&fuelPath, "fuel", "", "CSV of state,gallons[,amount] rows")
	cmd.Flags().StringVar(&ratesPath, "rates", "", "rate table file (.json or .yaml); built-in table when empty")
	cmd.Flags().StringVar(&unknown, "unknown", "", "unknown jurisdiction policy: zero or reject")
	cmd.Flags().StringVar(&quarter, "quarter", "", "reporting quarter, e.g. 2025Q1")
	_ = cmd.MarkFlagRequired("miles")
	return cmd
}

type iftaOutput struct {
	ifta.Report
	Quarter string `json:"quarter,omitempty"`
	DueDate string `json:"dueDate,omitempty"`
}

// loadRateTable reads path, or returns the built-in table. A non-empty
// policy overrides whatever the table declares.
func loadRateTable(path, policy string) (*generic.StaticRateTable, error) {
	var override generic.UnknownPolicy
	if policy != "" {
		p, err := generic.ParseUnknownPolicy(policy)
		if err != nil {
			return nil, err
		}
		override = p
	}

	if path == "" {
		p := override
		if p == "" {
			p = generic.UnknownAsZero
		}
		return ifta.DefaultRateTable(p), nil
	}

	table, err := factory.NewRateTableFactory().LoadFile(path)
	if err != nil {
		return nil, err
	}
	if override != "" {
		table = table.WithPolicy(override)
	}
	return table, nil
}

// =============================================================================
// HVUT
// =============================================================================

func newHVUTCmd() *cobra.Command {
	var (
		firstUsed      string
		vin            string
		weight         int
		period         int
		logging        bool
		agricultural   bool
		suspendedMiles int
	)

	cmd := &cobra.Command{
		Use:   "hvut",
		Short: "Compute Form 2290 tax for one vehicle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := generic.ParseMonth(firstUsed)
			if err != nil {
				return err
			}
			ret := hvut.Return{
				Period:    generic.TaxPeriodFor(month),
				FirstUsed: month,
				Vehicles: []hvut.Vehicle{{
					VIN:                vin,
					TaxableGrossWeight: weight,
					Logging:            logging,
					Agricultural:       agricultural,
				}},
			}
			if period != 0 {
				ret.Period = generic.TaxPeriod{StartYear: period}
			}
			if cmd.Flags().Changed("suspended") {
				ret.Vehicles[0].ExpectedMiles = &suspendedMiles
			}

			res, err := hvut.Calculate(ret)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), toHVUTOutput(res))
		},
	}

	cmd.Flags().StringVar(&firstUsed, "first-used", "", "first-use month, e.g. 2025-09 (required)")
	cmd.Flags().StringVar(&vin, "vin", "", "17 character VIN (required)")
	cmd.Flags().IntVar(&weight, "weight", 0, "taxable gross weight in pounds (required)")
	cmd.Flags().IntVar(&period, "period", 0, "tax period start year; derived from --first-used when 0")
	cmd.Flags().BoolVar(&logging, "logging", false, "vehicle is used for logging")
	cmd.Flags().BoolVar(&agricultural, "agricultural", false, "agricultural vehicle (higher mileage limit)")
	cmd.Flags().IntVar(&suspendedMiles, "suspended", 0, "expected miles when claiming suspension")
	for _, f := range []string{"first-used", "vin", "weight"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

type hvutOutput struct {
	TaxPeriod string              `json:"taxPeriod"`
	Months    int                 `json:"months"`
	DueDate   string              `json:"dueDate"`
	Vehicles  []hvutVehicleOutput `json:"vehicles"`
	TotalDue  decimal.Decimal     `json:"totalDue"`
}

type hvutVehicleOutput struct {
	VIN       string          `json:"vin"`
	Category  string          `json:"category"`
	AnnualTax decimal.Decimal `json:"annualTax"`
	TaxDue    decimal.Decimal `json:"taxDue"`
	Suspended bool            `json:"suspended,omitempty"`
}

func toHVUTOutput(res *hvut.Result) hvutOutput {
	out := hvutOutput{
		TaxPeriod: res.Period.String(),
		Months:    res.Months,
		DueDate:   res.DueDate.Format(time.DateOnly),
		TotalDue:  res.TotalDue,
	}
	for _, v := range res.Vehicles {
		out.Vehicles = append(out.Vehicles, hvutVehicleOutput{
			VIN:       v.VIN,
			Category:  v.Category,
			AnnualTax: v.AnnualTax,
			TaxDue:    v.TaxDue,
			Suspended: v.Suspended,
		})
	}
	return out
}

// =============================================================================
// UCR
// =============================================================================

func newUCRCmd() *cobra.Command {
	var (
		year   int
		units  int
		broker bool
		sched  string
	)

	cmd := &cobra.Command{
		Use:   "ucr",
		Short: "Look up the UCR fee for a fleet size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = time.Now().Year()
			}
			reg := ucr.Registration{Year: year, PowerUnits: units, BrokerOnly: broker}

			var (
				res *ucr.Result
				err error
			)
			if sched != "" {
				var s ucr.Schedule
				if s, err = factory.LoadUCRScheduleFile(sched); err != nil {
					return err
				}
				res, err = ucr.Calculate(s, reg)
			} else {
				res, err = ucr.CalculateBuiltin(reg)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ucrOutput{
				Year:       res.Year,
				PowerUnits: res.PowerUnits,
				Bracket:    res.Bracket,
				Range:      res.Range,
				Fee:        res.Fee,
				BrokerOnly: res.BrokerOnly,
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "registration year; current year when 0")
	cmd.Flags().IntVar(&units, "units", 0, "power units operated")
	cmd.Flags().BoolVar(&broker, "broker", false, "broker or freight forwarder without power units")
	cmd.Flags().StringVar(&sched, "schedule", "", "fee schedule file (.json or .yaml); built-in when empty")
	return cmd
}

type ucrOutput struct {
	Year       int             `json:"year"`
	PowerUnits int             `json:"powerUnits"`
	Bracket    int             `json:"bracket"`
	Range      string          `json:"range"`
	Fee        decimal.Decimal `json:"fee"`
	BrokerOnly bool            `json:"brokerOnly,omitempty"`
}
