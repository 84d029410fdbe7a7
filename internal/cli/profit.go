package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/internal/modules/profit"
	"github.com/google/subcommands"
)

type calcCmd struct {
	app    *App
	date   string
	asJSON bool
}

func (*calcCmd) Name() string     { return "calc" }
func (*calcCmd) Synopsis() string { return "calculate and save the profit record of a date" }
func (*calcCmd) Usage() string {
	return `investctl calc [-d <date>] [-json]

  Calculates the daily profit of a date from the ledger and the price
  snapshots and saves it, replacing any earlier record of that date.
`
}

func (c *calcCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date YYYY-MM-DD (defaults to today)")
	f.BoolVar(&c.asJSON, "json", false, "Print the record as JSON")
}

func (c *calcCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.date != "" {
		if err := domain.ValidateDate(c.date); err != nil {
			return c.app.usageError(f, "%v", err)
		}
	}

	return c.app.run(ctx, func(ctx context.Context, env *Env) error {
		date := c.date
		if date == "" {
			date = env.Container.Today()
		}

		result, err := env.Container.Calculator.Save(ctx, date)
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.app.printJSON(result)
		}

		fmt.Fprintf(c.app.Out, "%s: profit %.2f (%.2f%%), total value %.2f\n",
			result.Date, result.Profit, result.ProfitRate, result.TotalValue)
		if result.Incomplete() {
			fmt.Fprintf(c.app.Out, "  valued at average cost: %v\n", result.UnpricedSymbols)
		}
		if !result.Persisted {
			fmt.Fprintln(c.app.Out, "  not saved")
		}
		return nil
	})
}

type recalcCmd struct {
	app  *App
	from string
	to   string
}

func (*recalcCmd) Name() string     { return "recalc" }
func (*recalcCmd) Synopsis() string { return "rebuild the daily profit series" }
func (*recalcCmd) Usage() string {
	return `investctl recalc [-from <date>] [-to <date>]

  Without -from wipes every profit record and recalculates from the
  configured start date to today. With -from only the records from
  -from to -to are replaced; records outside that range are kept.
  Dates are processed in ascending order; an interrupted run can be
  resumed with -from set to the day after the last reported date.
`
}

func (c *recalcCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Keep records before this date and recalculate from it")
	f.StringVar(&c.to, "to", "", "Last date to recalculate (defaults to today)")
}

func (c *recalcCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	for _, d := range []string{c.from, c.to} {
		if d == "" {
			continue
		}
		if err := domain.ValidateDate(d); err != nil {
			return c.app.usageError(f, "%v", err)
		}
	}

	return c.app.run(ctx, func(ctx context.Context, env *Env) error {
		recalc := env.Container.Recalculator
		rng := recalc.DefaultRange()
		if c.to != "" {
			rng.End = c.to
		}

		var report *profit.Report
		var err error
		if c.from == "" {
			report, err = recalc.RecalculateAll(ctx, rng)
		} else {
			report, err = recalc.RecalculateFrom(ctx, c.from, rng.End)
		}

		if report != nil {
			fmt.Fprintf(c.app.Out, "%s: %d days recalculated (%d incomplete), %d records replaced",
				report.Range, report.Days, report.Incomplete, report.Deleted)
			if report.LastDate != "" {
				fmt.Fprintf(c.app.Out, ", last %s", report.LastDate)
			}
			fmt.Fprintln(c.app.Out)
		}
		return err
	})
}
