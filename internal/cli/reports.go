package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aristath/investlog/internal/modules/profit"
	"github.com/aristath/investlog/internal/services"
	"github.com/google/subcommands"
)

type monthlyCmd struct {
	app    *App
	asJSON bool
}

func (*monthlyCmd) Name() string     { return "monthly" }
func (*monthlyCmd) Synopsis() string { return "display the profit summary of a month" }
func (*monthlyCmd) Usage() string {
	return `investctl monthly [-json] [YYYY-MM]

  Displays the profit of a month (defaults to the current month) and the
  daily records it is made of.
`
}

func (c *monthlyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.asJSON, "json", false, "Print the summary as JSON")
}

func (c *monthlyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		return c.app.usageError(f, "expected at most one month")
	}

	return c.app.run(ctx, func(ctx context.Context, env *Env) error {
		month := f.Arg(0)
		if month == "" {
			month = env.Container.Today()[:7]
		}

		summary, err := env.Container.Rollup.Monthly(ctx, month)
		if err != nil {
			return err
		}
		records, err := env.Container.Rollup.DailyRecords(ctx, month)
		if err != nil {
			return err
		}
		display, rate := env.Container.ConversionService.ConvertSummary(ctx, *summary)

		if c.asJSON {
			return c.app.printJSON(map[string]interface{}{
				"summary": summary,
				"display": display,
				"rate":    rate,
				"records": records,
			})
		}

		printSummary(c.app.Out, summary, display, rate)
		tw := tabwriter.NewWriter(c.app.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tPROFIT\tRATE %\tTOTAL VALUE")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\n", r.Date, r.Profit, r.ProfitRate, r.TotalValue)
		}
		return tw.Flush()
	})
}

type yearlyCmd struct {
	app    *App
	asJSON bool
}

func (*yearlyCmd) Name() string     { return "yearly" }
func (*yearlyCmd) Synopsis() string { return "display the profit summary of a year" }
func (*yearlyCmd) Usage() string {
	return `investctl yearly [-json] [YYYY]

  Displays the profit of a year (defaults to the current year) broken down
  by month.
`
}

func (c *yearlyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.asJSON, "json", false, "Print the summary as JSON")
}

func (c *yearlyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		return c.app.usageError(f, "expected at most one year")
	}

	return c.app.run(ctx, func(ctx context.Context, env *Env) error {
		year := f.Arg(0)
		if year == "" {
			year = env.Container.Today()[:4]
		}

		summary, err := env.Container.Rollup.Yearly(ctx, year)
		if err != nil {
			return err
		}
		months, err := env.Container.Rollup.MonthsOfYear(ctx, year)
		if err != nil {
			return err
		}
		display, rate := env.Container.ConversionService.ConvertSummary(ctx, *summary)

		if c.asJSON {
			return c.app.printJSON(map[string]interface{}{
				"summary": summary,
				"display": display,
				"rate":    rate,
				"months":  months,
			})
		}

		printSummary(c.app.Out, summary, display, rate)
		tw := tabwriter.NewWriter(c.app.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MONTH\tPROFIT\tRATE %\tTOTAL VALUE\tDAYS")
		for _, m := range months {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\n", m.Period, m.Profit, m.ProfitRate, m.TotalValue, m.Days)
		}
		return tw.Flush()
	})
}

func printSummary(w io.Writer, summary *profit.Summary, display profit.Summary, rate services.Rate) {
	fmt.Fprintf(w, "%s: profit %.2f %s (%.2f%%), total value %.2f %s over %d days\n",
		summary.Period, summary.Profit, rate.From, summary.ProfitRate, summary.TotalValue, rate.From, summary.Days)
	if rate.Currency != rate.From {
		fmt.Fprintf(w, "  in %s at %.4f: profit %.2f, total value %.2f\n",
			rate.Currency, rate.Rate, display.Profit, display.TotalValue)
	}
}

type summaryCmd struct {
	app    *App
	asJSON bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the current positions" }
func (*summaryCmd) Usage() string {
	return `investctl summary [-json]

  Displays every held symbol with its shares, cost and average price.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.asJSON, "json", false, "Print the positions as JSON")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(ctx context.Context, env *Env) error {
		positions, err := env.Container.Aggregator.Summarize(ctx)
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.app.printJSON(positions)
		}

		tw := tabwriter.NewWriter(c.app.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SYMBOL\tSHARES\tTOTAL COST\tAVG PRICE\tTRADES")
		var total float64
		for _, p := range positions {
			fmt.Fprintf(tw, "%s\t%.4f\t%.2f\t%.4f\t%d\n", p.Symbol, p.TotalShares, p.TotalCost, p.AvgPrice, p.TransactionCount)
			total += p.TotalCost
		}
		fmt.Fprintf(tw, "TOTAL\t\t%.2f\t\t\n", total)
		return tw.Flush()
	})
}
