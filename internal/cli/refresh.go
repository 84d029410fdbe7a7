package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/aristath/investlog/internal/modules/prices"
	"github.com/aristath/investlog/internal/utils"
	"github.com/google/subcommands"
)

type refreshCmd struct {
	app     *App
	symbols string
	asJSON  bool
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "refresh quotes and record today's snapshots and profit" }
func (*refreshCmd) Usage() string {
	return `investctl refresh [-s <symbols>] [-json]

  Without -s runs the daily job: force-refreshes every held symbol, saves
  today's snapshots and today's profit record. With -s only the listed
  symbols are force-refreshed into the price cache.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbols, "s", "", "Comma-separated symbols to refresh instead of every held symbol")
	f.BoolVar(&c.asJSON, "json", false, "Print the result as JSON")
}

func (c *refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbols := utils.ParseSymbols(c.symbols)
	if c.symbols != "" && len(symbols) == 0 {
		return c.app.usageError(f, "no symbols in %q", c.symbols)
	}

	return c.app.run(ctx, func(ctx context.Context, env *Env) error {
		if len(symbols) == 0 {
			report, err := env.Jobs.DailyRefresh.Execute(ctx)
			if report != nil {
				if c.asJSON {
					if perr := c.app.printJSON(report); perr != nil {
						return perr
					}
				} else {
					fmt.Fprintf(c.app.Out, "%s: %d/%d symbols refreshed, %d snapshots saved\n",
						report.Date, report.Succeeded, report.Symbols, report.Snapshots)
					for _, failed := range report.Failed {
						fmt.Fprintf(c.app.Out, "  failed %s: %s\n", failed.Symbol, failed.Error)
					}
					if report.Profit != nil {
						fmt.Fprintf(c.app.Out, "  profit %.2f (%.2f%%), total value %.2f\n",
							report.Profit.Profit, report.Profit.ProfitRate, report.Profit.TotalValue)
					}
				}
			}
			return err
		}

		batch, err := env.Container.PriceService.RefreshBatch(ctx, symbols, prices.RefreshOptions{
			Force:   true,
			Retries: env.Config.Quotes.BatchRetries,
			Delay:   env.Config.Schedule.RefreshDelay,
		})
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.app.printJSON(batch)
		}

		tw := tabwriter.NewWriter(c.app.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SYMBOL\tPRICE\tSTATUS")
		for _, r := range batch.Results {
			if r.Success {
				fmt.Fprintf(tw, "%s\t%.4f\tok\n", r.Symbol, r.Price)
			} else {
				fmt.Fprintf(tw, "%s\t-\t%s\n", r.Symbol, r.Error)
			}
		}
		return tw.Flush()
	})
}
