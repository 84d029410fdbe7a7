package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/investlog/internal/domain"
	"github.com/google/subcommands"
)

type snapshotCmd struct {
	app  *App
	date string
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "record closing prices for a date" }
func (*snapshotCmd) Usage() string {
	return `investctl snapshot [-d <date>] [SYMBOL=PRICE ...]

  Stores the given prices as the snapshots of a date, replacing any
  previous snapshot of the same symbol and date. Without prices, the
  current price of every held symbol is recorded.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Snapshot date YYYY-MM-DD (defaults to today)")
}

func (c *snapshotCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.date != "" {
		if err := domain.ValidateDate(c.date); err != nil {
			return c.app.usageError(f, "%v", err)
		}
	}
	given, err := parsePrices(f.Args())
	if err != nil {
		return c.app.usageError(f, "%v", err)
	}

	return c.app.run(ctx, func(ctx context.Context, env *Env) error {
		date := c.date
		if date == "" {
			date = env.Container.Today()
		}

		priceMap := given
		if len(priceMap) == 0 {
			priceMap, err = currentPrices(ctx, env)
			if err != nil {
				return err
			}
		}
		if len(priceMap) == 0 {
			fmt.Fprintln(c.app.Out, "No prices to record")
			return nil
		}

		if err := env.Container.SnapshotRepo.SetBatch(ctx, date, priceMap); err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "%s: %d snapshots saved\n", date, len(priceMap))
		return nil
	})
}

// parsePrices parses SYMBOL=PRICE arguments
func parsePrices(args []string) (map[string]float64, error) {
	out := make(map[string]float64, len(args))
	for _, arg := range args {
		symbol, raw, ok := strings.Cut(arg, "=")
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if !ok || symbol == "" {
			return nil, fmt.Errorf("invalid price %q, want SYMBOL=PRICE", arg)
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("invalid price %q, want a positive number", arg)
		}
		out[symbol] = price
	}
	return out, nil
}

// currentPrices looks up the current price of every held symbol, skipping
// symbols no provider can price.
func currentPrices(ctx context.Context, env *Env) (map[string]float64, error) {
	symbols, err := env.Container.Aggregator.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		quote, err := env.Container.PriceService.GetPrice(ctx, symbol, false)
		if err != nil {
			continue
		}
		out[quote.Symbol] = quote.Price
	}
	return out, nil
}
