package ledger

import (
	"fmt"
	"math"
	"strings"

	"github.com/aristath/investlog/internal/domain"
)

// normalize validates a transaction input and fills in derived fields.
// The symbol defaults to the name, is trimmed and upper-cased; shares are
// derived from total / price when only the total is given.
func normalize(in domain.TransactionInput) (domain.TransactionInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Symbol = normalizeSymbol(in.Symbol)
	if in.Symbol == "" {
		in.Symbol = normalizeSymbol(in.Name)
	}
	if in.Symbol == "" {
		return in, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}

	in.Date = strings.TrimSpace(in.Date)
	if in.Date == "" {
		return in, fmt.Errorf("%w: date is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateDate(in.Date); err != nil {
		return in, err
	}

	if !isPositive(in.Price) {
		return in, fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	}

	if in.Shares == 0 && in.Total != 0 {
		if !isPositive(in.Total) {
			return in, fmt.Errorf("%w: total must be positive", domain.ErrInvalidInput)
		}
		in.Shares = in.Total / in.Price
	}
	if !isPositive(in.Shares) {
		return in, fmt.Errorf("%w: shares must be positive", domain.ErrInvalidInput)
	}

	return in, nil
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
