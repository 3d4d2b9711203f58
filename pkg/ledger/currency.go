package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// E8sPerICP is the number of e8s in one whole ICP
const E8sPerICP uint64 = 100_000_000

const e8sDecimals = 8

// ErrInvalidAmount indicates an ICP amount that cannot be expressed in e8s
var ErrInvalidAmount = errors.New("invalid amount")

// ParseICP converts a decimal ICP amount such as "1.5" into e8s. Negative
// amounts, more than eight decimal places and values beyond uint64 are
// rejected.
func ParseICP(amount string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, amount, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, amount)
	}

	scaled := d.Shift(e8sDecimals)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, amount, e8sDecimals)
	}

	value := scaled.BigInt()
	if !value.IsUint64() {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, amount)
	}
	return value.Uint64(), nil
}

// FormatICP renders an e8s amount as a decimal ICP string without trailing
// zeros, e.g. 150000000 -> "1.5".
func FormatICP(e8s uint64) string {
	return decimal.NewFromUint64(e8s).Shift(-e8sDecimals).String()
}
