package analytics

import (
	"errors"
	"fmt"

	"github.com/akbaridria/obrix/internal/domain"
)

var (
	// ErrMalformedPrice reports a swap whose sqrtPriceX96 is missing or negative.
	ErrMalformedPrice = errors.New("malformed sqrtPriceX96")
	// ErrUnorderedSwaps reports a window that is not sorted by timestamp.
	ErrUnorderedSwaps = errors.New("swaps not in ascending timestamp order")
	// ErrDecimalsOutOfRange reports token decimals outside [0, MaxDecimals].
	ErrDecimalsOutOfRange = errors.New("token decimals out of range")
)

// MaxDecimals bounds token decimals; uint256 amounts cannot carry more than
// 77 significant decimal digits.
const MaxDecimals = 77

func checkSqrtPrice(s domain.SwapRecord) error {
	if s.SqrtPriceX96 == nil || s.SqrtPriceX96.Sign() < 0 {
		return fmt.Errorf("swap %s: %w", s.ID, ErrMalformedPrice)
	}
	return nil
}

// ValidateWindow checks the shape of a fetched window before it is handed to
// the engine: timestamps must be non-decreasing, every price present and
// non-negative, and any reported decimals within range.
func ValidateWindow(window domain.SwapWindow) error {
	for _, tok := range []domain.Token{window.Pool.Token0, window.Pool.Token1} {
		if tok.Decimals == nil {
			continue
		}
		if d := *tok.Decimals; d < 0 || d > MaxDecimals {
			return fmt.Errorf("token %s decimals %d: %w", tok.Symbol, d, ErrDecimalsOutOfRange)
		}
	}
	for i, s := range window.Swaps {
		if err := checkSqrtPrice(s); err != nil {
			return err
		}
		if i > 0 && s.Timestamp < window.Swaps[i-1].Timestamp {
			return fmt.Errorf("swap %s at index %d (t=%d < %d): %w",
				s.ID, i, s.Timestamp, window.Swaps[i-1].Timestamp, ErrUnorderedSwaps)
		}
	}
	return nil
}
