package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akbaridria/obrix/internal/domain"
)

var eventTitles = map[string]string{
	domain.EventVolatilitySpike:   "Volatility spike",
	domain.EventMeanReversionHigh: "Strong mean reversion",
	domain.EventTWAPDeviation:     "Spot price away from TWAP",
}

// FormatAlert renders an alert as a notification title and body.
func FormatAlert(a domain.Alert) (string, string) {
	title, ok := eventTitles[a.Event]
	if !ok {
		title = a.Event
	}
	if a.Pair != "" {
		title += " on " + a.Pair
	}

	var b strings.Builder
	fmt.Fprintf(&b, "pool: %s\n", a.PoolID)
	fmt.Fprintf(&b, "%s: %s (threshold %s)", a.Metric, formatValue(a.Value), formatValue(a.Threshold))
	if !a.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\nat: %s", a.CreatedAt.UTC().Format(time.RFC3339))
	}
	return title, b.String()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
