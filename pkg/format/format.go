// Package format renders monetary and sensitive values for display. Amounts
// are handled as exact decimals; values from the backend may arrive as JSON
// numbers or strings.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultPlaces is the number of fraction digits shown for amounts.
const DefaultPlaces = 2

// ParseDecimal reads an amount from a backend or form value. Thousand
// separators are accepted.
func ParseDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	}
	text := strings.ReplaceAll(strings.TrimSpace(fmt.Sprint(value)), ",", "")
	if text == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Decimal formats an amount with grouped thousands and a fixed number of
// fraction digits. Values that are not numbers are returned as text.
func Decimal(value any, places int32) string {
	d, ok := ParseDecimal(value)
	if !ok {
		if value == nil {
			return ""
		}
		return fmt.Sprint(value)
	}
	return Amount(d, places)
}

// Amount formats a decimal with grouped thousands.
func Amount(d decimal.Decimal, places int32) string {
	if places < 0 {
		places = DefaultPlaces
	}
	sign := ""
	rounded := d.Round(places)
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	fixed := rounded.StringFixed(places)
	_, fraction, _ := strings.Cut(fixed, ".")
	grouped := humanize.BigComma(rounded.Truncate(0).BigInt())
	if fraction == "" {
		return sign + grouped
	}
	return sign + grouped + "." + fraction
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "02.01.2006", "02/01/2006"}

// Date normalises a backend timestamp to the yyyy-mm-dd form date inputs
// expect. Text in no known layout is returned trimmed.
func Date(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return text
}

// Mask hides all but the last visible characters of a sensitive value.
func Mask(value any, visible int) string {
	text := strings.TrimSpace(fmt.Sprint(value))
	if value == nil || text == "" {
		return ""
	}
	runes := []rune(text)
	if visible < 0 {
		visible = 0
	}
	if visible >= len(runes) {
		return strings.Repeat("•", len(runes))
	}
	return strings.Repeat("•", len(runes)-visible) + string(runes[len(runes)-visible:])
}
