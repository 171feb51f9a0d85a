package service

import (
	"fmt"
	"math"
	"strings"
)

// rateScale is the fixed-point precision used for exchange rates: rates are
// held as integer micro-units so settlement amounts never pass through binary
// floats.
const rateScale = 1_000_000

// NormalizeAmount converts an order total, in minor units of the display
// currency, into minor units of the processor's settlement currency. The
// conversion is an identity when the currencies already match; otherwise the
// configured fixed rate is applied with half-up rounding.
func NormalizeAmount(totalCents int64, displayCurrency, settlementCurrency, rate string) (int64, error) {
	if totalCents <= 0 {
		return 0, newValidationError("order total must be greater than zero")
	}

	if strings.EqualFold(strings.TrimSpace(displayCurrency), strings.TrimSpace(settlementCurrency)) {
		return totalCents, nil
	}

	rateMicros, err := parseRateMicros(rate)
	if err != nil {
		return 0, err
	}

	// The intermediate product must fit in int64; a wrapped negative would
	// otherwise surface as a bogus zero-amount rejection.
	if totalCents > (math.MaxInt64-rateScale/2)/rateMicros {
		return 0, newValidationError("order total exceeds the convertible range")
	}

	// Half-up on the last retained cent.
	settlement := (totalCents*rateMicros + rateScale/2) / rateScale
	if settlement <= 0 {
		return 0, newValidationError("converted amount rounds to zero")
	}
	return settlement, nil
}

// FormatCents renders minor units as the fixed 2-decimal string form the
// processor requires, e.g. 1500 -> "15.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// parseRateMicros parses a decimal exchange rate such as "1.5" or "109.75"
// into integer micro-units. Anything non-positive or non-numeric is a
// configuration error.
func parseRateMicros(rate string) (int64, error) {
	trimmed := strings.TrimSpace(rate)
	if trimmed == "" {
		return 0, ErrInvalidExchangeRate
	}

	intPart := trimmed
	fracPart := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		intPart = trimmed[:idx]
		fracPart = trimmed[idx+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidExchangeRate
	}

	var micros int64
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidExchangeRate
		}
		micros = micros*10 + int64(r-'0')
		if micros > 1<<40 {
			return 0, ErrInvalidExchangeRate
		}
	}
	micros *= rateScale

	scale := int64(rateScale / 10)
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidExchangeRate
		}
		if scale == 0 {
			// More precision than the fixed-point form carries; the extra
			// digits cannot be represented faithfully, so reject the rate.
			return 0, ErrInvalidExchangeRate
		}
		micros += int64(r-'0') * scale
		scale /= 10
	}

	if micros <= 0 {
		return 0, ErrInvalidExchangeRate
	}
	return micros, nil
}
