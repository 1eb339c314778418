package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MinorUnitDigits is the number of minor-unit digits for the currencies handled (pence, cents).
const MinorUnitDigits = 2

// maxIntegerDigits keeps the minor-unit value inside int64.
const maxIntegerDigits = 15

var ErrAmountUnparseable = errors.New("amount unparseable")

// AmountError describes why a monetary string was rejected.
type AmountError struct {
	Input  string
	Reason string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("amount unparseable %q: %s", e.Input, e.Reason)
}

func (e *AmountError) Unwrap() error {
	return ErrAmountUnparseable
}

var currencyMarks = []string{"GBP", "USD", "EUR", "£", "$", "€", "¥"}

// ParseAmount converts a currency string into integer minor units.
//
// Currency symbols, codes, spaces and thousands separators are stripped. When both ',' and
// '.' appear the later one is the decimal separator; a lone ',' followed by one or two digits
// is a decimal comma, otherwise it separates thousands. Parentheses or a leading '-' mark a
// negative value. Inputs with more than two fraction digits are rejected, never rounded.
func ParseAmount(text string) (int64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, &AmountError{Input: text, Reason: "empty"}
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = stripCurrency(s)
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		if negative {
			return 0, &AmountError{Input: text, Reason: "conflicting sign markers"}
		}
		negative = s[0] == '-'
		s = stripCurrency(s[1:])
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)

	canonical, reason := canonicalDigits(s)
	if reason != "" {
		return 0, &AmountError{Input: text, Reason: reason}
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return 0, &AmountError{Input: text, Reason: err.Error()}
	}
	if d.Exponent() < -MinorUnitDigits {
		return 0, &AmountError{Input: text, Reason: "more than 2 decimal places"}
	}
	minor := d.Shift(MinorUnitDigits)
	if !minor.IsInteger() {
		return 0, &AmountError{Input: text, Reason: "sub-minor-unit precision"}
	}

	v := minor.IntPart()
	if negative {
		v = -v
	}
	return v, nil
}

// FormatAmount renders minor units as a plain decimal string, e.g. 123456 -> "1234.56".
func FormatAmount(minor int64) string {
	return MinorUnitsToDecimal(minor).StringFixed(MinorUnitDigits)
}

var ErrAmountOverflow = errors.New("amount sum overflows")

// SumMinorUnits adds minor-unit amounts, failing with ErrAmountOverflow instead of wrapping.
func SumMinorUnits(amounts ...int64) (int64, error) {
	var sum int64
	for _, a := range amounts {
		next := sum + a
		if (a > 0 && next < sum) || (a < 0 && next > sum) {
			return 0, ErrAmountOverflow
		}
		sum = next
	}
	return sum, nil
}

// MinorUnitsToDecimal converts minor units into an exact decimal currency value.
func MinorUnitsToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorUnitDigits)
}

func stripCurrency(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := s
		for _, mark := range currencyMarks {
			if len(trimmed) >= len(mark) && strings.EqualFold(trimmed[:len(mark)], mark) {
				trimmed = trimmed[len(mark):]
			}
			if len(trimmed) >= len(mark) && strings.EqualFold(trimmed[len(trimmed)-len(mark):], mark) {
				trimmed = trimmed[:len(trimmed)-len(mark)]
			}
			trimmed = strings.TrimSpace(trimmed)
		}
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// canonicalDigits rewrites s into "digits[.digits]" or returns a rejection reason.
func canonicalDigits(s string) (string, string) {
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == ',':
		default:
			return "", fmt.Sprintf("unexpected character %q", r)
		}
	}
	if !hasDigit {
		return "", "no digits"
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	var decimalSep, thousandsSep byte
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			decimalSep, thousandsSep = '.', ','
		} else {
			decimalSep, thousandsSep = ',', '.'
		}
	case dots > 0:
		decimalSep = '.'
	case commas == 1 && len(s)-strings.Index(s, ",")-1 <= MinorUnitDigits:
		decimalSep = ','
	case commas > 0:
		thousandsSep = ','
	}

	intPart, fracPart := s, ""
	if decimalSep != 0 {
		if strings.Count(s, string(decimalSep)) > 1 {
			return "", "multiple decimal points"
		}
		idx := strings.IndexByte(s, decimalSep)
		intPart, fracPart = s[:idx], s[idx+1:]
		if fracPart == "" {
			return "", "missing digits after decimal point"
		}
		if thousandsSep != 0 && strings.IndexByte(fracPart, thousandsSep) >= 0 {
			return "", "thousands separator after decimal point"
		}
	}

	if thousandsSep != 0 && strings.IndexByte(intPart, thousandsSep) >= 0 {
		groups := strings.Split(intPart, string(thousandsSep))
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return "", "misplaced thousands separator"
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return "", "misplaced thousands separator"
			}
		}
		intPart = strings.Join(groups, "")
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(strings.TrimLeft(intPart, "0")) > maxIntegerDigits {
		return "", "too many digits"
	}

	if fracPart == "" {
		return intPart, ""
	}
	return intPart + "." + fracPart, ""
}
