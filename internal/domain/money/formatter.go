// Package money renders and parses amounts held in integer minor units (cents).
package money

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	DefaultLocale = "es-CO"
	minorDigits   = 2
)

// Formatter formats with the separators and currency symbols of one locale.
// Arithmetic stays in integer minor units; floats are never involved.
type Formatter struct {
	tag        language.Tag
	printer    *message.Printer
	decimalSep string
	groupSep   string
}

func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}

	f := &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
	f.decimalSep, f.groupSep = separators(f.printer)
	return f
}

// separators derives the locale's decimal and grouping marks from a rendered sample.
func separators(p *message.Printer) (string, string) {
	sample := p.Sprint(number.Decimal(1234567.5, number.Scale(1)))

	var marks []string
	for _, r := range sample {
		if !unicode.IsDigit(r) {
			marks = append(marks, string(r))
		}
	}

	decimalSep, groupSep := ".", ","
	if len(marks) > 0 {
		decimalSep = marks[len(marks)-1]
	}
	if len(marks) > 1 && marks[0] != decimalSep {
		groupSep = marks[0]
	} else if decimalSep == "," {
		groupSep = "."
	}
	return decimalSep, groupSep
}

func (f *Formatter) Locale() string {
	return f.tag.String()
}

func (f *Formatter) Symbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code
	}
	return f.printer.Sprint(currency.Symbol(unit))
}

// Format renders amountMinorUnits with exactly two fractional digits, e.g. $1,234.56 or -$0.05.
func (f *Formatter) Format(amountMinorUnits int64, code string) string {
	d := decimal.New(amountMinorUnits, -minorDigits)
	abs := d.Abs()
	_, minor, _ := strings.Cut(abs.StringFixed(minorDigits), ".")

	var b strings.Builder
	if d.Sign() < 0 {
		b.WriteString("-")
	}
	symbol := f.Symbol(code)
	b.WriteString(symbol)
	if needsSpace(symbol) {
		b.WriteString(" ")
	}
	b.WriteString(f.printer.Sprint(number.Decimal(abs.Truncate(0).IntPart())))
	b.WriteString(f.decimalSep)
	b.WriteString(minor)
	return b.String()
}

// Parse is the inverse of Format. It returns the amount in minor units.
func (f *Formatter) Parse(s string, code string) (int64, error) {
	text := strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(text, "-") {
		negative = true
		text = strings.TrimSpace(strings.TrimPrefix(text, "-"))
	}

	text = strings.TrimSpace(strings.TrimPrefix(text, f.Symbol(code)))
	text = strings.ReplaceAll(text, f.groupSep, "")
	if f.decimalSep != "." {
		text = strings.ReplaceAll(text, f.decimalSep, ".")
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if d.Sign() < 0 {
		return 0, fmt.Errorf("invalid price %q: misplaced sign", s)
	}

	minor := d.Shift(minorDigits)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("invalid price %q: more than %d fractional digits", s, minorDigits)
	}
	if negative {
		minor = minor.Neg()
	}
	return minor.IntPart(), nil
}

func needsSpace(symbol string) bool {
	r, _ := utf8.DecodeLastRuneInString(symbol)
	return unicode.IsLetter(r)
}

var defaultFormatter = NewFormatter(DefaultLocale)

// FormatPrice formats with the storefront's default locale.
func FormatPrice(amountMinorUnits int64, code string) string {
	return defaultFormatter.Format(amountMinorUnits, code)
}

func ParsePrice(s string, code string) (int64, error) {
	return defaultFormatter.Parse(s, code)
}
