// Package card validates payment card input before it is tokenized.
// All checks are pure and never touch the network.
package card

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuzvak/checkout-service/internal/pkg/clock"
)

type Brand string

const (
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
	BrandAmex       Brand = "amex"
	BrandUnknown    Brand = "unknown"
)

const (
	minNumberLength = 13
	maxNumberLength = 19
)

type ValidationResult struct {
	IsValid        bool   `json:"is_valid"`
	Brand          Brand  `json:"brand"`
	LastFourDigits string `json:"last_four_digits"`
}

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	expiryPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{2,4})$`)
)

// ValidateNumber runs the length, digit and Luhn checks on raw and detects the brand.
func ValidateNumber(raw string) ValidationResult {
	clean := stripSeparators(raw)
	result := ValidationResult{
		Brand:          BrandUnknown,
		LastFourDigits: lastFour(clean),
	}

	if len(clean) < minNumberLength || len(clean) > maxNumberLength {
		return result
	}
	if !allDigits(clean) {
		return result
	}

	result.IsValid = luhn(clean)
	result.Brand = DetectBrand(clean)
	return result
}

// DetectBrand inspects the leading digits of a cleaned card number.
func DetectBrand(digits string) Brand {
	switch {
	case strings.HasPrefix(digits, "4"):
		return BrandVisa
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return BrandMastercard
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return BrandAmex
	default:
		return BrandUnknown
	}
}

func ValidateCVC(cvc string, brand Brand) bool {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cvc)

	if !allDigits(clean) {
		return false
	}
	if brand == BrandAmex {
		return len(clean) == 4
	}
	return len(clean) == 3
}

type Validator struct {
	clock clock.Clock
}

func NewValidator(c clock.Clock) *Validator {
	if c == nil {
		c = clock.NewRealClock()
	}
	return &Validator{clock: c}
}

// ValidateExpiry accepts a card only if it expires strictly after the current month.
// A card expiring this month is rejected.
func (v *Validator) ValidateExpiry(month, year string) bool {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return false
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return false
	}
	if m < 1 || m > 12 {
		return false
	}

	currentYear, currentMonth := clock.YearMonth(v.clock)
	if y < currentYear {
		return false
	}
	if y == currentYear && m <= currentMonth {
		return false
	}
	return true
}

var defaultValidator = NewValidator(nil)

func ValidateExpiry(month, year string) bool {
	return defaultValidator.ValidateExpiry(month, year)
}

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ParseExpiry splits MM/YY, MM/YYYY, MM-YY or MM-YYYY into a two digit month and a four digit year.
func ParseExpiry(s string) (month, year string, ok bool) {
	match := expiryPattern.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil || len(match[2]) == 3 {
		return "", "", false
	}

	m, _ := strconv.Atoi(match[1])
	y, _ := strconv.Atoi(match[2])
	if y < 100 {
		y += 2000
	}
	return fmt.Sprintf("%02d", m), strconv.Itoa(y), true
}

func stripSeparators(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, raw)
}

func lastFour(s string) string {
	r := []rune(s)
	if len(r) < 4 {
		return ""
	}
	return string(r[len(r)-4:])
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
