// Package receipt extracts an amount and a merchant name from recognized
// receipt text using plain rules. Receipts use the Argentine layout: dots
// group thousands and a comma separates cents (1.500,00).
package receipt

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// PlaceholderMerchant is used when no line of the receipt looks like a name.
const PlaceholderMerchant = "Comprobante"

// MaxMerchantLength bounds the inferred merchant, in runes.
const MaxMerchantLength = 30

const minMerchantLength = 4

var (
	minPlausible = decimal.NewFromInt(100)
	maxPlausible = decimal.NewFromInt(1_000_000)

	// numberToken is a maximal run of digits and separators.
	numberToken = regexp.MustCompile(`\d[\d.,]*\d|\d`)

	thousandsDecimal = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?$`)
	commaDecimal     = regexp.MustCompile(`^\d+,\d{1,2}$`)
	plainInteger     = regexp.MustCompile(`^\d+$`)
	dotDecimal       = regexp.MustCompile(`^\d+\.\d{2}$`)

	totalLabel = regexp.MustCompile(`(?i)\b(total|importe|pagaste|a pagar)\b`)
)

// Result is what the heuristics inferred from one receipt. MerchantInferred
// is set only when a digit-free line named the business; a fallback line
// such as "TOTAL 4500" is reported in Merchant but not trusted.
type Result struct {
	Amount           decimal.Decimal
	HasAmount        bool
	Merchant         string
	MerchantInferred bool
}

// Analyze runs both extractors over the recognized text.
func Analyze(text string) Result {
	amount, ok := ExtractAmount(text)
	merchant := ExtractMerchant(text)
	return Result{
		Amount:           amount,
		HasAmount:        ok,
		Merchant:         merchant,
		MerchantInferred: merchant != PlaceholderMerchant && !strings.ContainsFunc(merchant, unicode.IsDigit),
	}
}

// ExtractAmount returns the most likely total of a receipt.
//
// Amounts on a line labeled total/importe/pagaste win. Otherwise every
// number written as 1.500 / 1.500,00 / 1500,00 is a candidate. Candidates
// outside (100, 1.000.000) are dropped and the largest survivor is returned.
func ExtractAmount(text string) (decimal.Decimal, bool) {
	var labeled, general []decimal.Decimal

	for line := range strings.SplitSeq(text, "\n") {
		loc := totalLabel.FindStringIndex(line)
		for _, idx := range numberToken.FindAllStringIndex(line, -1) {
			token := line[idx[0]:idx[1]]

			if loc != nil && idx[0] >= loc[1] {
				if v, ok := parseLabeled(token); ok && plausible(v) {
					labeled = append(labeled, v)
				}
			}
			if v, ok := parseCandidate(token); ok && plausible(v) {
				general = append(general, v)
			}
		}
	}

	if v, ok := largest(labeled); ok {
		return v, true
	}
	return largest(general)
}

// ExtractMerchant returns the first line that looks like a business name.
// Lines shorter than four runes are ignored; digit-free lines are preferred.
func ExtractMerchant(text string) string {
	var fallback string

	for line := range strings.SplitSeq(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if utf8.RuneCountInString(line) < minMerchantLength {
			continue
		}
		if !strings.ContainsFunc(line, unicode.IsDigit) {
			return truncate(line, MaxMerchantLength)
		}
		if fallback == "" {
			fallback = line
		}
	}

	if fallback != "" {
		return truncate(fallback, MaxMerchantLength)
	}
	return PlaceholderMerchant
}

// parseCandidate accepts only numbers written with Argentine separators.
func parseCandidate(token string) (decimal.Decimal, bool) {
	if !thousandsDecimal.MatchString(token) && !commaDecimal.MatchString(token) {
		return decimal.Zero, false
	}
	return normalize(token)
}

// parseLabeled is more lenient: next to a total label, plain integers and
// dot decimals are amounts too.
func parseLabeled(token string) (decimal.Decimal, bool) {
	switch {
	case thousandsDecimal.MatchString(token), commaDecimal.MatchString(token):
		return normalize(token)
	case plainInteger.MatchString(token), dotDecimal.MatchString(token):
		v, err := decimal.NewFromString(token)
		return v, err == nil
	default:
		return decimal.Zero, false
	}
}

func normalize(token string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(token, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

func plausible(v decimal.Decimal) bool {
	return v.GreaterThan(minPlausible) && v.LessThan(maxPlausible)
}

func largest(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	return decimal.Max(values[0], values[1:]...), true
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
