package bot

import (
	"strings"
	"testing"
)

func FuzzParseExpenseInput(f *testing.F) {
	for _, seed := range []string{
		"1500 Super",
		"1500,50 Almuerzo",
		"1500.50 Almuerzo",
		"0.01 chicle",
		"1.500,50 Super",
		"-10 x",
		"NaN x",
		"Inf x",
		"1e10 x",
		"",
		"   ",
		",50 x",
		"50, x",
		". x",
		"99999999999999999999 caro",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseExpenseInput(input)
		if err != nil {
			if parsed != nil {
				t.Fatalf("ParseExpenseInput(%q) returned a value with error %v", input, err)
			}
			return
		}

		if !parsed.Amount.IsPositive() {
			t.Fatalf("ParseExpenseInput(%q) returned non-positive amount %s", input, parsed.Amount)
		}
		if parsed.Description == "" || parsed.Description != strings.Join(strings.Fields(parsed.Description), " ") {
			t.Fatalf("ParseExpenseInput(%q) returned unnormalized description %q", input, parsed.Description)
		}
		if parsed.Amount.Exponent() < -2 {
			t.Fatalf("ParseExpenseInput(%q) kept more than two decimals: %s", input, parsed.Amount)
		}
	})
}
