package bot

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedInput is returned when a message is not "<amount> <description>".
var ErrMalformedInput = errors.New("malformed expense input")

// ParsedExpense represents a parsed expense from user input.
type ParsedExpense struct {
	Amount      decimal.Decimal
	Description string
}

// amountRegex matches a normalized amount: digits with at most two decimals,
// where the integer part may be left out (".50").
var amountRegex = regexp.MustCompile(`^(?:\d+(?:\.\d{1,2})?|\.\d{1,2})$`)

// ParseExpenseInput parses free text like "1500,50 Almuerzo con Juan".
// The first whitespace-separated token is the amount, the rest is the concept.
func ParseExpenseInput(input string) (*ParsedExpense, error) {
	tokens := strings.Fields(input)
	if len(tokens) < 2 {
		return nil, ErrMalformedInput
	}

	amount, err := parseAmount(tokens[0])
	if err != nil {
		return nil, err
	}

	return &ParsedExpense{
		Amount:      amount,
		Description: strings.Join(tokens[1:], " "),
	}, nil
}

// parseAmount accepts "1500", "1500.50", "1500,50" and ",50". Zero, negative
// and exponent forms are rejected, and so are amounts finer than cents, which
// the ledger could not store without rounding.
func parseAmount(token string) (decimal.Decimal, error) {
	normalized := strings.Replace(strings.TrimSpace(token), ",", ".", 1)
	if !amountRegex.MatchString(normalized) {
		return decimal.Zero, ErrMalformedInput
	}

	amount, err := decimal.NewFromString(normalized)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrMalformedInput
	}
	return amount, nil
}
