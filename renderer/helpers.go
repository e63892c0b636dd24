package renderer

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/etnz/pocket"
)

// Money formats a in currency, with its symbol: "€600.00".
// An unknown currency falls back to the plain amount followed by the code.
func Money(a pocket.Amount, currency string) string {
	code := strings.ToUpper(currency)
	if money.GetCurrency(code) == nil {
		return a.String() + " " + currency
	}
	return money.New(a.Cents(), code).Display()
}

// Signed formats the amount of e, negative for an expense.
func Signed(e pocket.Entry, currency string) string {
	if e.Kind == pocket.Expense && !e.Amount.IsZero() {
		return Money(e.Amount.Neg(), currency)
	}
	return "+" + Money(e.Amount, currency)
}

// escape makes s safe inside a markdown table cell.
func escape(s string) string { return strings.ReplaceAll(s, "|", `\|`) }
