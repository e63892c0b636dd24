// Package renderer renders the ledger as markdown.
package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/etnz/pocket"
	"github.com/etnz/pocket/date"
	md "github.com/nao1215/markdown"
)

// Entry renders a one line description of an entry.
func Entry(e pocket.Entry, currency string) string {
	verb := "Spent"
	if e.Kind == pocket.Income {
		verb = "Received"
	}
	s := fmt.Sprintf("%s %s on %s for %q", verb, Money(e.Amount, currency), date.Of(e.Timestamp), e.Name)
	if e.Category != "" {
		s += fmt.Sprintf(" (%s)", e.Category)
	}
	return s
}

// status is the marker of a pending entry.
func status(s pocket.State) string {
	switch s {
	case pocket.PendingCreate:
		return "⏳"
	case pocket.PendingDelete:
		return "🗑"
	default:
		return ""
	}
}

// entriesTable lays the entries out as a table, days computed in loc.
func entriesTable(entries []pocket.Entry, currency string, loc *time.Location) md.TableSet {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		name := escape(e.Name)
		if e.Icon != "" {
			name = e.Icon + " " + name
		}
		rows = append(rows, []string{
			date.Of(e.Timestamp.In(loc)).String(),
			name,
			escape(e.Category),
			Signed(e, currency),
			status(e.State),
			md.Code(e.ID),
		})
	}
	return md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignCenter, md.AlignLeft},
		Header:    []string{"Date", "Name", "Category", "Amount", "State", "ID"},
		Rows:      rows,
	}
}

// EntriesMarkdown renders the entries of owner, most recent first.
func EntriesMarkdown(owner string, entries []pocket.Entry, currency string, loc *time.Location) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Entries of %s", owner))
	if len(entries) == 0 {
		doc.PlainText("No entries yet.")
		return doc.String()
	}

	pending := 0
	for _, e := range entries {
		if e.State.Pending() {
			pending++
		}
	}
	if pending > 0 {
		doc.PlainText(fmt.Sprintf("%d entries are waiting for the next synchronization.", pending))
	}
	doc.Table(entriesTable(entries, currency, loc))
	return doc.String()
}

// SummaryMarkdown renders the totals of a summary, and its entries.
func SummaryMarkdown(s pocket.Summary, currency string, loc *time.Location) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Summary of %s for %s", s.Owner, s.Range.Identifier()))
	doc.PlainText(fmt.Sprintf("From %s to %s.", s.Range.From, s.Range.To))
	if s.Pending > 0 {
		doc.PlainText(fmt.Sprintf("%d entries are not synchronized yet.", s.Pending))
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Total", "Amount"},
		Rows: [][]string{
			{"Incomes", Money(s.Incomes, currency)},
			{"Expenses", Money(s.Expenses, currency)},
			{md.Bold("Balance"), md.Bold(Money(s.Balance(), currency))},
		},
	})

	if len(s.Entries) > 0 {
		doc.H2("Entries")
		doc.Table(entriesTable(s.Entries, currency, loc))
	}
	return doc.String()
}
