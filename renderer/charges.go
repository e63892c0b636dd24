package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/pocket"
	"github.com/etnz/pocket/date"
	md "github.com/nao1215/markdown"
)

// nextDue returns the next day c produces an entry.
func nextDue(c pocket.ScheduledCharge, today date.Date) date.Date {
	due := pocket.Occurrences(c, today)
	if len(due) > 0 {
		return due[0]
	}
	if c.LastMaterialized.IsZero() || c.LastMaterialized.Before(c.Anchor) {
		return c.Anchor
	}
	return c.Period.Step(c.LastMaterialized, c.Anchor)
}

// ChargesMarkdown renders the scheduled charges as a table.
func ChargesMarkdown(charges []pocket.ScheduledCharge, currency string, today date.Date) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf).H1("Scheduled charges")
	if len(charges) == 0 {
		doc.PlainText("No scheduled charges.")
		return doc.String()
	}

	due := 0
	for _, c := range charges {
		due += len(pocket.Occurrences(c, today))
	}
	if due > 0 {
		doc.PlainText(fmt.Sprintf("%d occurrences are due and will be recorded on the next synchronization.", due))
	}

	rows := make([][]string, 0, len(charges))
	for _, c := range charges {
		last := "never"
		if !c.LastMaterialized.IsZero() {
			last = c.LastMaterialized.String()
		}
		next := nextDue(c, today)
		nextCell := next.String()
		if !next.After(today) {
			nextCell = md.Bold(nextCell)
		}
		name := escape(c.Name)
		if c.Icon != "" {
			name = c.Icon + " " + name
		}
		owner := c.OwnerID
		if owner == "" {
			owner = "any"
		}
		rows = append(rows, []string{
			md.Code(c.ID),
			name,
			Money(c.Amount, currency),
			c.Period.String(),
			c.Anchor.String(),
			nextCell,
			last,
			owner,
		})
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft},
		Header:    []string{"ID", "Name", "Amount", "Period", "Anchor", "Next", "Last", "Owner"},
		Rows:      rows,
	})
	return doc.String()
}
