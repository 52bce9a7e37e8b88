package ledger

// =============================================================================
// STATEMENT PERIOD - Inclusive invoice-date window for a statement
// =============================================================================

// StatementPeriod bounds which invoices a statement pulls, by invoice date.
// Due date and payment date play no part: an invoice issued before From is
// excluded even if it was paid inside the window.
type StatementPeriod struct {
	From Date
	To   Date
}

// DefaultPeriod runs from January 1 of today's year through today.
func DefaultPeriod(today Date) StatementPeriod {
	return StatementPeriod{From: StartOfYear(today.Year()), To: today}
}

// ResolvePeriod fills missing bounds from DefaultPeriod and rejects an
// inverted window.
func ResolvePeriod(from, to *Date, today Date) (StatementPeriod, error) {
	p := DefaultPeriod(today)
	if from != nil {
		p.From = *from
	}
	if to != nil {
		p.To = *to
	}
	if p.To.Before(p.From) {
		return StatementPeriod{}, ErrInvalidPeriod
	}
	return p, nil
}

// Contains returns true if d is within [From, To].
func (p StatementPeriod) Contains(d Date) bool {
	return d.AfterOrEqual(p.From) && d.BeforeOrEqual(p.To)
}

func (p StatementPeriod) String() string {
	return "[" + p.From.String() + ", " + p.To.String() + "]"
}
