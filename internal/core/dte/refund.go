package dte

// RefundPrefix is prepended to every credit-note line description.
const RefundPrefix = "Devolución - "

// RefundLine is one returned line of a refund event.
type RefundLine struct {
	// LineID references SaleLine.ID of the original order.
	LineID   string
	Quantity int
}

// Reconciliation is the credit-note content derived from a refund.
type Reconciliation struct {
	Lines []DetailLine
	// Dropped lists refund line references with no usable original line.
	Dropped []string
}

// Empty reports whether no credit note should be emitted.
func (r Reconciliation) Empty() bool {
	return len(r.Lines) == 0
}

// ReconcileRefund maps refunded lines back onto the original order lines.
// Each matched line keeps the original code, name and tax-inclusive unit
// price, with the refunded quantity. Lines that match nothing, or that
// refund a non-positive quantity, are dropped.
func ReconcileRefund(refunded []RefundLine, original []SaleLine) Reconciliation {
	positions := make(map[string]int, len(original))
	for i, line := range original {
		if line.ID != "" {
			positions[line.ID] = i
		}
	}

	var out Reconciliation
	for _, r := range refunded {
		i, ok := positions[r.LineID]
		if !ok || r.Quantity <= 0 {
			out.Dropped = append(out.Dropped, r.LineID)
			continue
		}

		src := original[i]
		detail := MapLine(src, i+1, TaxInclusive)
		detail.Quantity = r.Quantity
		detail.Description = Truncate(RefundPrefix+lineDescription(src), MaxDescriptionLength)
		out.Lines = append(out.Lines, detail)
	}
	return out
}
