// Package cost apportions sheet-level money across leads, on the buying
// side (what a supplier charged for an upload) and on the selling side
// (what a client pays for a distribution).
package cost

import "github.com/rotisserie/eris"

// Cost modes for supplier pricing.
const (
	ModeTotalSheet = "total_sheet" // amount covers the whole sheet
	ModePerLead    = "per_lead"    // amount is a literal per-lead price
)

// Buying holds the resolved purchase cost of an upload batch.
type Buying struct {
	Total   float64 `json:"total_buying_price"`
	PerLead float64 `json:"buying_price_per_lead"`
}

// ResolveBuying turns a supplier's quoted amount and cost mode into total
// and per-lead prices for a batch of n leads.
func ResolveBuying(amount float64, mode string, n int) (Buying, error) {
	if amount < 0 {
		return Buying{}, eris.New("cost: negative amount")
	}

	switch mode {
	case ModeTotalSheet, "":
		b := Buying{Total: amount}
		if n > 0 {
			b.PerLead = amount / float64(n)
		}
		return b, nil
	case ModePerLead:
		return Buying{Total: amount * float64(n), PerLead: amount}, nil
	default:
		return Buying{}, eris.Errorf("cost: unknown cost mode %q", mode)
	}
}

// PerLeadSelling computes the per-lead selling price for a distribution:
// sheet price divided by the number of allocated leads.
func PerLeadSelling(sheetPrice float64, leads int) float64 {
	if leads <= 0 {
		return 0
	}
	return sheetPrice / float64(leads)
}
