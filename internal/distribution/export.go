package distribution

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

// csvColumns is the fixed export layout clients receive.
var csvColumns = []string{
	"s.no", "firstname", "lastname", "email", "phone", "companyname",
	"taxid", "address", "city", "state", "zipcode", "country",
}

// ExportCSV writes a distribution's leads as CSV and returns the filename
// recorded on the distribution.
func (a *Allocator) ExportCSV(ctx context.Context, distributionID int64, w io.Writer) (string, error) {
	dist, err := a.store.GetDistribution(ctx, distributionID)
	if err != nil {
		return "", err
	}
	if dist == nil {
		return "", eris.Errorf("distribution: %d not found", distributionID)
	}

	rows, err := a.store.HistoryByDistribution(ctx, distributionID)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", eris.Errorf("distribution: no leads found for distribution %d", distributionID)
	}

	// History holds one row per (client, lead); the export sheet carries
	// each lead once.
	seen := map[int64]bool{}
	unique := rows[:0]
	for _, r := range rows {
		if seen[r.LeadID] {
			continue
		}
		seen[r.LeadID] = true
		unique = append(unique, r)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return "", eris.Wrap(err, "distribution: write csv header")
	}
	for i, r := range unique {
		record := []string{
			strconv.Itoa(i + 1),
			r.FirstName, r.LastName, r.Email, r.Phone, r.CompanyName,
			r.TaxID, r.Address, r.City, r.State, r.ZipCode, r.Country,
		}
		if err := cw.Write(record); err != nil {
			return "", eris.Wrap(err, "distribution: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", eris.Wrap(err, "distribution: flush csv")
	}

	filename := dist.ExportedFilename
	if filename == "" {
		filename = "distribution_" + strconv.FormatInt(distributionID, 10) + ".csv"
	}
	return filename, nil
}

// HistoryEntry is one distribution plus its per-client row counts.
type HistoryEntry struct {
	Distribution lead.Distribution `json:"distribution"`
	ClientCounts map[int64]int     `json:"client_counts,omitempty"`
}

// History lists past distributions, newest first, with the number of
// history rows written per client.
func (a *Allocator) History(ctx context.Context, limit, offset int) ([]HistoryEntry, error) {
	dists, err := a.store.ListDistributions(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]HistoryEntry, 0, len(dists))
	for _, d := range dists {
		rows, err := a.store.HistoryByDistribution(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		entry := HistoryEntry{Distribution: d}
		if len(rows) > 0 {
			entry.ClientCounts = map[int64]int{}
			for _, r := range rows {
				entry.ClientCounts[r.ClientID]++
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
