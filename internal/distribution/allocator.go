// Package distribution allocates cleaned leads to clients: per-batch
// percentage sampling, optional blending, conflict filtering against the
// clients_history ledger, and cost apportionment.
package distribution

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SafeerAbbas624/lead-management-system/internal/cost"
	"github.com/SafeerAbbas624/lead-management-system/internal/db"
	"github.com/SafeerAbbas624/lead-management-system/internal/dedupe"
	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

// BatchSelection picks a percentage of one source batch.
type BatchSelection struct {
	BatchID    int64   `json:"batch_id"`
	Percentage float64 `json:"percentage"`
}

// Request describes one distribution run.
type Request struct {
	Name       string           `json:"distribution_name"`
	Batches    []BatchSelection `json:"batches"`
	ClientIDs  []int64          `json:"client_ids"`
	SheetPrice float64          `json:"selling_price_per_sheet"`
	Blend      bool             `json:"blend_enabled"`
}

// Conflict reports a (client, lead) pair already present in the ledger.
type Conflict struct {
	ClientID      int64     `json:"client_id"`
	LeadID        int64     `json:"lead_id"`
	DistributedAt time.Time `json:"distributed_at"`
}

// Allocator runs distributions against the store.
type Allocator struct {
	store     lead.Store
	batchSize int
	rng       *rand.Rand
}

// NewAllocator creates an Allocator. historyBatchSize bounds each history
// insert; rng may be nil for a time-seeded source.
func NewAllocator(store lead.Store, historyBatchSize int, rng *rand.Rand) *Allocator {
	if historyBatchSize <= 0 {
		historyBatchSize = 100
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Allocator{store: store, batchSize: historyBatchSize, rng: rng}
}

// Distribute allocates leads per the request, persists the distribution
// record plus one history row per (client, lead), and finalizes the record
// with its export filename.
func (a *Allocator) Distribute(ctx context.Context, req Request) (*lead.Distribution, error) {
	if len(req.Batches) == 0 {
		return nil, eris.New("distribution: no batches selected")
	}
	if len(req.ClientIDs) == 0 {
		return nil, eris.New("distribution: no clients selected")
	}

	// Sample each selected batch.
	var sampled [][]lead.Lead
	var shares []lead.BatchShare
	sourceNames := map[int64]string{}
	for _, sel := range req.Batches {
		batch, err := a.store.GetBatch(ctx, sel.BatchID)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return nil, eris.Errorf("distribution: batch %d not found", sel.BatchID)
		}
		sourceNames[batch.ID] = batch.SourceName

		leads, err := a.sampleBatch(ctx, sel)
		if err != nil {
			return nil, err
		}
		if len(leads) == 0 {
			continue
		}
		sampled = append(sampled, leads)
		shares = append(shares, lead.BatchShare{
			BatchID:    sel.BatchID,
			Percentage: sel.Percentage,
			LeadCount:  len(leads),
		})
	}
	if len(sampled) == 0 {
		return nil, eris.New("distribution: no leads selected from batches")
	}

	// Blend or concatenate.
	var candidates []lead.Lead
	if req.Blend {
		candidates = a.blend(sampled)
	} else {
		for _, leads := range sampled {
			candidates = append(candidates, leads...)
		}
	}

	// Conflict filter: a lead with history against any requested client is
	// excluded for all of them.
	leadIDs := make([]int64, len(candidates))
	for i, l := range candidates {
		leadIDs[i] = l.ID
	}
	conflicts, err := a.CheckClientHistory(ctx, req.ClientIDs, leadIDs)
	if err != nil {
		return nil, err
	}
	conflicting := map[int64]bool{}
	for _, c := range conflicts {
		conflicting[c.LeadID] = true
	}

	var final []lead.Lead
	for _, l := range candidates {
		if !conflicting[l.ID] {
			final = append(final, l)
		}
	}
	if len(final) == 0 {
		return nil, a.conflictError(ctx, req.ClientIDs, len(candidates))
	}

	perLead := cost.PerLeadSelling(req.SheetPrice, len(final))

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Distribution %s", time.Now().Format("20060102_150405"))
	}
	now := time.Now().UTC()
	dist := &lead.Distribution{
		Name:           name,
		LeadsAllocated: len(final),
		SheetPrice:     req.SheetPrice,
		PricePerLead:   perLead,
		BlendEnabled:   req.Blend,
		BatchShares:    shares,
		DeliveryStatus: "Completed",
		ExportedAt:     &now,
	}
	if err := a.store.CreateDistribution(ctx, dist); err != nil {
		return nil, err
	}

	// One history row per (client, lead), inserted in bounded chunks.
	// Failures past this point leave the distribution record as the source
	// of truth for what was intended; they are not compensated.
	if err := a.writeHistory(ctx, dist, req.ClientIDs, final, perLead, sourceNames); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("lead_distribution_%d_%s.csv", dist.ID, time.Now().Format("20060102_150405"))
	if err := a.store.SetDistributionExport(ctx, dist.ID, filename); err != nil {
		return nil, err
	}
	dist.ExportedFilename = filename

	zap.S().Infow("distribution complete",
		"distribution_id", dist.ID, "leads", len(final),
		"clients", len(req.ClientIDs), "conflicts", len(conflicts), "blend", req.Blend)
	return dist, nil
}

// sampleBatch draws max(1, floor(n x pct/100)) leads uniformly without
// replacement from one batch.
func (a *Allocator) sampleBatch(ctx context.Context, sel BatchSelection) ([]lead.Lead, error) {
	leads, err := a.store.LeadsByBatch(ctx, sel.BatchID)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, nil
	}

	want := int(float64(len(leads)) * sel.Percentage / 100)
	if want < 1 {
		want = 1
	}
	if want > len(leads) {
		want = len(leads)
	}

	a.rng.Shuffle(len(leads), func(i, j int) {
		leads[i], leads[j] = leads[j], leads[i]
	})
	return leads[:want], nil
}

// blend concatenates the per-batch samples, deduplicates by (email, phone)
// identity, and shuffles the result.
func (a *Allocator) blend(sampled [][]lead.Lead) []lead.Lead {
	seen := map[string]bool{}
	var out []lead.Lead
	for _, leads := range sampled {
		for _, l := range leads {
			key := dedupe.NormalizeEmail(l.Email) + "|" + dedupe.NormalizePhone(l.Phone)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, l)
		}
	}
	a.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// CheckClientHistory returns the (client, lead) pairs already recorded in
// the ledger for any of the given clients and leads.
func (a *Allocator) CheckClientHistory(ctx context.Context, clientIDs, leadIDs []int64) ([]Conflict, error) {
	rows, err := a.store.FindClientHistory(ctx, clientIDs, leadIDs)
	if err != nil {
		return nil, eris.Wrap(err, "distribution: check client history")
	}
	out := make([]Conflict, 0, len(rows))
	for _, r := range rows {
		out = append(out, Conflict{
			ClientID:      r.ClientID,
			LeadID:        r.LeadID,
			DistributedAt: r.DistributedAt,
		})
	}
	return out, nil
}

func (a *Allocator) conflictError(ctx context.Context, clientIDs []int64, total int) error {
	names := "selected clients"
	if clients, err := a.store.GetClients(ctx, clientIDs); err == nil && len(clients) > 0 {
		parts := make([]string, len(clients))
		for i, c := range clients {
			parts[i] = c.Name
		}
		names = strings.Join(parts, ", ")
	}
	return eris.Errorf(
		"distribution: all %d selected leads have been previously distributed to %s; select different leads or clients",
		total, names)
}

func (a *Allocator) writeHistory(ctx context.Context, dist *lead.Distribution, clientIDs []int64, final []lead.Lead, perLead float64, sourceNames map[int64]string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, clientID := range clientIDs {
		g.Go(func() error {
			records := make([]lead.ClientHistory, len(final))
			for i, l := range final {
				records[i] = lead.ClientHistory{
					ClientID:       clientID,
					DistributionID: dist.ID,
					LeadID:         l.ID,
					FirstName:      l.FirstName,
					LastName:       l.LastName,
					Email:          l.Email,
					Phone:          l.Phone,
					CompanyName:    l.CompanyName,
					TaxID:          l.TaxID,
					Address:        l.Address,
					City:           l.City,
					State:          l.State,
					ZipCode:        l.ZipCode,
					Country:        l.Country,
					SellingCost:    perLead,
					SourceBatchID:  l.UploadBatchID,
					SourceSupplier: l.SupplierID,
					SourceName:     sourceNames[l.UploadBatchID],
				}
			}
			for start := 0; start < len(records); start += a.batchSize {
				end := start + a.batchSize
				if end > len(records) {
					end = len(records)
				}
				chunk := records[start:end]
				err := db.Retry(ctx, db.DefaultRetryConfig(), "insert client history", func(ctx context.Context) error {
					_, err := a.store.InsertClientHistory(ctx, chunk)
					return err
				})
				if err != nil {
					return eris.Wrapf(err, "distribution: insert history for client %d", clientID)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
