package lead

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory Store used by tests and the "memory" driver.
// It mirrors the PostgresStore semantics, including the insert-ignore
// behavior on dnc_entries and clients_history dedup keys.
type MemStore struct {
	mu sync.Mutex

	leads         []Lead
	batches       map[int64]*UploadBatch
	suppliers     map[int64]*Supplier
	clients       map[int64]*Client
	dncLists      map[int64]*DNCList
	dncEntries    []DNCEntry
	distributions map[int64]*Distribution
	history       []ClientHistory

	nextLead, nextBatch, nextList, nextEntry, nextDist, nextHist int64
}

// NewMem creates an empty MemStore.
func NewMem() *MemStore {
	return &MemStore{
		batches:       map[int64]*UploadBatch{},
		suppliers:     map[int64]*Supplier{},
		clients:       map[int64]*Client{},
		dncLists:      map[int64]*DNCList{},
		distributions: map[int64]*Distribution{},
	}
}

// SeedSupplier registers a supplier for tests.
func (s *MemStore) SeedSupplier(sp Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sp
	s.suppliers[sp.ID] = &cp
}

// SeedClient registers a client for tests.
func (s *MemStore) SeedClient(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.clients[c.ID] = &cp
}

func (s *MemStore) InsertLeads(_ context.Context, leads []Lead) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range leads {
		s.nextLead++
		l.ID = s.nextLead
		if l.CreatedAt.IsZero() {
			l.CreatedAt = time.Now().UTC()
		}
		s.leads = append(s.leads, l)
	}
	return int64(len(leads)), nil
}

func (s *MemStore) LeadsByBatch(_ context.Context, batchID int64) ([]Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Lead
	for _, l := range s.leads {
		if l.UploadBatchID == batchID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *MemStore) FindLeadsByIdentity(_ context.Context, emails, phones []string) ([]Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailSet := make(map[string]bool, len(emails))
	for _, e := range emails {
		emailSet[e] = true
	}
	phoneSet := make(map[string]bool, len(phones))
	for _, p := range phones {
		phoneSet[p] = true
	}

	var out []Lead
	for _, l := range s.leads {
		if emailSet[strings.ToLower(strings.TrimSpace(l.Email))] || phoneSet[digitsOnly(l.Phone)] {
			out = append(out, l)
		}
	}
	return out, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *MemStore) CreateBatch(_ context.Context, b *UploadBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBatch++
	b.ID = s.nextBatch
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	cp := *b
	s.batches[b.ID] = &cp
	return nil
}

func (s *MemStore) UpdateBatch(_ context.Context, b *UploadBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.batches[b.ID] = &cp
	return nil
}

func (s *MemStore) GetBatch(_ context.Context, id int64) (*UploadBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *MemStore) ListCompletedBatches(_ context.Context) ([]UploadBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []UploadBatch
	for _, b := range s.batches {
		if b.Status == BatchCompleted {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) GetSupplier(_ context.Context, id int64) (*Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.suppliers[id]
	if !ok {
		return nil, nil
	}
	cp := *sp
	return &cp, nil
}

func (s *MemStore) ListActiveClients(_ context.Context) ([]Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Client
	for _, c := range s.clients {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) GetClients(_ context.Context, ids []int64) ([]Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Client
	for _, id := range ids {
		if c, ok := s.clients[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *MemStore) ActiveDNCEntries(_ context.Context) ([]DNCEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DNCEntry
	for _, e := range s.dncEntries {
		if l, ok := s.dncLists[e.DNCListID]; ok && l.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemStore) GetDNCListByName(_ context.Context, name string) (*DNCList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.dncLists {
		if l.Name == name {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemStore) CreateDNCList(_ context.Context, l *DNCList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.dncLists {
		if existing.Name == l.Name {
			existing.LastUpdated = time.Now().UTC()
			*l = *existing
			return nil
		}
	}
	s.nextList++
	l.ID = s.nextList
	now := time.Now().UTC()
	l.CreatedAt = now
	l.LastUpdated = now
	cp := *l
	s.dncLists[l.ID] = &cp
	return nil
}

func (s *MemStore) InsertDNCEntries(_ context.Context, entries []DNCEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[[3]any]bool, len(s.dncEntries))
	for _, e := range s.dncEntries {
		seen[[3]any{e.Value, e.ValueType, e.DNCListID}] = true
	}

	var inserted int64
	for _, e := range entries {
		key := [3]any{e.Value, e.ValueType, e.DNCListID}
		if seen[key] {
			continue
		}
		seen[key] = true
		s.nextEntry++
		e.ID = s.nextEntry
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		s.dncEntries = append(s.dncEntries, e)
		inserted++
	}
	return inserted, nil
}

func (s *MemStore) TouchDNCList(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.dncLists[id]; ok {
		l.LastUpdated = time.Now().UTC()
	}
	return nil
}

func (s *MemStore) CreateDistribution(_ context.Context, d *Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDist++
	d.ID = s.nextDist
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	cp := *d
	s.distributions[d.ID] = &cp
	return nil
}

func (s *MemStore) SetDistributionExport(_ context.Context, id int64, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.distributions[id]; ok {
		d.ExportedFilename = filename
		now := time.Now().UTC()
		d.ExportedAt = &now
	}
	return nil
}

func (s *MemStore) GetDistribution(_ context.Context, id int64) (*Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.distributions[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *MemStore) ListDistributions(_ context.Context, limit, offset int) ([]Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Distribution
	for _, d := range s.distributions {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) InsertClientHistory(_ context.Context, records []ClientHistory) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[[2]int64]bool, len(s.history))
	for _, h := range s.history {
		seen[[2]int64{h.ClientID, h.LeadID}] = true
	}

	var inserted int64
	for _, r := range records {
		key := [2]int64{r.ClientID, r.LeadID}
		if seen[key] {
			continue
		}
		seen[key] = true
		s.nextHist++
		r.ID = s.nextHist
		if r.DistributedAt.IsZero() {
			r.DistributedAt = time.Now().UTC()
		}
		s.history = append(s.history, r)
		inserted++
	}
	return inserted, nil
}

func (s *MemStore) FindClientHistory(_ context.Context, clientIDs, leadIDs []int64) ([]ClientHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clientSet := make(map[int64]bool, len(clientIDs))
	for _, id := range clientIDs {
		clientSet[id] = true
	}
	leadSet := make(map[int64]bool, len(leadIDs))
	for _, id := range leadIDs {
		leadSet[id] = true
	}

	var out []ClientHistory
	for _, h := range s.history {
		if clientSet[h.ClientID] && leadSet[h.LeadID] {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *MemStore) HistoryByDistribution(_ context.Context, distributionID int64) ([]ClientHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ClientHistory
	for _, h := range s.history {
		if h.DistributionID == distributionID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *MemStore) Migrate(context.Context) error { return nil }

func (s *MemStore) Close() error { return nil }
