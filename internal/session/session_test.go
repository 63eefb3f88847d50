package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafeerAbbas624/lead-management-system/internal/cleaner"
	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

const sampleCSV = "Email,First,Last,Cell,DNC Flag\n" +
	"ann@x.com,ann,lee,5551234567,\n" +
	"BOB@x.com,bob,ray,5559876543,\n" +
	"ann@x.com,ann,lee,5551234567,\n" + // duplicate of row 1
	"carol@x.com,carol,fox,5550001111,yes\n"

func newTestPipeline(store lead.Store) (*Pipeline, *MemArena) {
	arena := NewMemArena(0, 0) // no eviction in tests
	return NewPipeline(store, arena, cleaner.DefaultOptions(), 10, 20), arena
}

func runStep(t *testing.T, p *Pipeline, id string, step Step, params StepParams) *StepResult {
	t.Helper()
	r, err := p.ExecuteStep(context.Background(), id, step, params)
	require.NoError(t, err)
	return r
}

func TestStart(t *testing.T) {
	p, _ := newTestPipeline(lead.NewMem())

	s, err := p.Start(context.Background(), "leads.csv", []byte(sampleCSV))
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 4, s.RowCount)
	assert.Equal(t, []string{"Email", "First", "Last", "Cell", "DNC Flag"}, s.Headers)
	assert.Equal(t, "Email", s.Mapping.HeaderFor("email"))
	assert.Equal(t, "Cell", s.Mapping.HeaderFor("phone"))
	assert.Equal(t, StatusPending, s.Status())
	assert.Len(t, s.Steps, 10)
}

func TestExecuteStep_FullRun(t *testing.T) {
	store := lead.NewMem()
	store.SeedSupplier(lead.Supplier{ID: 3, Name: "Acme Leads", IsActive: true})
	p, _ := newTestPipeline(store)

	s, err := p.Start(context.Background(), "leads.csv", []byte(sampleCSV))
	require.NoError(t, err)

	runStep(t, p, s.ID, StepFieldMapping, StepParams{})
	runStep(t, p, s.ID, StepCleaning, StepParams{})
	runStep(t, p, s.ID, StepNormalization, StepParams{})
	runStep(t, p, s.ID, StepTagging, StepParams{Tags: []string{"solar", "q3"}})
	runStep(t, p, s.ID, StepAutoMapping, StepParams{})

	r := runStep(t, p, s.ID, StepDuplicateCheck, StepParams{})
	assert.Equal(t, StatusCompleted, r.Status)
	out := r.Output.(map[string]any)
	assert.Equal(t, 1, out["batch_duplicates"])

	runStep(t, p, s.ID, StepPreview, StepParams{})
	r = runStep(t, p, s.ID, StepSupplier, StepParams{SupplierID: 3, CostAmount: 300, CostMode: "total_sheet"})
	assert.Equal(t, StatusCompleted, r.Status)

	r = runStep(t, p, s.ID, StepDNCCheck, StepParams{})
	out = r.Output.(map[string]any)
	// carol carries a DNC flag, so she is enrolled and suppressed.
	assert.Equal(t, 1, out["dnc_matches"])

	r = runStep(t, p, s.ID, StepUpload, StepParams{})
	require.Equal(t, StatusCompleted, r.Status)
	out = r.Output.(map[string]any)
	assert.Equal(t, int64(2), out["inserted_count"])

	s, err = p.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status())

	stored, err := store.LeadsByBatch(context.Background(), s.BatchID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Acme Leads", stored[0].LeadSource)
	assert.Equal(t, []string{"solar", "q3"}, stored[0].Tags)
	assert.InDelta(t, 150.0, stored[0].LeadCost, 0.001) // 300 / 2 leads

	batch, err := store.GetBatch(context.Background(), s.BatchID)
	require.NoError(t, err)
	assert.Equal(t, lead.BatchCompleted, batch.Status)
	assert.Equal(t, 2, batch.CleanedLeads)
	assert.Equal(t, 1, batch.DuplicateLeads)
	assert.Equal(t, 1, batch.DNCMatches)
}

func TestExecuteStep_UploadRequiresSupplier(t *testing.T) {
	p, _ := newTestPipeline(lead.NewMem())
	s, err := p.Start(context.Background(), "leads.csv", []byte(sampleCSV))
	require.NoError(t, err)

	r := runStep(t, p, s.ID, StepUpload, StepParams{})
	assert.Equal(t, StatusError, r.Status)
	assert.Contains(t, r.Message, "supplier")

	s, err = p.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, s.Status())
}

func TestExecuteStep_ErrorIsRetryable(t *testing.T) {
	store := lead.NewMem()
	store.SeedSupplier(lead.Supplier{ID: 1, Name: "S", IsActive: true})
	p, _ := newTestPipeline(store)
	s, err := p.Start(context.Background(), "leads.csv", []byte(sampleCSV))
	require.NoError(t, err)

	r := runStep(t, p, s.ID, StepSupplier, StepParams{SupplierID: 99})
	assert.Equal(t, StatusError, r.Status)

	// Re-invoking the failed step with good input recovers it.
	r = runStep(t, p, s.ID, StepSupplier, StepParams{SupplierID: 1, CostAmount: 100})
	assert.Equal(t, StatusCompleted, r.Status)
}

func TestExecuteStep_UnknownStepAndSession(t *testing.T) {
	p, _ := newTestPipeline(lead.NewMem())

	_, err := p.ExecuteStep(context.Background(), "nope", Step("reticulate"), StepParams{})
	assert.ErrorIs(t, err, ErrUnknownStep)

	_, err = p.ExecuteStep(context.Background(), "nope", StepPreview, StepParams{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExecuteStep_ManualMappingOverride(t *testing.T) {
	p, _ := newTestPipeline(lead.NewMem())
	s, err := p.Start(context.Background(), "leads.csv", []byte("Col A,Col B\nann@x.com,5551234567\n"))
	require.NoError(t, err)

	r := runStep(t, p, s.ID, StepFieldMapping, StepParams{
		ManualMapping: map[string]string{"email": "Col A", "phone": "Col B"},
	})
	require.Equal(t, StatusCompleted, r.Status)

	s, err = p.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Col A", s.Mapping.HeaderFor("email"))
	assert.Equal(t, "ann@x.com", s.Leads[0].Email)
}

func TestSessionStatus_Derivation(t *testing.T) {
	s := New("f.csv")
	assert.Equal(t, StatusPending, s.Status())

	s.Result(StepCleaning).Status = StatusProcessing
	assert.Equal(t, StatusProcessing, s.Status())

	for i := range s.Steps {
		s.Steps[i].Status = StatusCompleted
	}
	assert.Equal(t, StatusCompleted, s.Status())

	s.Result(StepUpload).Status = StatusError
	assert.Equal(t, StatusError, s.Status())
}

func TestMemArena_TTLEviction(t *testing.T) {
	a := NewMemArena(time.Minute, time.Hour)
	defer a.Close()

	s := New("f.csv")
	a.Put(s)

	_, ok := a.Get(s.ID)
	assert.True(t, ok)

	a.evict(time.Now().Add(2 * time.Minute))
	_, ok = a.Get(s.ID)
	assert.False(t, ok)
}

func TestMemArena_DeleteAndList(t *testing.T) {
	a := NewMemArena(0, 0)
	s1, s2 := New("a.csv"), New("b.csv")
	a.Put(s1)
	a.Put(s2)

	assert.Len(t, a.List(), 2)
	a.Delete(s1.ID)
	assert.Len(t, a.List(), 1)
}
