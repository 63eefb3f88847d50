package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/cleaner"
	"github.com/SafeerAbbas624/lead-management-system/internal/cost"
	"github.com/SafeerAbbas624/lead-management-system/internal/dedupe"
	"github.com/SafeerAbbas624/lead-management-system/internal/dnc"
	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
	"github.com/SafeerAbbas624/lead-management-system/internal/mapper"
	"github.com/SafeerAbbas624/lead-management-system/internal/parser"
)

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = eris.New("session: not found")

// ErrUnknownStep is returned for a step name outside the closed set.
var ErrUnknownStep = eris.New("session: unknown step")

// StepParams carries caller-supplied input for a step invocation. All
// fields are optional except where the step requires them.
type StepParams struct {
	// ManualMapping overrides the automatic field mapping (field -> header).
	ManualMapping map[string]string `json:"manual_mapping,omitempty"`
	// Tags are applied to every lead by the tagging step.
	Tags []string `json:"tags,omitempty"`
	// Supplier binding, consumed by the supplier-selection step.
	SupplierID int64   `json:"supplier_id,omitempty"`
	CostAmount float64 `json:"cost_amount,omitempty"`
	CostMode   string  `json:"cost_mode,omitempty"`
}

// Pipeline sequences the processing steps for all sessions. Steps are
// invoked independently by the caller; within one session they are expected
// to run sequentially.
type Pipeline struct {
	store       lead.Store
	arena       Arena
	cleanOpts   cleaner.Options
	previewRows int
	sampleRows  int
}

// NewPipeline wires a pipeline to its store and session arena.
func NewPipeline(store lead.Store, arena Arena, cleanOpts cleaner.Options, previewRows, sampleRows int) *Pipeline {
	if previewRows <= 0 {
		previewRows = 10
	}
	if sampleRows <= 0 {
		sampleRows = 20
	}
	return &Pipeline{
		store:       store,
		arena:       arena,
		cleanOpts:   cleanOpts,
		previewRows: previewRows,
		sampleRows:  sampleRows,
	}
}

// Start parses an uploaded file, auto-maps its headers, and creates a
// session with every step pending.
func (p *Pipeline) Start(_ context.Context, fileName string, data []byte) (*Session, error) {
	table, err := parser.Parse(fileName, data)
	if err != nil {
		return nil, err
	}

	s := New(fileName)
	s.Headers = table.Headers
	s.Rows = table.RowMaps()
	s.RowCount = len(s.Rows)

	samples := s.Rows
	if len(samples) > p.sampleRows {
		samples = samples[:p.sampleRows]
	}
	s.Mapping = mapper.Map(s.Headers, samples, nil)
	s.Leads = buildLeads(s.Rows, s.Mapping)

	p.arena.Put(s)
	zap.S().Infow("session started",
		"session_id", s.ID, "file", fileName, "rows", s.RowCount,
		"mapped_fields", len(s.Mapping.FieldToHeader))
	return s, nil
}

// Get returns a session by id.
func (p *Pipeline) Get(id string) (*Session, error) {
	s, ok := p.arena.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete discards a session.
func (p *Pipeline) Delete(id string) {
	p.arena.Delete(id)
}

// SetSupplier binds a supplier and cost to a session by running the
// supplier-selection step.
func (p *Pipeline) SetSupplier(ctx context.Context, id string, supplierID int64, amount float64, mode string) (*StepResult, error) {
	return p.ExecuteStep(ctx, id, StepSupplier, StepParams{
		SupplierID: supplierID,
		CostAmount: amount,
		CostMode:   mode,
	})
}

// ExecuteStep runs one step against a session. Step failures are recorded
// in the StepResult, not returned: the returned error is non-nil only when
// the session or step itself is invalid. Re-invoking a completed step
// recomputes it; other steps' results are never touched.
func (p *Pipeline) ExecuteStep(ctx context.Context, id string, step Step, params StepParams) (*StepResult, error) {
	if !step.Valid() {
		return nil, eris.Wrapf(ErrUnknownStep, "%q", step)
	}
	s, ok := p.arena.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	r := s.Result(step)
	r.Status = StatusProcessing
	r.Message = fmt.Sprintf("Processing %s", step)
	r.Timestamp = time.Now().UTC()

	var (
		msg    string
		output any
		err    error
	)
	switch step {
	case StepFieldMapping:
		msg, output = p.stepFieldMapping(s, params)
	case StepCleaning:
		msg, output = p.stepCleaning(s)
	case StepNormalization:
		msg, output = p.stepNormalization(s)
	case StepTagging:
		msg, output = p.stepTagging(s, params)
	case StepAutoMapping:
		msg, output = p.stepAutoMapping(s)
	case StepDuplicateCheck:
		msg, output = p.stepDuplicateCheck(ctx, s)
	case StepPreview:
		msg, output = p.stepPreview(s)
	case StepSupplier:
		msg, output, err = p.stepSupplier(ctx, s, params)
	case StepDNCCheck:
		msg, output = p.stepDNCCheck(ctx, s)
	case StepUpload:
		msg, output, err = p.stepUpload(ctx, s)
	}

	if err != nil {
		r.Status = StatusError
		r.Message = err.Error()
		zap.S().Warnw("step failed", "session_id", s.ID, "step", step, "error", err)
	} else {
		r.Status = StatusCompleted
		r.Message = msg
		r.Output = output
	}
	r.Timestamp = time.Now().UTC()
	s.UpdatedAt = r.Timestamp
	p.arena.Put(s)

	result := *r
	return &result, nil
}

func buildLeads(rows []map[string]string, m *mapper.Mapping) []lead.Lead {
	out := make([]lead.Lead, len(rows))
	for i, row := range rows {
		out[i] = mapper.BuildLead(row, m)
	}
	return out
}

func (p *Pipeline) stepFieldMapping(s *Session, params StepParams) (string, any) {
	samples := s.Rows
	if len(samples) > p.sampleRows {
		samples = samples[:p.sampleRows]
	}
	s.Mapping = mapper.Map(s.Headers, samples, params.ManualMapping)
	s.Leads = buildLeads(s.Rows, s.Mapping)

	mapped := len(s.Mapping.FieldToHeader)
	return fmt.Sprintf("Field mapping completed. %d fields mapped.", mapped), map[string]any{
		"mapped_fields":    mapped,
		"manually_mapped":  len(params.ManualMapping),
		"final_mapping":    s.Mapping.FieldToHeader,
		"unmapped_headers": s.Mapping.Unmapped,
	}
}

func (p *Pipeline) stepCleaning(s *Session) (string, any) {
	s.Leads = cleaner.Clean(s.Leads, p.cleanOpts)
	flagged := 0
	for _, l := range s.Leads {
		if l.Flagged {
			flagged++
		}
	}
	return fmt.Sprintf("Data cleaning completed. %d rows cleaned, %d flagged.", len(s.Leads), flagged), map[string]any{
		"cleaned_rows": len(s.Leads),
		"flagged_rows": flagged,
	}
}

func (p *Pipeline) stepNormalization(s *Session) (string, any) {
	// Cleaning is idempotent, so re-applying the format rules here only
	// affects leads touched by manual mapping changes since the last pass.
	s.Leads = cleaner.Clean(s.Leads, p.cleanOpts)
	return "Data normalization completed.", map[string]any{
		"normalized_rows": len(s.Leads),
		"name_format":     p.cleanOpts.NameFormat,
		"phone_format":    p.cleanOpts.PhoneFormat,
	}
}

func (p *Pipeline) stepTagging(s *Session, params StepParams) (string, any) {
	if len(params.Tags) > 0 {
		s.Tags = params.Tags
	}
	for i := range s.Leads {
		s.Leads[i].Tags = s.Tags
	}
	if len(s.Tags) == 0 {
		return "Lead tagging completed (no tags configured).", map[string]any{"tagged_rows": 0}
	}
	return fmt.Sprintf("Lead tagging completed. %d tag(s) applied to %d leads.", len(s.Tags), len(s.Leads)), map[string]any{
		"tags_applied": s.Tags,
		"leads_tagged": len(s.Leads),
	}
}

func (p *Pipeline) stepAutoMapping(s *Session) (string, any) {
	confidence := s.Mapping.OverallConfidence(len(s.Headers))
	return "Auto-mapping completed.", map[string]any{
		"confidence":       confidence,
		"mapped_fields":    len(s.Mapping.FieldToHeader),
		"unmapped_headers": s.Mapping.Unmapped,
	}
}

func (p *Pipeline) stepDuplicateCheck(ctx context.Context, s *Session) (string, any) {
	res, err := dedupe.Run(ctx, s.Leads, p.store)
	if err != nil {
		// Degrade to an estimate rather than failing the session.
		estimated := s.RowCount / 20
		return fmt.Sprintf("Duplicate check completed (estimated). ~%d duplicates.", estimated), map[string]any{
			"total_leads":     s.RowCount,
			"duplicate_count": estimated,
			"clean_leads":     s.RowCount - estimated,
			"estimated":       true,
			"error":           err.Error(),
		}
	}

	s.DedupeResult = res
	return fmt.Sprintf("Duplicate check completed. %d batch and %d database duplicates found.",
			res.BatchDuplicates, res.StoreDuplicates), map[string]any{
			"total_leads":      s.RowCount,
			"batch_duplicates": res.BatchDuplicates,
			"store_duplicates": res.StoreDuplicates,
			"no_identity":      res.NoIdentity,
			"clean_leads":      len(res.Clean),
		}
}

func (p *Pipeline) stepPreview(s *Session) (string, any) {
	rows := p.candidateLeads(s)
	n := p.previewRows
	if n > len(rows) {
		n = len(rows)
	}
	return fmt.Sprintf("Preview ready (%d total rows).", s.RowCount), map[string]any{
		"preview": rows[:n],
	}
}

func (p *Pipeline) stepSupplier(ctx context.Context, s *Session, params StepParams) (string, any, error) {
	if params.SupplierID == 0 {
		return "", nil, eris.New("session: supplier id is required")
	}
	supplier, err := p.store.GetSupplier(ctx, params.SupplierID)
	if err != nil {
		return "", nil, err
	}
	if supplier == nil {
		return "", nil, eris.Errorf("session: supplier %d not found", params.SupplierID)
	}
	if _, err := cost.ResolveBuying(params.CostAmount, params.CostMode, s.RowCount); err != nil {
		return "", nil, err
	}

	s.SupplierID = supplier.ID
	s.SupplierName = supplier.Name
	s.CostAmount = params.CostAmount
	s.CostMode = params.CostMode

	return fmt.Sprintf("Supplier %q selected.", supplier.Name), map[string]any{
		"supplier_id":   supplier.ID,
		"supplier_name": supplier.Name,
		"cost_mode":     s.CostMode,
		"cost_amount":   s.CostAmount,
	}, nil
}

func (p *Pipeline) stepDNCCheck(ctx context.Context, s *Session) (string, any) {
	candidates := p.candidateLeads(s)

	checker, err := dnc.NewChecker(ctx, p.store)
	var res *dnc.Result
	if err == nil {
		res, err = checker.Check(ctx, candidates)
	}
	if err != nil {
		estimated := s.RowCount / 50
		return fmt.Sprintf("DNC check completed (estimated). ~%d matches.", estimated), map[string]any{
			"total_leads": s.RowCount,
			"dnc_matches": estimated,
			"clean_leads": s.RowCount - estimated,
			"estimated":   true,
			"error":       err.Error(),
		}
	}

	s.DNCResult = res
	return fmt.Sprintf("DNC check completed. %d matches found, %d new entries added.",
			res.MatchCount, res.NewEntries), map[string]any{
			"total_leads": len(candidates),
			"dnc_matches": res.MatchCount,
			"new_entries": res.NewEntries,
			"clean_leads": len(res.Clean),
		}
}

func (p *Pipeline) stepUpload(ctx context.Context, s *Session) (string, any, error) {
	if s.SupplierID == 0 {
		return "", nil, eris.New("session: supplier must be selected before upload")
	}

	final := p.candidateLeads(s)
	buying, err := cost.ResolveBuying(s.CostAmount, s.CostMode, len(final))
	if err != nil {
		return "", nil, err
	}

	duplicates := 0
	if s.DedupeResult != nil {
		duplicates = s.DedupeResult.BatchDuplicates + s.DedupeResult.StoreDuplicates
	}
	dncMatches := 0
	if s.DNCResult != nil {
		dncMatches = s.DNCResult.MatchCount
	}

	batch := &lead.UploadBatch{
		FileName:           s.FileName,
		SourceName:         s.SupplierName,
		SupplierID:         s.SupplierID,
		Status:             lead.BatchProcessing,
		TotalLeads:         s.RowCount,
		DuplicateLeads:     duplicates,
		DNCMatches:         dncMatches,
		TotalBuyingPrice:   buying.Total,
		BuyingPricePerLead: buying.PerLead,
	}
	if err := p.store.CreateBatch(ctx, batch); err != nil {
		return "", nil, err
	}
	s.BatchID = batch.ID

	for i := range final {
		final[i].UploadBatchID = batch.ID
		final[i].SupplierID = s.SupplierID
		final[i].LeadSource = s.SupplierName
		final[i].Tags = s.Tags
		// In per-lead mode a cost column in the file wins; otherwise every
		// lead carries the derived per-lead buying price.
		if s.CostMode != cost.ModePerLead || final[i].LeadCost == 0 {
			final[i].LeadCost = buying.PerLead
		}
	}

	inserted, err := p.store.InsertLeads(ctx, final)
	if err != nil {
		batch.Status = lead.BatchFailed
		batch.ErrorMessage = err.Error()
		if uerr := p.store.UpdateBatch(ctx, batch); uerr != nil {
			zap.S().Errorw("update failed batch", "batch_id", batch.ID, "error", uerr)
		}
		return "", nil, eris.Wrap(err, "session: insert leads")
	}

	now := time.Now().UTC()
	batch.Status = lead.BatchCompleted
	batch.CleanedLeads = int(inserted)
	batch.CompletedAt = &now
	if err := p.store.UpdateBatch(ctx, batch); err != nil {
		return "", nil, eris.Wrap(err, "session: finalize batch")
	}

	return fmt.Sprintf("Upload completed. %d clean leads uploaded.", inserted), map[string]any{
		"batch_id":       batch.ID,
		"inserted_count": inserted,
		"duplicates":     duplicates,
		"dnc_matches":    dncMatches,
		"total_leads":    s.RowCount,
	}, nil
}

// candidateLeads returns the most-processed lead set available: DNC-clean,
// else dedupe-clean, else the mapped working set.
func (p *Pipeline) candidateLeads(s *Session) []lead.Lead {
	if s.DNCResult != nil {
		return s.DNCResult.Clean
	}
	if s.DedupeResult != nil {
		return s.DedupeResult.Clean
	}
	return s.Leads
}
