package session

import "time"

// Step identifies one pipeline step. The set is closed: ExecuteStep
// dispatches over exactly these values and rejects anything else.
type Step string

const (
	StepFieldMapping   Step = "manual-field-mapping"
	StepCleaning       Step = "data-cleaning"
	StepNormalization  Step = "data-normalization"
	StepTagging        Step = "lead-tagging"
	StepAutoMapping    Step = "auto-mapping"
	StepDuplicateCheck Step = "duplicate-check"
	StepPreview        Step = "preview"
	StepSupplier       Step = "supplier-selection"
	StepDNCCheck       Step = "dnc-check"
	StepUpload         Step = "upload"
)

// Steps returns all pipeline steps in their logical execution order.
func Steps() []Step {
	return []Step{
		StepFieldMapping,
		StepCleaning,
		StepNormalization,
		StepTagging,
		StepAutoMapping,
		StepDuplicateCheck,
		StepPreview,
		StepSupplier,
		StepDNCCheck,
		StepUpload,
	}
}

// Valid reports whether s names a known step.
func (s Step) Valid() bool {
	for _, step := range Steps() {
		if s == step {
			return true
		}
	}
	return false
}

// Step statuses. Error is terminal for the step until it is re-invoked.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// StepResult records one step's outcome. Re-invoking a step overwrites its
// own StepResult; nothing rolls back state produced by other steps.
type StepResult struct {
	Step      Step      `json:"step"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Output    any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
