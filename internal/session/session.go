// Package session tracks one uploaded file through the processing pipeline.
// Sessions are volatile: they live in an in-memory arena with TTL eviction
// and disappear on process restart.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/dedupe"
	"github.com/SafeerAbbas624/lead-management-system/internal/dnc"
	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
	"github.com/SafeerAbbas624/lead-management-system/internal/mapper"
)

// Session holds everything known about one upload in flight.
type Session struct {
	ID       string   `json:"session_id"`
	FileName string   `json:"file_name"`
	Headers  []string `json:"headers"`
	RowCount int      `json:"row_count"`

	// Rows is the raw parsed data, header-keyed. It is never mutated after
	// intake; pipeline stages derive Leads from it.
	Rows []map[string]string `json:"-"`

	Mapping *mapper.Mapping `json:"field_mapping,omitempty"`

	// Leads is the current working set: mapped after field mapping,
	// cleaned after cleaning, and so on.
	Leads []lead.Lead `json:"-"`

	Tags []string `json:"tags,omitempty"`

	DedupeResult *dedupe.Result `json:"-"`
	DNCResult    *dnc.Result    `json:"-"`

	SupplierID   int64   `json:"supplier_id,omitempty"`
	SupplierName string  `json:"supplier_name,omitempty"`
	CostMode     string  `json:"cost_mode,omitempty"`
	CostAmount   float64 `json:"cost_amount,omitempty"`

	BatchID int64 `json:"batch_id,omitempty"`

	Steps []StepResult `json:"steps"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session with every step pending.
func New(fileName string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		FileName:  fileName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, step := range Steps() {
		s.Steps = append(s.Steps, StepResult{Step: step, Status: StatusPending, Timestamp: now})
	}
	return s
}

// Result returns a pointer to the StepResult for a step.
func (s *Session) Result(step Step) *StepResult {
	for i := range s.Steps {
		if s.Steps[i].Step == step {
			return &s.Steps[i]
		}
	}
	return nil
}

// Status derives the session-level status from its steps: error beats
// completed beats processing beats pending. It is computed, never stored.
func (s *Session) Status() string {
	completed := 0
	processing := false
	for _, r := range s.Steps {
		switch r.Status {
		case StatusError:
			return StatusError
		case StatusCompleted:
			completed++
		case StatusProcessing:
			processing = true
		}
	}
	if completed == len(s.Steps) {
		return StatusCompleted
	}
	if processing {
		return StatusProcessing
	}
	return StatusPending
}

// Arena is the session store capability. Implementations decide lifetime
// semantics; the pipeline never assumes durability.
type Arena interface {
	Get(id string) (*Session, bool)
	Put(s *Session)
	Delete(id string)
	List() []*Session
}

// MemArena is an in-memory Arena with TTL eviction. A janitor goroutine
// sweeps expired sessions; Get and Put refresh a session's deadline.
type MemArena struct {
	mu       sync.Mutex
	sessions map[string]*arenaEntry
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type arenaEntry struct {
	session  *Session
	deadline time.Time
}

// NewMemArena starts an arena whose janitor wakes every sweep interval.
// ttl <= 0 disables eviction.
func NewMemArena(ttl, sweep time.Duration) *MemArena {
	a := &MemArena{
		sessions: map[string]*arenaEntry{},
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		if sweep <= 0 {
			sweep = time.Minute
		}
		go a.janitor(sweep)
	}
	return a
}

func (a *MemArena) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.evict(time.Now())
		case <-a.stop:
			return
		}
	}
}

func (a *MemArena) evict(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, e := range a.sessions {
		if now.After(e.deadline) {
			delete(a.sessions, id)
			zap.S().Debugw("session expired", "session_id", id)
		}
	}
}

func (a *MemArena) Get(id string) (*Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.sessions[id]
	if !ok {
		return nil, false
	}
	if a.ttl > 0 {
		e.deadline = time.Now().Add(a.ttl)
	}
	return e.session, true
}

func (a *MemArena) Put(s *Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[s.ID] = &arenaEntry{session: s, deadline: time.Now().Add(a.ttl)}
}

func (a *MemArena) Delete(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, id)
}

func (a *MemArena) List() []*Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Session, 0, len(a.sessions))
	for _, e := range a.sessions {
		out = append(out, e.session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Close stops the janitor.
func (a *MemArena) Close() {
	a.stopOnce.Do(func() { close(a.stop) })
}
