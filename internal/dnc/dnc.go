// Package dnc enforces do-not-contact compliance. A batch is screened
// against every active DNC list, and records that carry their own DNC
// signal (a flag column or a phrase in free text) are auto-enrolled into the
// upload-detected list.
package dnc

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/dedupe"
	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

// UploadListName is the list that collects DNC signals detected during
// uploads. It is created once, idempotently, when first needed.
const UploadListName = "Upload DNC List"

// Match reason codes.
const (
	ReasonListEmail  = "email on dnc list"
	ReasonListPhone  = "phone on dnc list"
	ReasonFlagColumn = "dnc flag set in upload"
	ReasonNotePhrase = "dnc phrase in notes"
)

// Store is the persistence capability the checker needs.
type Store interface {
	ActiveDNCEntries(ctx context.Context) ([]lead.DNCEntry, error)
	GetDNCListByName(ctx context.Context, name string) (*lead.DNCList, error)
	CreateDNCList(ctx context.Context, l *lead.DNCList) error
	InsertDNCEntries(ctx context.Context, entries []lead.DNCEntry) (int64, error)
	TouchDNCList(ctx context.Context, id int64) error
}

// Match pairs a suppressed record with the reason it was suppressed.
type Match struct {
	Lead   lead.Lead `json:"lead"`
	Value  string    `json:"value"`
	Reason string    `json:"reason"`
}

// Result of a compliance check.
type Result struct {
	Clean       []lead.Lead `json:"-"`
	Matches     []Match     `json:"-"`
	MatchCount  int         `json:"match_count"`
	NewEntries  int64       `json:"new_entries"`
	SignalCount int         `json:"signal_count"`
}

// Checker screens batches against the active DNC sets.
type Checker struct {
	store  Store
	emails map[string]bool
	phones map[string]bool
}

// NewChecker loads all active DNC entries into memory.
func NewChecker(ctx context.Context, store Store) (*Checker, error) {
	entries, err := store.ActiveDNCEntries(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "dnc: load active entries")
	}

	c := &Checker{
		store:  store,
		emails: map[string]bool{},
		phones: map[string]bool{},
	}
	for _, e := range entries {
		switch e.ValueType {
		case "email":
			c.emails[dedupe.NormalizeEmail(e.Value)] = true
		case "phone":
			c.phones[dedupe.NormalizePhone(e.Value)] = true
		}
	}
	return c, nil
}

// truthy tokens for an explicit DNC flag column.
var flagTokens = map[string]bool{
	"y": true, "yes": true, "true": true, "1": true,
	"dnc": true, "opt_out": true, "do_not_call": true,
}

// phrases that mark free text as a DNC signal.
var notePhrases = []string{"dnc", "do not contact", "unsubscribe", "opt out"}

// Check screens the batch. Matched and newly flagged records are excluded
// from the clean subset; new signals are enrolled into the upload list.
// Identities are added to the live sets as they are seen, so the same
// identity is never enrolled twice within one batch.
func (c *Checker) Check(ctx context.Context, batch []lead.Lead) (*Result, error) {
	res := &Result{}
	var newEntries []lead.DNCEntry
	var listID int64 = -1

	for _, l := range batch {
		email := dedupe.NormalizeEmail(l.Email)
		phone := dedupe.NormalizePhone(l.Phone)

		switch {
		case email != "" && c.emails[email]:
			l.IsDNC = true
			res.Matches = append(res.Matches, Match{Lead: l, Value: email, Reason: ReasonListEmail})
			continue
		case phone != "" && c.phones[phone]:
			l.IsDNC = true
			res.Matches = append(res.Matches, Match{Lead: l, Value: phone, Reason: ReasonListPhone})
			continue
		}

		reason, signal := detectSignal(l)
		if !signal {
			res.Clean = append(res.Clean, l)
			continue
		}
		res.SignalCount++

		if listID < 0 {
			id, err := c.uploadListID(ctx)
			if err != nil {
				return nil, err
			}
			listID = id
		}

		if email != "" && !c.emails[email] {
			c.emails[email] = true
			newEntries = append(newEntries, lead.DNCEntry{
				Value: email, ValueType: "email", Source: "upload detection", Reason: reason, DNCListID: listID,
			})
		}
		if phone != "" && !c.phones[phone] {
			c.phones[phone] = true
			newEntries = append(newEntries, lead.DNCEntry{
				Value: phone, ValueType: "phone", Source: "upload detection", Reason: reason, DNCListID: listID,
			})
		}

		value := email
		if value == "" {
			value = phone
		}
		l.IsDNC = true
		res.Matches = append(res.Matches, Match{Lead: l, Value: value, Reason: reason})
	}

	if len(newEntries) > 0 {
		n, err := c.store.InsertDNCEntries(ctx, newEntries)
		if err != nil {
			return nil, eris.Wrap(err, "dnc: enroll new entries")
		}
		res.NewEntries = n
		if err := c.store.TouchDNCList(ctx, listID); err != nil {
			return nil, err
		}
		zap.S().Infow("enrolled dnc signals", "entries", n, "signals", res.SignalCount)
	}

	res.MatchCount = len(res.Matches)
	return res, nil
}

// detectSignal reports whether a record carries its own DNC marker.
func detectSignal(l lead.Lead) (string, bool) {
	if flagTokens[strings.ToLower(strings.TrimSpace(l.Metadata["isdnc"]))] {
		return ReasonFlagColumn, true
	}

	notes := strings.ToLower(l.ExclusivityNotes)
	for _, phrase := range notePhrases {
		if strings.Contains(notes, phrase) {
			return ReasonNotePhrase, true
		}
	}
	return "", false
}

// uploadListID gets or creates the upload-detected list.
func (c *Checker) uploadListID(ctx context.Context) (int64, error) {
	existing, err := c.store.GetDNCListByName(ctx, UploadListName)
	if err != nil {
		return 0, eris.Wrap(err, "dnc: lookup upload list")
	}
	if existing != nil {
		return existing.ID, nil
	}

	l := &lead.DNCList{
		Name:        UploadListName,
		Type:        "custom",
		Description: "DNC signals detected during file uploads",
		IsActive:    true,
	}
	if err := c.store.CreateDNCList(ctx, l); err != nil {
		return 0, eris.Wrap(err, "dnc: create upload list")
	}
	return l.ID, nil
}
