package dnc

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/dedupe"
	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
	"github.com/SafeerAbbas624/lead-management-system/internal/parser"
)

// IngestResult summarizes a bulk DNC file load.
type IngestResult struct {
	ListID   int64 `json:"list_id"`
	Emails   int   `json:"emails"`
	Phones   int   `json:"phones"`
	Skipped  int   `json:"skipped"`
	Inserted int64 `json:"inserted"`
}

// IngestFile loads a file of emails and phone numbers into a DNC list,
// creating the list if needed. Every cell of every row is classified by
// shape; unrecognizable values are skipped, not fatal.
func IngestFile(ctx context.Context, store Store, listName, filename string, data []byte) (*IngestResult, error) {
	if listName == "" {
		listName = UploadListName
	}

	table, err := parser.Parse(filename, data)
	if err != nil {
		return nil, eris.Wrap(err, "dnc: parse file")
	}

	list, err := store.GetDNCListByName(ctx, listName)
	if err != nil {
		return nil, eris.Wrapf(err, "dnc: lookup list %q", listName)
	}
	if list == nil {
		list = &lead.DNCList{
			Name:        listName,
			Type:        "custom",
			Description: "Imported DNC file",
			IsActive:    true,
		}
		if err := store.CreateDNCList(ctx, list); err != nil {
			return nil, eris.Wrapf(err, "dnc: create list %q", listName)
		}
	}

	res := &IngestResult{ListID: list.ID}
	var entries []lead.DNCEntry
	seen := map[string]bool{}

	addCell := func(cell string) {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return
		}
		value, valueType := classify(cell)
		if valueType == "" {
			res.Skipped++
			return
		}
		key := valueType + "|" + value
		if seen[key] {
			return
		}
		seen[key] = true
		if valueType == "email" {
			res.Emails++
		} else {
			res.Phones++
		}
		entries = append(entries, lead.DNCEntry{
			Value:     value,
			ValueType: valueType,
			Source:    "file import",
			DNCListID: list.ID,
		})
	}

	// The header row of a DNC sheet is usually data too ("email" label files
	// are rare); classify it like any other row and let shape decide.
	for _, h := range table.Headers {
		addCell(h)
	}
	for _, row := range table.Rows {
		for _, cell := range row {
			addCell(cell)
		}
	}

	if len(entries) > 0 {
		res.Inserted, err = store.InsertDNCEntries(ctx, entries)
		if err != nil {
			return nil, eris.Wrap(err, "dnc: insert entries")
		}
		if err := store.TouchDNCList(ctx, list.ID); err != nil {
			return nil, err
		}
	}

	zap.S().Infow("dnc file ingested",
		"list", listName, "emails", res.Emails, "phones", res.Phones,
		"skipped", res.Skipped, "inserted", res.Inserted)
	return res, nil
}

// classify decides whether a cell is an email, a phone, or junk.
func classify(cell string) (string, string) {
	if strings.Contains(cell, "@") {
		return dedupe.NormalizeEmail(cell), "email"
	}
	if digits := dedupe.NormalizePhone(cell); len(digits) >= 10 {
		return digits, "phone"
	}
	return "", ""
}
