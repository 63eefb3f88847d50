package dnc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

func seedList(t *testing.T, store *lead.MemStore, entries ...lead.DNCEntry) int64 {
	t.Helper()
	l := &lead.DNCList{Name: "Federal DNC", IsActive: true}
	require.NoError(t, store.CreateDNCList(context.Background(), l))
	for i := range entries {
		entries[i].DNCListID = l.ID
	}
	_, err := store.InsertDNCEntries(context.Background(), entries)
	require.NoError(t, err)
	return l.ID
}

func TestCheck_MatchesActiveLists(t *testing.T) {
	store := lead.NewMem()
	seedList(t, store,
		lead.DNCEntry{Value: "blocked@x.com", ValueType: "email"},
		lead.DNCEntry{Value: "5551234567", ValueType: "phone"},
	)

	c, err := NewChecker(context.Background(), store)
	require.NoError(t, err)

	res, err := c.Check(context.Background(), []lead.Lead{
		{Email: "BLOCKED@x.com", Phone: "5550000000"},
		{Email: "ok@x.com", Phone: "(555) 123-4567"},
		{Email: "fine@x.com", Phone: "5559999999"},
	})
	require.NoError(t, err)

	assert.Len(t, res.Clean, 1)
	assert.Equal(t, "fine@x.com", res.Clean[0].Email)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, ReasonListEmail, res.Matches[0].Reason)
	assert.Equal(t, ReasonListPhone, res.Matches[1].Reason)
	assert.True(t, res.Matches[0].Lead.IsDNC)
}

func TestCheck_AutoEnrollsFlagColumn(t *testing.T) {
	store := lead.NewMem()
	c, err := NewChecker(context.Background(), store)
	require.NoError(t, err)

	res, err := c.Check(context.Background(), []lead.Lead{
		{Email: "optout@x.com", Phone: "5551234567", Metadata: map[string]string{"isdnc": "Do_Not_Call"}},
		{Email: "ok@x.com", Phone: "5559999999"},
	})
	require.NoError(t, err)

	assert.Len(t, res.Clean, 1)
	assert.Equal(t, 1, res.SignalCount)
	assert.Equal(t, int64(2), res.NewEntries) // email + phone enrolled

	list, err := store.GetDNCListByName(context.Background(), UploadListName)
	require.NoError(t, err)
	require.NotNil(t, list)

	entries, err := store.ActiveDNCEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCheck_NotePhrases(t *testing.T) {
	store := lead.NewMem()
	c, err := NewChecker(context.Background(), store)
	require.NoError(t, err)

	res, err := c.Check(context.Background(), []lead.Lead{
		{Email: "a@x.com", ExclusivityNotes: "Customer asked to OPT OUT of calls"},
	})
	require.NoError(t, err)

	assert.Empty(t, res.Clean)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, ReasonNotePhrase, res.Matches[0].Reason)
}

func TestCheck_NoDoubleEnrollmentWithinBatch(t *testing.T) {
	store := lead.NewMem()
	c, err := NewChecker(context.Background(), store)
	require.NoError(t, err)

	res, err := c.Check(context.Background(), []lead.Lead{
		{Email: "dup@x.com", Metadata: map[string]string{"isdnc": "yes"}},
		{Email: "dup@x.com", Metadata: map[string]string{"isdnc": "yes"}},
	})
	require.NoError(t, err)

	// Second record matches the live set updated by the first.
	assert.Equal(t, int64(1), res.NewEntries)
	assert.Len(t, res.Matches, 2)
}

func TestCheck_UploadListIdempotent(t *testing.T) {
	store := lead.NewMem()

	for i := 0; i < 2; i++ {
		c, err := NewChecker(context.Background(), store)
		require.NoError(t, err)
		_, err = c.Check(context.Background(), []lead.Lead{
			{Email: "x@x.com", Metadata: map[string]string{"isdnc": "y"}},
		})
		require.NoError(t, err)
	}

	list, err := store.GetDNCListByName(context.Background(), UploadListName)
	require.NoError(t, err)
	require.NotNil(t, list)

	entries, err := store.ActiveDNCEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIngestFile(t *testing.T) {
	store := lead.NewMem()
	data := []byte("email\nblocked@x.com\n(555) 123-4567\njunk\nblocked@x.com\n")

	res, err := IngestFile(context.Background(), store, "Imported", "dnc.csv", data)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Emails)
	assert.Equal(t, 1, res.Phones)
	// "email" header and "junk" are unclassifiable.
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, int64(2), res.Inserted)

	entries, err := store.ActiveDNCEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
