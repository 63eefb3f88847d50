package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5551234567", NormalizePhone("(555) 123-4567"))
	assert.Equal(t, "5551234567", NormalizePhone("+1 555 123 4567"))
	assert.Equal(t, "555123", NormalizePhone("555-123")) // short numbers kept as-is
	assert.Equal(t, "", NormalizePhone(""))
}

func TestRun_IntraBatchEmailCaseInsensitive(t *testing.T) {
	res, err := Run(context.Background(), []lead.Lead{
		{Email: "A@x.com", Phone: "5551234567"},
		{Email: "a@x.com ", Phone: "5559999999"},
	}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Clean, 1)
	assert.Equal(t, 1, res.BatchDuplicates)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, ReasonBatchEmail, res.Duplicates[0].Reason)
}

func TestRun_IntraBatchPhone(t *testing.T) {
	res, err := Run(context.Background(), []lead.Lead{
		{Email: "a@x.com", Phone: "(555) 123-4567"},
		{Email: "b@x.com", Phone: "1-555-123-4567"},
	}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Clean, 1)
	assert.Equal(t, 1, res.BatchDuplicates)
	assert.Equal(t, ReasonBatchPhone, res.Duplicates[0].Reason)
}

func TestRun_NoIdentityIneligible(t *testing.T) {
	res, err := Run(context.Background(), []lead.Lead{
		{FirstName: "Ann"},
		{Email: "a@x.com"},
	}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Clean, 1)
	assert.Equal(t, 1, res.NoIdentity)
	assert.Zero(t, res.BatchDuplicates)
}

func TestRun_CrossStore(t *testing.T) {
	store := lead.NewMem()
	_, err := store.InsertLeads(context.Background(), []lead.Lead{
		{Email: "known@x.com", Phone: "5550000001", LeadSource: "Old Batch"},
	})
	require.NoError(t, err)

	res, err := Run(context.Background(), []lead.Lead{
		{Email: "KNOWN@x.com", Phone: "5559999999"}, // matches by email
		{Email: "fresh@x.com", Phone: "5558888888"},
	}, store)
	require.NoError(t, err)

	assert.Len(t, res.Clean, 1)
	assert.Equal(t, "fresh@x.com", res.Clean[0].Email)
	assert.Equal(t, 1, res.StoreDuplicates)

	require.Len(t, res.Duplicates, 1)
	d := res.Duplicates[0]
	assert.Equal(t, ReasonStoreMatch, d.Reason)
	assert.Equal(t, int64(1), d.ExistingID)
	assert.Equal(t, "Old Batch", d.ExistingSource)
}

func TestRun_DisjointCounts(t *testing.T) {
	store := lead.NewMem()
	_, err := store.InsertLeads(context.Background(), []lead.Lead{
		{Email: "db@x.com", Phone: "5550000001"},
	})
	require.NoError(t, err)

	res, err := Run(context.Background(), []lead.Lead{
		{Email: "a@x.com", Phone: "5551111111"},
		{Email: "a@x.com", Phone: "5552222222"}, // batch duplicate
		{Email: "db@x.com", Phone: "5553333333"}, // store duplicate
	}, store)
	require.NoError(t, err)

	assert.Equal(t, 1, res.BatchDuplicates)
	assert.Equal(t, 1, res.StoreDuplicates)
	assert.Len(t, res.Clean, 1)
}
