package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBuying_TotalSheet(t *testing.T) {
	b, err := ResolveBuying(500, ModeTotalSheet, 100)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, b.Total, 0.001)
	assert.InDelta(t, 5.0, b.PerLead, 0.001)
}

func TestResolveBuying_PerLead(t *testing.T) {
	b, err := ResolveBuying(2.5, ModePerLead, 40)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, b.Total, 0.001)
	assert.InDelta(t, 2.5, b.PerLead, 0.001)
}

func TestResolveBuying_DefaultsToTotalSheet(t *testing.T) {
	b, err := ResolveBuying(300, "", 0)
	require.NoError(t, err)
	assert.InDelta(t, 300.0, b.Total, 0.001)
	assert.Zero(t, b.PerLead) // no leads yet, per-lead resolved later
}

func TestResolveBuying_Errors(t *testing.T) {
	_, err := ResolveBuying(-1, ModeTotalSheet, 10)
	assert.Error(t, err)

	_, err = ResolveBuying(10, "subscription", 10)
	assert.Error(t, err)
}

func TestPerLeadSelling(t *testing.T) {
	assert.InDelta(t, 5.0, PerLeadSelling(500, 100), 0.001)
	assert.Zero(t, PerLeadSelling(500, 0))

	// leadsAllocated x per-lead price reconstructs the sheet price.
	per := PerLeadSelling(999, 7)
	assert.InDelta(t, 999.0, per*7, 0.0001)
}
