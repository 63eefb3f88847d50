package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_CommonHeaderVariants(t *testing.T) {
	m := Map([]string{"E-Mail", "First", "Last", "Cell"}, nil, nil)

	assert.Equal(t, "E-Mail", m.HeaderFor(FieldEmail))
	assert.Equal(t, "First", m.HeaderFor(FieldFirstName))
	assert.Equal(t, "Last", m.HeaderFor(FieldLastName))
	assert.Equal(t, "Cell", m.HeaderFor(FieldPhone))

	for _, f := range []string{FieldEmail, FieldFirstName, FieldLastName, FieldPhone} {
		assert.GreaterOrEqual(t, m.Confidence[f], 0.8, "field %s", f)
	}
	assert.Empty(t, m.Unmapped)
	assert.InDelta(t, 1.0, m.OverallConfidence(4), 0.001)
}

func TestMap_Injective(t *testing.T) {
	headers := []string{"Email", "Email Address", "Phone", "Phone Number", "Company", "Notes"}
	m := Map(headers, nil, nil)

	seen := map[string]string{}
	for field, header := range m.FieldToHeader {
		if prev, dup := seen[header]; dup {
			t.Fatalf("header %q claimed by both %q and %q", header, prev, field)
		}
		seen[header] = field
	}
}

func TestMap_RejectsWeakMatches(t *testing.T) {
	m := Map([]string{"xzqj", "blorp"}, nil, nil)
	assert.Empty(t, m.FieldToHeader)
	assert.ElementsMatch(t, []string{"xzqj", "blorp"}, m.Unmapped)
}

func TestMap_ManualOverridesWin(t *testing.T) {
	m := Map([]string{"Col A", "Col B"}, nil, map[string]string{
		FieldEmail: "Col B",
	})
	assert.Equal(t, "Col B", m.HeaderFor(FieldEmail))
	assert.Equal(t, 1.0, m.Confidence[FieldEmail])
}

func TestMap_SampleValuesOverrideWeakLexical(t *testing.T) {
	samples := []map[string]string{
		{"Contact Info": "ann@example.com"},
		{"Contact Info": "bob@example.com"},
		{"Contact Info": "cy@example.org"},
	}
	m := Map([]string{"Contact Info"}, samples, nil)

	assert.Equal(t, "Contact Info", m.HeaderFor(FieldEmail))
	assert.Greater(t, m.Confidence[FieldEmail], 0.8)
}

func TestScore_ExactKeywordIsPerfect(t *testing.T) {
	assert.InDelta(t, 1.0, Score("email", FieldEmail), 0.001)
	assert.InDelta(t, 1.0, Score("  Phone_Number ", FieldPhone), 0.001)
}

func TestScore_UnknownFieldIsZero(t *testing.T) {
	assert.Zero(t, Score("email", "nonexistent"))
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, similarity("email", "email"), 0.001)
	assert.Zero(t, similarity("", ""))
	// "emial" vs "email" share 4 of 5 characters in blocks.
	assert.Greater(t, similarity("emial", "email"), 0.7)
}

func TestBuildLead(t *testing.T) {
	m := Map([]string{"Email", "First Name", "Last Name", "Phone", "Lead Cost", "Widget Color"}, nil, nil)
	row := map[string]string{
		"Email":        " Ann@Example.com ",
		"First Name":   "ann",
		"Last Name":    "lee",
		"Phone":        "(555) 123-4567",
		"Lead Cost":    "$1,250.50",
		"Widget Color": "teal",
	}
	l := BuildLead(row, m)

	assert.Equal(t, "Ann@Example.com", l.Email)
	assert.Equal(t, "ann", l.FirstName)
	assert.Equal(t, "(555) 123-4567", l.Phone)
	assert.InDelta(t, 1250.50, l.LeadCost, 0.001)
	require.NotNil(t, l.Metadata)
	assert.Equal(t, "teal", l.Metadata["Widget Color"])
	assert.Equal(t, "New", l.LeadStatus)
}

func TestParseMoney(t *testing.T) {
	assert.InDelta(t, 1250.5, parseMoney("$1,250.50"), 0.001)
	assert.InDelta(t, 42.0, parseMoney("42"), 0.001)
	assert.Zero(t, parseMoney(""))
	assert.Zero(t, parseMoney("n/a"))
}
